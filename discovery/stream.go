package discovery

import (
	"sync"

	"github.com/fk1blow/haplea/domain"
)

// Stream is the multi-producer, single-consumer event channel shared by the browser and the reaper.
// Publish never blocks; events are queued and handed to the consumer in publish order.
// With a positive limit the oldest queued event is dropped when the queue is full.
type Stream struct {
	mu      sync.Mutex
	queue   []domain.DiscoveryEvent
	limit   int
	dropped uint64
	closed  bool

	wake chan struct{}
	out  chan domain.DiscoveryEvent
}

// NewStream starts a stream. limit <= 0 means the backlog is unbounded.
func NewStream(limit int) *Stream {
	s := &Stream{
		limit: limit,
		wake:  make(chan struct{}, 1),
		out:   make(chan domain.DiscoveryEvent),
	}
	go s.pump()
	return s
}

// Publish enqueues ev. Returns false when the stream is closed.
func (s *Stream) Publish(ev domain.DiscoveryEvent) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if s.limit > 0 && len(s.queue) >= s.limit {
		s.queue[0] = domain.DiscoveryEvent{}
		s.queue = s.queue[1:]
		s.dropped++
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	s.signal()
	return true
}

// Events returns the consumer side. It is closed after Close once the backlog is drained.
func (s *Stream) Events() <-chan domain.DiscoveryEvent {
	return s.out
}

// Close stops accepting events. Already queued events are still delivered.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.signal()
}

// Backlog returns the number of queued, undelivered events.
func (s *Stream) Backlog() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Dropped returns how many events were discarded because of the backlog limit.
func (s *Stream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// MaxBacklog returns the configured limit, 0 when unbounded.
func (s *Stream) MaxBacklog() int {
	if s.limit < 0 {
		return 0
	}
	return s.limit
}

func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Stream) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			<-s.wake
			continue
		}
		ev := s.queue[0]
		s.queue[0] = domain.DiscoveryEvent{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.out <- ev
	}
}
