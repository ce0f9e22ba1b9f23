package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/helpers"
	"github.com/fk1blow/haplea/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultSubscriberBuffer is how many events a websocket client may lag behind before it is dropped.
	DefaultSubscriberBuffer = 64

	writeTimeout = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

var errHubClosed = errors.New("event hub is closed")

// EventHub fans discovery events out to websocket subscribers.
// A subscriber whose buffer is full is disconnected; HandleEvent never blocks on a client.
type EventHub struct {
	buffer   int
	upgrader websocket.Upgrader
	logger   log.Logger

	mu     sync.Mutex
	subs   map[uuid.UUID]*subscriber
	closed bool
}

type subscriber struct {
	id       uuid.UUID
	messages chan EventMessage
	done     chan struct{}
	once     sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// NewEventHub creates an empty hub. buffer <= 0 uses DefaultSubscriberBuffer.
func NewEventHub(buffer int, logger log.Logger) *EventHub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &EventHub{
		buffer: buffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.With(helpers.NilPanic(logger, "handlers.events.go: logger is required"), "component", "EventHub"),
		subs:   make(map[uuid.UUID]*subscriber),
	}
}

// HandleEvent delivers ev to every subscriber.
func (h *EventHub) HandleEvent(_ context.Context, ev domain.DiscoveryEvent) error {
	msg := toEventMessage(ev)

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		select {
		case sub.messages <- msg:
		default:
			delete(h.subs, id)
			sub.stop()
			level.Warn(h.logger).Log("msg", "dropping slow subscriber", "subscriber", id)
		}
	}
	return nil
}

// Subscribers returns the number of connected subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.stop()
	}
}

func (h *EventHub) subscribe() (*subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errHubClosed
	}
	sub := &subscriber{
		id:       uuid.New(),
		messages: make(chan EventMessage, h.buffer),
		done:     make(chan struct{}),
	}
	h.subs[sub.id] = sub
	return sub, nil
}

func (h *EventHub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub.id)
	sub.stop()
}

// serve upgrades the request and streams events until the client leaves, the
// subscriber is dropped or the hub closes.
func (h *EventHub) serve(w http.ResponseWriter, r *http.Request) error {
	sub, err := h.subscribe()
	if err != nil {
		return service.NewNetworkError("event stream is unavailable", err)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.unsubscribe(sub)
		// the upgrader has already answered the client
		level.Debug(h.logger).Log("msg", "websocket upgrade failed", "err", err)
		return nil
	}
	defer conn.Close()
	defer h.unsubscribe(sub)

	logger := log.With(h.logger, "subscriber", sub.id)
	level.Debug(logger).Log("msg", "subscriber connected", "remote", r.RemoteAddr)

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg := <-sub.messages:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				level.Debug(logger).Log("msg", "write failed", "err", err)
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return nil
			}
		case <-sub.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription ended"),
				time.Now().Add(writeTimeout))
			level.Debug(logger).Log("msg", "subscriber disconnected by hub")
			return nil
		case <-gone:
			level.Debug(logger).Log("msg", "subscriber left")
			return nil
		}
	}
}
