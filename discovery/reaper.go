package discovery

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/helpers"
	"github.com/fk1blow/haplea/interfaces"
	"github.com/fk1blow/haplea/registry"

	"github.com/benbjohnson/clock"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHealthCheckInterval = 30 * time.Second
	DefaultProbeTimeout        = 5 * time.Second
)

// ProbeObserver receives the duration and outcome of every probe.
type ProbeObserver func(d time.Duration, alive bool)

// Reaper periodically probes every known peer and evicts the ones that fail.
type Reaper struct {
	registry     *registry.Registry
	prober       interfaces.Prober
	stream       *Stream
	interval     time.Duration
	probeTimeout time.Duration
	clock        clock.Clock
	observe      ProbeObserver
	logger       log.Logger

	started atomic.Bool
	done    chan struct{}
}

// ReaperOption customizes a Reaper.
type ReaperOption func(r *Reaper)

// WithClock replaces the wall clock driving the ticker.
func WithClock(c clock.Clock) ReaperOption {
	return func(r *Reaper) {
		r.clock = c
	}
}

// WithProbeObserver registers a callback invoked after each probe.
func WithProbeObserver(observe ProbeObserver) ReaperOption {
	return func(r *Reaper) {
		r.observe = observe
	}
}

// NewReaper creates a reaper. Non-positive interval or probeTimeout fall back to the defaults.
// stream may be nil, in which case evictions are not announced.
func NewReaper(reg *registry.Registry, prober interfaces.Prober, stream *Stream, interval, probeTimeout time.Duration, logger log.Logger, opts ...ReaperOption) *Reaper {
	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	r := &Reaper{
		registry:     helpers.NilPanic(reg, "discovery.reaper.go: registry is required"),
		prober:       helpers.NilPanic(prober, "discovery.reaper.go: prober is required"),
		stream:       stream,
		interval:     interval,
		probeTimeout: probeTimeout,
		clock:        clock.New(),
		observe:      func(time.Duration, bool) {},
		logger:       log.With(helpers.NilPanic(logger, "discovery.reaper.go: logger is required"), "component", "reaper"),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartHealthCheck runs a cycle every interval until ctx is done. The first cycle runs
// one interval after start. Calling it more than once has no effect.
func (r *Reaper) StartHealthCheck(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.loop(ctx)
}

// Wait blocks until the loop started by StartHealthCheck has returned.
func (r *Reaper) Wait() {
	if !r.started.Load() {
		return
	}
	<-r.done
}

func (r *Reaper) loop(ctx context.Context) {
	defer close(r.done)

	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()

	level.Info(r.logger).Log("msg", "health check started", "interval", r.interval, "probe_timeout", r.probeTimeout)
	for {
		select {
		case <-ctx.Done():
			level.Info(r.logger).Log("msg", "health check stopped")
			return
		case <-ticker.C:
			if evicted := r.RunCycle(ctx); evicted > 0 {
				level.Info(r.logger).Log("msg", "health check cycle finished", "evicted", evicted, "remaining", r.registry.Len())
			}
		}
	}
}

// RunCycle probes a snapshot of the registry concurrently and evicts peers that fail.
// A peer re-resolved while its probe was running is kept. Returns the number of evictions.
func (r *Reaper) RunCycle(ctx context.Context) int {
	peers := r.registry.Snapshot()
	if len(peers) == 0 {
		return 0
	}

	var evicted atomic.Int32
	var g errgroup.Group
	for _, peer := range peers {
		peer := peer
		g.Go(func() error {
			if r.probe(ctx, peer) {
				return nil
			}
			// shutting down, a cancelled probe says nothing about the peer
			if ctx.Err() != nil {
				return nil
			}
			if r.evict(peer) {
				evicted.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(evicted.Load())
}

func (r *Reaper) probe(ctx context.Context, peer domain.PeerInfo) bool {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	start := r.clock.Now()
	alive := r.prober.Probe(probeCtx, peer)
	if probeCtx.Err() != nil {
		alive = false
	}
	r.observe(r.clock.Since(start), alive)
	return alive
}

func (r *Reaper) evict(peer domain.PeerInfo) bool {
	removed := r.registry.RemoveIf(peer.InstanceName, func(current domain.PeerInfo) bool {
		return current.ResolvedAt.Equal(peer.ResolvedAt)
	})
	if !removed {
		return false
	}

	level.Info(r.logger).Log("msg", "peer evicted", "instance", peer.InstanceName, "reason", domain.RemovalLiveness)
	if r.stream != nil {
		r.stream.Publish(domain.PeerRemoved(peer.InstanceName, domain.RemovalLiveness, r.clock.Now()))
	}
	return true
}
