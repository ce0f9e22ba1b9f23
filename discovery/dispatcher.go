package discovery

import (
	"context"
	"time"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/helpers"
	"github.com/fk1blow/haplea/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const defaultSinkTimeout = 5 * time.Second

// Dispatcher is the single consumer of the event stream, it hands every event to each sink in order.
type Dispatcher struct {
	sinks   []interfaces.EventSink
	timeout time.Duration
	logger  log.Logger
}

// NewDispatcher creates a dispatcher over sinks.
func NewDispatcher(logger log.Logger, sinks ...interfaces.EventSink) *Dispatcher {
	for _, sink := range sinks {
		helpers.NilPanic(sink, "discovery.dispatcher.go: sink is required")
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: defaultSinkTimeout,
		logger:  log.With(helpers.NilPanic(logger, "discovery.dispatcher.go: logger is required"), "component", "dispatcher"),
	}
}

// Run delivers events until the channel is closed. Sink calls outlive ctx cancellation
// so the events queued before shutdown still reach every sink.
func (d *Dispatcher) Run(ctx context.Context, events <-chan domain.DiscoveryEvent) {
	base := context.WithoutCancel(ctx)
	for ev := range events {
		for _, sink := range d.sinks {
			sinkCtx, cancel := context.WithTimeout(base, d.timeout)
			if err := sink.HandleEvent(sinkCtx, ev); err != nil {
				level.Warn(d.logger).Log("msg", "event sink failed", "event", ev.Kind, "instance", ev.InstanceName, "err", err)
			}
			cancel()
		}
	}
}

// LogSink writes every event to the logger.
type LogSink struct {
	logger log.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{logger: log.With(helpers.NilPanic(logger, "discovery.dispatcher.go: logger is required"), "component", "events")}
}

func (s *LogSink) HandleEvent(_ context.Context, ev domain.DiscoveryEvent) error {
	switch ev.Kind {
	case domain.EventPeerDiscovered:
		return level.Info(s.logger).Log("msg", "peer discovered", "instance", ev.InstanceName, "host", ev.Peer.Hostname, "port", ev.Peer.Port)
	case domain.EventPeerRemoved:
		return level.Info(s.logger).Log("msg", "peer removed", "instance", ev.InstanceName, "reason", ev.Reason)
	case domain.EventFeedClosed:
		return level.Warn(s.logger).Log("msg", "discovery feed closed")
	default:
		return nil
	}
}
