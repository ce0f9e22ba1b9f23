package metrics

import (
	"context"
	"time"

	"github.com/fk1blow/haplea/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "haplea"

// Metrics holds the discovery collectors. It is an interfaces.EventSink.
type Metrics struct {
	events        *prometheus.CounterVec
	evictions     prometheus.Counter
	probeDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. peers and backlog are sampled on scrape.
func New(reg prometheus.Registerer, peers func() int, backlog func() int) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_events_total",
			Help:      "Discovery events delivered, by kind.",
		}, []string{"kind"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Peers removed because they failed a liveness probe.",
		}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Duration of liveness probes.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 11),
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.events,
		m.evictions,
		m.probeDuration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers",
			Help:      "Known peers.",
		}, func() float64 { return float64(peers()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_backlog",
			Help:      "Discovery events queued and not yet consumed.",
		}, func() float64 { return float64(backlog()) }),
	)
	return m
}

func (m *Metrics) HandleEvent(_ context.Context, ev domain.DiscoveryEvent) error {
	m.events.WithLabelValues(string(ev.Kind)).Inc()
	if ev.Kind == domain.EventPeerRemoved && ev.Reason == domain.RemovalLiveness {
		m.evictions.Inc()
	}
	return nil
}

// ObserveProbe records one probe. It matches discovery.ProbeObserver.
func (m *Metrics) ObserveProbe(d time.Duration, alive bool) {
	result := "dead"
	if alive {
		result = "alive"
	}
	m.probeDuration.WithLabelValues(result).Observe(d.Seconds())
}
