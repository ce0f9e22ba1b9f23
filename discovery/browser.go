package discovery

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/helpers"
	"github.com/fk1blow/haplea/interfaces"
	"github.com/fk1blow/haplea/registry"
	"github.com/fk1blow/haplea/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/miekg/dns"
)

var (
	errAlreadyBrowsing = errors.New("browser already started")
	errEmptyHostname   = errors.New("hostname is empty")
)

// Browser turns the transport feed into registry updates and discovery events.
// For every notification the registry is updated before the event is published.
type Browser struct {
	transport   interfaces.Transport
	registry    *registry.Registry
	stream      *Stream
	serviceType string
	self        string
	now         func() time.Time
	logger      log.Logger

	started atomic.Bool
	done    chan struct{}
}

// NewBrowser creates a browser for serviceType. Notifications about self are ignored.
func NewBrowser(transport interfaces.Transport, reg *registry.Registry, stream *Stream, serviceType, self string, logger log.Logger) *Browser {
	return &Browser{
		transport:   helpers.NilPanic(transport, "discovery.browser.go: transport is required"),
		registry:    helpers.NilPanic(reg, "discovery.browser.go: registry is required"),
		stream:      helpers.NilPanic(stream, "discovery.browser.go: stream is required"),
		serviceType: helpers.StrPanic(serviceType, "discovery.browser.go: service type is required"),
		self:        self,
		now:         time.Now,
		logger:      log.With(helpers.NilPanic(logger, "discovery.browser.go: logger is required"), "component", "browser"),
		done:        make(chan struct{}),
	}
}

// Browse subscribes to the transport and starts consuming its feed until ctx is done.
// Returns the event stream, or network when the subscription fails.
func (b *Browser) Browse(ctx context.Context) (<-chan domain.DiscoveryEvent, error) {
	if !b.started.CompareAndSwap(false, true) {
		return nil, service.NewNetworkError("mDNS subscription failed", errAlreadyBrowsing)
	}

	feed, err := b.transport.Subscribe(ctx, b.serviceType)
	if err != nil {
		b.started.Store(false)
		return nil, service.NewNetworkError("mDNS subscription failed", err)
	}

	level.Info(b.logger).Log("msg", "browsing", "service", b.serviceType)
	go b.consume(ctx, feed)
	return b.stream.Events(), nil
}

// Wait blocks until the consume loop has stopped. It returns immediately if Browse never succeeded.
func (b *Browser) Wait() {
	if !b.started.Load() {
		return
	}
	<-b.done
}

func (b *Browser) consume(ctx context.Context, feed <-chan domain.Notification) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-feed:
			if !ok {
				if ctx.Err() == nil {
					level.Warn(b.logger).Log("msg", "discovery feed closed, no further peers will be discovered")
					b.stream.Publish(domain.FeedClosed(b.now()))
				}
				return
			}
			b.handle(n)
		}
	}
}

func (b *Browser) handle(n domain.Notification) {
	switch n.Kind {
	case domain.NotificationResolved:
		peer, err := peerFromRecord(n.Record, b.now())
		if err != nil {
			level.Debug(b.logger).Log("msg", "skipping unusable record", "instance", n.Record.InstanceName, "err", err)
			return
		}
		if peer.InstanceName == b.self {
			return
		}
		b.registry.Upsert(peer)
		level.Debug(b.logger).Log("msg", "record resolved", "instance", peer.InstanceName, "host", peer.Hostname, "port", peer.Port)
		b.stream.Publish(domain.PeerDiscovered(peer, peer.ResolvedAt))

	case domain.NotificationRemoved:
		if n.InstanceName == "" || n.InstanceName == b.self {
			return
		}
		b.registry.Remove(n.InstanceName)
		level.Debug(b.logger).Log("msg", "record removed", "instance", n.InstanceName, "reason", domain.RemovalTransport)
		b.stream.Publish(domain.PeerRemoved(n.InstanceName, domain.RemovalTransport, b.now()))

	default:
		level.Debug(b.logger).Log("msg", "ignoring notification", "kind", n.Kind)
	}
}

// peerFromRecord converts a resolved record; the hostname always comes out fully qualified.
func peerFromRecord(record domain.ServiceRecord, resolvedAt time.Time) (domain.PeerInfo, error) {
	host := strings.TrimSpace(record.Hostname)
	if host == "" {
		return domain.PeerInfo{}, errEmptyHostname
	}
	record.Hostname = dns.Fqdn(host)
	if err := record.Validate(); err != nil {
		return domain.PeerInfo{}, err
	}

	return domain.PeerInfo{
		InstanceName: record.InstanceName,
		Hostname:     record.Hostname,
		Port:         record.Port,
		Addresses:    domain.NormalizeAddresses(record.Addresses),
		Txt:          domain.ParseTxt(record.Txt),
		ResolvedAt:   resolvedAt,
	}, nil
}
