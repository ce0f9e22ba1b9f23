package mymdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/mdns"
)

var errNoAddresses = errors.New("no usable local address to announce")

// Transport implements interfaces.Transport on top of hashicorp/mdns.
type Transport struct {
	config   Config
	logger   log.Logger
	query    func(params *mdns.QueryParam) error
	localIPs func(disableIPv6 bool) ([]net.IP, error)
}

// NewTransport creates an mDNS transport. Zero config fields take the defaults.
func NewTransport(config Config, logger log.Logger) *Transport {
	return &Transport{
		config:   config.withDefaults(),
		logger:   log.With(logger, "component", "mdns"),
		query:    mdns.Query,
		localIPs: localIPs,
	}
}

// Register starts an mDNS responder answering for record.
func (t *Transport) Register(ctx context.Context, record domain.ServiceRecord) (interfaces.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ips := record.Addresses
	if len(ips) == 0 {
		var err error
		ips, err = t.localIPs(t.config.DisableIPv6)
		if err != nil {
			return nil, fmt.Errorf("list local addresses failed, err: %w", err)
		}
		if len(ips) == 0 {
			return nil, errNoAddresses
		}
	}

	zone, err := mdns.NewMDNSService(record.InstanceName, record.ServiceType, record.Domain, record.Hostname, record.Port, ips, record.Txt)
	if err != nil {
		return nil, fmt.Errorf("build mdns service record failed, err: %w", err)
	}

	serverConfig := &mdns.Config{Zone: zone}
	iface, err := t.iface()
	if err != nil {
		return nil, err
	}
	serverConfig.Iface = iface

	server, err := mdns.NewServer(serverConfig)
	if err != nil {
		return nil, fmt.Errorf("start mdns responder failed, err: %w", err)
	}

	level.Debug(t.logger).Log("msg", "responder started", "instance", record.InstanceName, "host", record.Hostname, "port", record.Port, "ips", fmt.Sprint(ips))
	return &registration{server: server}, nil
}

// Subscribe runs browse queries every QueryInterval until ctx is done.
func (t *Transport) Subscribe(ctx context.Context, serviceType string) (<-chan domain.Notification, error) {
	if serviceType == "" {
		return nil, errors.New("service type is empty")
	}
	iface, err := t.iface()
	if err != nil {
		return nil, err
	}

	feed := make(chan domain.Notification, 16)
	go t.browseLoop(ctx, serviceType, iface, feed)
	return feed, nil
}

func (t *Transport) browseLoop(ctx context.Context, serviceType string, iface *net.Interface, feed chan<- domain.Notification) {
	defer close(feed)

	tr := newTracker(serviceType, domain.DefaultDomain, t.config.MissedQueries)
	ticker := time.NewTicker(t.config.QueryInterval)
	defer ticker.Stop()

	failures := 0
	for {
		entries, err := t.runQuery(serviceType, iface)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			failures++
			level.Warn(t.logger).Log("msg", "mdns query failed", "service", serviceType, "failures", failures, "err", err)
			if t.config.MaxQueryFailures > 0 && failures >= t.config.MaxQueryFailures {
				level.Error(t.logger).Log("msg", "giving up browsing", "service", serviceType)
				return
			}
		default:
			failures = 0
			for _, n := range tr.observe(entries) {
				select {
				case feed <- n:
				case <-ctx.Done():
					return
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *Transport) runQuery(serviceType string, iface *net.Interface) ([]*mdns.ServiceEntry, error) {
	entries := make(chan *mdns.ServiceEntry, 32)
	var collected []*mdns.ServiceEntry
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			collected = append(collected, entry)
		}
	}()

	err := t.query(&mdns.QueryParam{
		Service:             serviceType,
		Domain:              strings.TrimSuffix(domain.DefaultDomain, "."),
		Timeout:             t.config.QueryTimeout,
		Interface:           iface,
		Entries:             entries,
		DisableIPv6:         t.config.DisableIPv6,
		WantUnicastResponse: true,
	})
	close(entries)
	<-done
	return collected, err
}

func (t *Transport) iface() (*net.Interface, error) {
	if t.config.Interface == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(t.config.Interface)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %q failed, err: %w", t.config.Interface, err)
	}
	return iface, nil
}

type registration struct {
	server *mdns.Server
}

func (r *registration) Shutdown() error {
	return r.server.Shutdown()
}
