package discovery

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/helpers"
	"github.com/fk1blow/haplea/interfaces"
	"github.com/fk1blow/haplea/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/miekg/dns"
)

// NormalizeHostname turns a machine hostname into the FQDN announced in SRV records:
// "myhost" and "myhost.local" both become "myhost.local.".
func NormalizeHostname(host, mdnsDomain string) string {
	suffix := "." + strings.Trim(mdnsDomain, ".")
	h := strings.TrimSuffix(strings.TrimSpace(host), ".")
	if strings.HasSuffix(strings.ToLower(h), strings.ToLower(suffix)) {
		h = h[:len(h)-len(suffix)]
	}
	if h == "" {
		h = "localhost"
	}
	return dns.Fqdn(h + suffix)
}

// Advertiser announces the local instance over mDNS.
type Advertiser struct {
	transport   interfaces.Transport
	serviceType string
	domain      string
	txt         map[string]string
	hostname    func() (string, error)
	logger      log.Logger

	mu           sync.Mutex
	registration interfaces.Registration
}

// AdvertiserOption customizes an Advertiser.
type AdvertiserOption func(a *Advertiser)

// WithHostname replaces os.Hostname as the source of the announced host.
func WithHostname(hostname func() (string, error)) AdvertiserOption {
	return func(a *Advertiser) {
		a.hostname = hostname
	}
}

// WithTxt adds TXT key/value pairs to the announcement.
func WithTxt(txt map[string]string) AdvertiserOption {
	return func(a *Advertiser) {
		for k, v := range txt {
			a.txt[k] = v
		}
	}
}

// NewAdvertiser creates an advertiser for serviceType in mdnsDomain.
func NewAdvertiser(transport interfaces.Transport, serviceType, mdnsDomain string, logger log.Logger, opts ...AdvertiserOption) *Advertiser {
	a := &Advertiser{
		transport:   helpers.NilPanic(transport, "discovery.advertiser.go: transport is required"),
		serviceType: helpers.StrPanic(serviceType, "discovery.advertiser.go: service type is required"),
		domain:      helpers.StrPanic(mdnsDomain, "discovery.advertiser.go: domain is required"),
		txt:         map[string]string{},
		hostname:    os.Hostname,
		logger:      log.With(helpers.NilPanic(logger, "discovery.advertiser.go: logger is required"), "component", "advertiser"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Advertise registers instanceName on port. The announcement lives until Close.
// Calling it again replaces the previous announcement.
// Returns:
// 1) nil on success;
// 2) io when the local hostname cannot be read;
// 3) network when the record is invalid or the responder cannot be started.
func (a *Advertiser) Advertise(ctx context.Context, instanceName string, port int) error {
	host, err := a.hostname()
	if err != nil {
		return service.NewIoError("failed to read local hostname", err)
	}

	record := domain.ServiceRecord{
		InstanceName: instanceName,
		ServiceType:  a.serviceType,
		Domain:       a.domain,
		Hostname:     NormalizeHostname(host, a.domain),
		Port:         port,
		Txt:          domain.FormatTxt(a.txt),
	}
	if err := record.Validate(); err != nil {
		return service.NewNetworkError("invalid service record", err)
	}

	registration, err := a.transport.Register(ctx, record)
	if err != nil {
		return service.NewNetworkError("mDNS registration failed", err)
	}

	a.mu.Lock()
	previous := a.registration
	a.registration = registration
	a.mu.Unlock()

	if previous != nil {
		if err := previous.Shutdown(); err != nil {
			level.Warn(a.logger).Log("msg", "failed to shut down previous announcement", "err", err)
		}
	}

	level.Info(a.logger).Log(
		"msg", "advertising instance",
		"instance", instanceName,
		"service", a.serviceType,
		"host", record.Hostname,
		"port", port,
	)
	return nil
}

// Close withdraws the announcement, if any.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	registration := a.registration
	a.registration = nil
	a.mu.Unlock()

	if registration == nil {
		return nil
	}
	if err := registration.Shutdown(); err != nil {
		return service.NewNetworkError("mDNS shutdown failed", err)
	}
	return nil
}
