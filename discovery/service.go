package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/helpers"
	"github.com/fk1blow/haplea/interfaces"
	"github.com/fk1blow/haplea/registry"
	"github.com/fk1blow/haplea/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/multierr"
)

var (
	errAlreadyStarted = errors.New("discovery already started")
	errServiceClosed  = errors.New("discovery is closed")
)

// Config configures a discovery Service.
type Config struct {
	InstanceName        string
	Port                int
	ServiceType         string
	Domain              string
	Txt                 map[string]string
	HealthCheckInterval time.Duration
	ProbeTimeout        time.Duration
	EventBacklogLimit   int
}

// Service wires the advertiser, browser, reaper and event stream around one registry.
type Service struct {
	config     Config
	registry   *registry.Registry
	stream     *Stream
	advertiser *Advertiser
	browser    *Browser
	reaper     *Reaper
	logger     log.Logger

	// mu is held for the whole of Start so that Close waits for a Start in progress.
	mu        sync.Mutex
	cancel    context.CancelFunc
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Options carries optional collaborators for NewService.
type Options struct {
	Advertiser []AdvertiserOption
	Reaper     []ReaperOption
}

// NewService creates a stopped discovery service.
func NewService(config Config, transport interfaces.Transport, prober interfaces.Prober, logger log.Logger, opts Options) *Service {
	helpers.StrPanic(config.InstanceName, "discovery.service.go: instance name is required")
	if config.ServiceType == "" {
		config.ServiceType = domain.DefaultServiceType
	}
	if config.Domain == "" {
		config.Domain = domain.DefaultDomain
	}
	logger = helpers.NilPanic(logger, "discovery.service.go: logger is required")

	reg := registry.New()
	stream := NewStream(config.EventBacklogLimit)
	advertiserOpts := append([]AdvertiserOption{WithTxt(config.Txt)}, opts.Advertiser...)

	return &Service{
		config:     config,
		registry:   reg,
		stream:     stream,
		advertiser: NewAdvertiser(transport, config.ServiceType, config.Domain, logger, advertiserOpts...),
		browser:    NewBrowser(transport, reg, stream, config.ServiceType, config.InstanceName, logger),
		reaper:     NewReaper(reg, prober, stream, config.HealthCheckInterval, config.ProbeTimeout, logger, opts.Reaper...),
		logger:     log.With(logger, "component", "discovery"),
	}
}

// Start advertises the local instance, then starts browsing and health checking.
// Nothing is left running when it returns an error. Only the first successful call starts the
// service; later calls return a network error and leave it untouched.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return service.NewNetworkError("discovery start failed", errServiceClosed)
	}
	if s.cancel != nil {
		return service.NewNetworkError("discovery start failed", errAlreadyStarted)
	}

	ctx, cancel := context.WithCancel(ctx)

	if err := s.advertiser.Advertise(ctx, s.config.InstanceName, s.config.Port); err != nil {
		cancel()
		return fmt.Errorf("advertise %q failed, err: %w", s.config.InstanceName, err)
	}
	if _, err := s.browser.Browse(ctx); err != nil {
		cancel()
		return multierr.Append(fmt.Errorf("browse %q failed, err: %w", s.config.ServiceType, err), s.advertiser.Close())
	}
	s.reaper.StartHealthCheck(ctx)
	s.cancel = cancel

	level.Info(s.logger).Log("msg", "discovery started", "instance", s.config.InstanceName, "port", s.config.Port)
	return nil
}

// GetPeers returns a sorted snapshot of the known peers.
func (s *Service) GetPeers() []domain.PeerInfo {
	return s.registry.Snapshot()
}

// GetPeer returns one known peer.
func (s *Service) GetPeer(instanceName string) (domain.PeerInfo, bool) {
	return s.registry.Get(instanceName)
}

// Registry exposes the peer registry as a read-only directory.
func (s *Service) Registry() interfaces.PeerDirectory {
	return s.registry
}

// Events returns the discovery event channel. It has a single consumer and is closed by Close.
func (s *Service) Events() <-chan domain.DiscoveryEvent {
	return s.stream.Events()
}

// PeerCount returns the number of known peers.
func (s *Service) PeerCount() int {
	return s.registry.Len()
}

// Backlog returns the number of undelivered events.
func (s *Service) Backlog() int {
	return s.stream.Backlog()
}

// Close stops browsing and health checking, withdraws the announcement and closes the event channel
// after the queued events.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}

		s.browser.Wait()
		s.reaper.Wait()
		s.closeErr = s.advertiser.Close()
		s.stream.Close()

		level.Info(s.logger).Log("msg", "discovery stopped")
	})
	return s.closeErr
}
