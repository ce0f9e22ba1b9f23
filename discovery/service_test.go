package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/interfaces"
	"github.com/fk1blow/haplea/interfaces/mock"
	"github.com/fk1blow/haplea/service"

	"github.com/benbjohnson/clock"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNetwork struct {
	transport    *mock.TransportMock
	registration *mock.RegistrationMock
	feed         chan domain.Notification
}

func newFakeNetwork() *fakeNetwork {
	n := &fakeNetwork{
		registration: &mock.RegistrationMock{},
		feed:         make(chan domain.Notification, 16),
	}
	n.transport = &mock.TransportMock{
		RegisterFunc: func(ctx context.Context, record domain.ServiceRecord) (interfaces.Registration, error) {
			return n.registration, nil
		},
		SubscribeFunc: func(ctx context.Context, serviceType string) (<-chan domain.Notification, error) {
			return n.feed, nil
		},
	}
	return n
}

func serviceConfig() Config {
	return Config{
		InstanceName:        "haplea-1",
		Port:                4000,
		HealthCheckInterval: 30 * time.Second,
		ProbeTimeout:        time.Second,
	}
}

func hostnameOption() Options {
	return Options{Advertiser: []AdvertiserOption{WithHostname(func() (string, error) { return "host1", nil })}}
}

func TestService_DiscoverAndRemovePeer(t *testing.T) {
	network := newFakeNetwork()
	s := NewService(serviceConfig(), network.transport, &mock.ProberMock{}, log.NewNopLogger(), hostnameOption())
	require.NoError(t, s.Start(context.Background()))

	advertised := network.transport.RegisterCalls()
	require.Len(t, advertised, 1)
	assert.Equal(t, "haplea-1", advertised[0].Record.InstanceName)
	assert.Equal(t, 4000, advertised[0].Record.Port)
	assert.Equal(t, domain.DefaultServiceType, network.transport.SubscribeCalls()[0].ServiceType)

	network.feed <- domain.Resolved(record("haplea-2", "host2.local", 4001, "192.168.1.20"))
	ev := nextEvent(t, s.Events())
	assert.Equal(t, domain.EventPeerDiscovered, ev.Kind)

	peers := s.GetPeers()
	require.Len(t, peers, 1)
	assert.Equal(t, "haplea-2", peers[0].InstanceName)
	assert.Equal(t, "host2.local.", peers[0].Hostname)
	assert.Equal(t, 4001, peers[0].Port)

	got, ok := s.GetPeer("haplea-2")
	require.True(t, ok)
	assert.Equal(t, peers[0], got)
	assert.Equal(t, 1, s.PeerCount())

	network.feed <- domain.Removed("haplea-2")
	ev = nextEvent(t, s.Events())
	assert.Equal(t, domain.EventPeerRemoved, ev.Kind)
	assert.Empty(t, s.GetPeers())

	require.NoError(t, s.Close())
	assert.Len(t, network.registration.ShutdownCalls(), 1)
	assert.Empty(t, collect(t, s.Events()))
	require.NoError(t, s.Close())
}

func TestService_ReaperEvictsDeadPeer(t *testing.T) {
	network := newFakeNetwork()
	mockClock := clock.NewMock()
	prober := &mock.ProberMock{
		ProbeFunc: func(ctx context.Context, peer domain.PeerInfo) bool {
			return peer.InstanceName != "haplea-3"
		},
	}
	opts := hostnameOption()
	opts.Reaper = []ReaperOption{WithClock(mockClock)}
	s := NewService(serviceConfig(), network.transport, prober, log.NewNopLogger(), opts)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	network.feed <- domain.Resolved(record("haplea-2", "host2.local.", 4001))
	network.feed <- domain.Resolved(record("haplea-3", "host3.local.", 4002))
	nextEvent(t, s.Events())
	nextEvent(t, s.Events())

	assert.Eventually(t, func() bool {
		mockClock.Add(30 * time.Second)
		_, ok := s.GetPeer("haplea-3")
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	ev := nextEvent(t, s.Events())
	assert.Equal(t, domain.EventPeerRemoved, ev.Kind)
	assert.Equal(t, "haplea-3", ev.InstanceName)
	assert.Equal(t, domain.RemovalLiveness, ev.Reason)

	peers := s.GetPeers()
	require.Len(t, peers, 1)
	assert.Equal(t, "haplea-2", peers[0].InstanceName)
}

func TestService_ReaperEvictsDeadPeerWhileOthersResolve(t *testing.T) {
	network := newFakeNetwork()
	mockClock := clock.NewMock()
	halfway := make(chan struct{})
	prober := &mock.ProberMock{
		ProbeFunc: func(ctx context.Context, peer domain.PeerInfo) bool {
			if peer.InstanceName != "haplea-3" {
				return true
			}
			// keep the failing check open until the feed is busy
			select {
			case <-halfway:
			case <-ctx.Done():
			}
			return false
		},
	}
	opts := hostnameOption()
	opts.Reaper = []ReaperOption{WithClock(mockClock)}
	s := NewService(serviceConfig(), network.transport, prober, log.NewNopLogger(), opts)
	require.NoError(t, s.Start(context.Background()))

	var (
		mu     sync.Mutex
		events []domain.DiscoveryEvent
	)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for ev := range s.Events() {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}
	}()

	network.feed <- domain.Resolved(record("haplea-3", "host3.local.", 4002))
	require.Eventually(t, func() bool {
		_, ok := s.GetPeer("haplea-3")
		return ok
	}, 5*time.Second, time.Millisecond)

	others := make([]string, 0, 40)
	for i := 10; i < 50; i++ {
		others = append(others, fmt.Sprintf("haplea-%d", i))
	}
	fed := make(chan struct{})
	go func() {
		defer close(fed)
		for i, name := range others {
			if i == len(others)/2 {
				close(halfway)
			}
			network.feed <- domain.Resolved(record(name, fmt.Sprintf("host%d.local.", i+10), 5000+i))
		}
	}()

	assert.Eventually(t, func() bool {
		mockClock.Add(30 * time.Second)
		_, ok := s.GetPeer("haplea-3")
		return !ok
	}, 5*time.Second, time.Millisecond)
	<-fed

	require.Eventually(t, func() bool { return s.PeerCount() == len(others) }, 5*time.Second, time.Millisecond)
	for i := 0; i < 3; i++ {
		mockClock.Add(30 * time.Second)
	}

	names := make([]string, 0, len(others))
	for _, p := range s.GetPeers() {
		names = append(names, p.InstanceName)
	}
	assert.ElementsMatch(t, others, names)

	require.NoError(t, s.Close())
	<-consumed

	mu.Lock()
	defer mu.Unlock()
	removed := 0
	discovered := 0
	for _, ev := range events {
		switch ev.Kind {
		case domain.EventPeerDiscovered:
			discovered++
		case domain.EventPeerRemoved:
			require.Equal(t, "haplea-3", ev.InstanceName, "only the dead peer is removed")
			assert.Equal(t, domain.RemovalLiveness, ev.Reason)
			removed++
		}
	}
	assert.Equal(t, 1, removed)
	assert.Equal(t, len(others)+1, discovered)
}

func TestService_Start_Twice(t *testing.T) {
	network := newFakeNetwork()
	s := NewService(serviceConfig(), network.transport, &mock.ProberMock{}, log.NewNopLogger(), hostnameOption())
	require.NoError(t, s.Start(context.Background()))

	err := s.Start(context.Background())
	assert.True(t, service.IsNetworkError(err))
	assert.ErrorIs(t, err, errAlreadyStarted)
	assert.Len(t, network.transport.RegisterCalls(), 1)
	assert.Len(t, network.transport.SubscribeCalls(), 1)
	assert.Empty(t, network.registration.ShutdownCalls(), "the running announcement is kept")

	network.feed <- domain.Resolved(record("haplea-2", "host2.local.", 4001))
	ev := nextEvent(t, s.Events())
	assert.Equal(t, domain.EventPeerDiscovered, ev.Kind)

	require.NoError(t, s.Close())
	assert.Len(t, network.registration.ShutdownCalls(), 1)
}

func TestService_Start_AfterClose(t *testing.T) {
	network := newFakeNetwork()
	s := NewService(serviceConfig(), network.transport, &mock.ProberMock{}, log.NewNopLogger(), hostnameOption())
	require.NoError(t, s.Close())

	err := s.Start(context.Background())
	assert.True(t, service.IsNetworkError(err))
	assert.ErrorIs(t, err, errServiceClosed)
	assert.Empty(t, network.transport.RegisterCalls())
}

func TestService_Start_AdvertiseFailure(t *testing.T) {
	network := newFakeNetwork()
	network.transport.RegisterFunc = func(ctx context.Context, record domain.ServiceRecord) (interfaces.Registration, error) {
		return nil, errors.New("bind: address already in use")
	}
	s := NewService(serviceConfig(), network.transport, &mock.ProberMock{}, log.NewNopLogger(), hostnameOption())

	err := s.Start(context.Background())
	assert.True(t, service.IsNetworkError(err))
	assert.Empty(t, network.transport.SubscribeCalls())
	require.NoError(t, s.Close())
}

func TestService_Start_BrowseFailureWithdrawsAnnouncement(t *testing.T) {
	network := newFakeNetwork()
	network.transport.SubscribeFunc = func(ctx context.Context, serviceType string) (<-chan domain.Notification, error) {
		return nil, errors.New("no multicast interface")
	}
	s := NewService(serviceConfig(), network.transport, &mock.ProberMock{}, log.NewNopLogger(), hostnameOption())

	err := s.Start(context.Background())
	assert.True(t, service.IsNetworkError(err))
	assert.Len(t, network.registration.ShutdownCalls(), 1)
	require.NoError(t, s.Close())
}

func TestNewService_RequiresInstanceName(t *testing.T) {
	assert.PanicsWithValue(t, "discovery.service.go: instance name is required", func() {
		NewService(Config{}, newFakeNetwork().transport, &mock.ProberMock{}, log.NewNopLogger(), Options{})
	})
}
