package myredis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/interfaces/mock"
	"github.com/fk1blow/haplea/service"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMirror_HandleEvent(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	cache := NewCache[domain.PeerInfo](client, PeerPrefix, MarshalPeer, UnmarshalPeer)
	mirror := NewEventMirror(client, cache, EventsChannel, 30*time.Second, log.NewNopLogger())

	sub := client.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	messages := sub.Channel()

	peer := testPeer("haplea-2", 4001)
	require.NoError(t, mirror.HandleEvent(ctx, domain.PeerDiscovered(peer, peer.ResolvedAt)))
	assert.True(t, mr.Exists("haplea:peer:haplea-2"))
	assert.Equal(t, 30*time.Second, mr.TTL("haplea:peer:haplea-2"))

	select {
	case msg := <-messages:
		var got eventRecord
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "peer_discovered", got.Kind)
		assert.Equal(t, "haplea-2", got.InstanceName)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no message published")
	}

	require.NoError(t, mirror.HandleEvent(ctx, domain.PeerRemoved("haplea-2", domain.RemovalTransport, time.Now())))
	assert.False(t, mr.Exists("haplea:peer:haplea-2"))

	select {
	case msg := <-messages:
		assert.Contains(t, msg.Payload, `"reason":"transport"`)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no message published")
	}
}

func TestEventMirror_HandleEvent_FeedClosedIsOnlyPublished(t *testing.T) {
	cache := &mock.CacheMock[domain.PeerInfo]{}
	_, client := setupTestRedis(t)
	mirror := NewEventMirror(client, cache, EventsChannel, 0, log.NewNopLogger())

	require.NoError(t, mirror.HandleEvent(context.Background(), domain.FeedClosed(time.Now())))
	assert.Empty(t, cache.WriteValueCalls())
	assert.Empty(t, cache.DeleteValueCalls())
	assert.Equal(t, DefaultPeerTTL, mirror.ttl)
}

func TestEventMirror_HandleEvent_Errors(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := &mock.CacheMock[domain.PeerInfo]{
		WriteValueFunc: func(ctx context.Context, key string, item domain.PeerInfo, ttlMs int) error {
			return service.NewInternalServerError("Redis write key error", errors.New("OOM"))
		},
	}
	mirror := NewEventMirror(client, cache, EventsChannel, time.Minute, log.NewNopLogger())

	err := mirror.HandleEvent(context.Background(), domain.PeerDiscovered(testPeer("a", 1), time.Now()))
	assert.True(t, service.IsInternalServerError(err))

	require.NoError(t, client.Close())
	err = NewEventMirror(client, &mock.CacheMock[domain.PeerInfo]{}, EventsChannel, time.Minute, log.NewNopLogger()).
		HandleEvent(context.Background(), domain.FeedClosed(time.Now()))
	assert.True(t, service.IsInternalServerError(err))
}

func TestEventMirror_Refresh(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	cache := NewCache[domain.PeerInfo](client, PeerPrefix, MarshalPeer, UnmarshalPeer)
	mirror := NewEventMirror(client, cache, EventsChannel, 30*time.Second, log.NewNopLogger())

	peers := []domain.PeerInfo{testPeer("a", 4001), testPeer("b", 4002)}
	for _, peer := range peers {
		require.NoError(t, mirror.HandleEvent(ctx, domain.PeerDiscovered(peer, peer.ResolvedAt)))
	}
	mr.FastForward(20 * time.Second)
	require.NoError(t, mirror.Refresh(ctx, peers[:1]))
	assert.Equal(t, 30*time.Second, mr.TTL("haplea:peer:a"))
	mr.FastForward(20 * time.Second)

	assert.True(t, mr.Exists("haplea:peer:a"))
	assert.False(t, mr.Exists("haplea:peer:b"))
}

func TestEventMirror_Refresh_RemovedPeerStaysRemoved(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	cache := NewCache[domain.PeerInfo](client, PeerPrefix, MarshalPeer, UnmarshalPeer)
	mirror := NewEventMirror(client, cache, EventsChannel, 30*time.Second, log.NewNopLogger())

	peer := testPeer("haplea-3", 4002)
	require.NoError(t, mirror.HandleEvent(ctx, domain.PeerDiscovered(peer, peer.ResolvedAt)))
	require.True(t, mr.Exists("haplea:peer:haplea-3"))

	// the refresh loop took its snapshot before the peer went away
	snapshot := []domain.PeerInfo{peer}
	require.NoError(t, mirror.HandleEvent(ctx, domain.PeerRemoved("haplea-3", domain.RemovalLiveness, time.Now())))
	require.NoError(t, mirror.Refresh(ctx, snapshot))

	assert.False(t, mr.Exists("haplea:peer:haplea-3"))
	assert.Empty(t, mr.Keys())
}

func TestEventMirror_Refresh_Errors(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := &mock.CacheMock[domain.PeerInfo]{
		RefreshValueFunc: func(ctx context.Context, key string, item domain.PeerInfo, ttlMs int) (bool, error) {
			if key == "a" {
				return false, service.NewInternalServerError("Redis refresh key error", errors.New("OOM"))
			}
			return true, nil
		},
	}
	mirror := NewEventMirror(client, cache, EventsChannel, time.Minute, log.NewNopLogger())

	err := mirror.Refresh(context.Background(), []domain.PeerInfo{testPeer("a", 4001), testPeer("b", 4002)})
	assert.True(t, service.IsInternalServerError(err))
	require.Len(t, cache.RefreshValueCalls(), 2, "a failed refresh does not stop the others")
	assert.Equal(t, 60000, cache.RefreshValueCalls()[1].TtlMs)
	assert.Empty(t, cache.WriteValueCalls())
}

func TestEventMirror_RunRefresh(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := &mock.CacheMock[domain.PeerInfo]{}
	directory := &mock.PeerDirectoryMock{
		SnapshotFunc: func() []domain.PeerInfo { return []domain.PeerInfo{testPeer("a", 4001)} },
	}
	mirror := NewEventMirror(client, cache, EventsChannel, 30*time.Millisecond, log.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		mirror.RunRefresh(ctx, directory)
	}()

	assert.Eventually(t, func() bool { return len(cache.RefreshValueCalls()) >= 2 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, "a", cache.RefreshValueCalls()[0].Key)
}

func TestEventMirror_Reset(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	cache := NewCache[domain.PeerInfo](client, PeerPrefix, MarshalPeer, UnmarshalPeer)
	mirror := NewEventMirror(client, cache, EventsChannel, time.Minute, log.NewNopLogger())

	require.NoError(t, mirror.Reset(ctx), "empty mirror")

	require.NoError(t, cache.WriteValue(ctx, "a", testPeer("a", 4001), 60000))
	require.NoError(t, cache.WriteValue(ctx, "b", testPeer("b", 4002), 60000))
	require.NoError(t, mirror.Reset(ctx))
	assert.Empty(t, mr.Keys())
}
