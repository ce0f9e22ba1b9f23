package myredis

import (
	"context"
	"fmt"
	"time"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/helpers"
	"github.com/fk1blow/haplea/interfaces"
	"github.com/fk1blow/haplea/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
	"go.uber.org/multierr"
)

// EventMirror keeps a copy of the registry in Redis and republishes discovery events on a channel.
// It is an interfaces.EventSink.
type EventMirror struct {
	client  redis.UniversalClient
	cache   interfaces.Cache[domain.PeerInfo]
	channel string
	ttl     time.Duration
	logger  log.Logger
}

// NewEventMirror creates a mirror. ttl <= 0 falls back to DefaultPeerTTL.
func NewEventMirror(client redis.UniversalClient, cache interfaces.Cache[domain.PeerInfo], channel string, ttl time.Duration, logger log.Logger) *EventMirror {
	if ttl <= 0 {
		ttl = DefaultPeerTTL
	}
	return &EventMirror{
		client:  helpers.NilPanic(client, "myredis.mirror.go: client is required"),
		cache:   helpers.NilPanic(cache, "myredis.mirror.go: cache is required"),
		channel: helpers.StrPanic(channel, "myredis.mirror.go: channel is required"),
		ttl:     ttl,
		logger:  log.With(helpers.NilPanic(logger, "myredis.mirror.go: logger is required"), "component", "redis_mirror"),
	}
}

// HandleEvent writes or deletes the mirrored peer, then publishes the event.
func (m *EventMirror) HandleEvent(ctx context.Context, ev domain.DiscoveryEvent) error {
	var err error
	switch ev.Kind {
	case domain.EventPeerDiscovered:
		err = m.cache.WriteValue(ctx, ev.InstanceName, ev.Peer, m.ttlMs())
	case domain.EventPeerRemoved:
		err = m.cache.DeleteValue(ctx, ev.InstanceName)
	}

	payload, mErr := marshalEvent(ev)
	if mErr != nil {
		return multierr.Append(err, service.NewInternalServerError("event marshal error", mErr))
	}
	if pErr := m.client.Publish(ctx, m.channel, payload).Err(); pErr != nil {
		err = multierr.Append(err, service.NewInternalServerError("Redis publish error", fmt.Errorf("can't publish %s to '%s', err: %w", ev.Kind, m.channel, pErr)))
	}
	return err
}

// Refresh extends the TTL of every mirrored peer in peers so that live peers never expire.
// Only existing keys are rewritten: a peer removed after the snapshot was taken is not brought back.
func (m *EventMirror) Refresh(ctx context.Context, peers []domain.PeerInfo) error {
	var err error
	for _, peer := range peers {
		ok, rErr := m.cache.RefreshValue(ctx, peer.InstanceName, peer, m.ttlMs())
		if rErr != nil {
			err = multierr.Append(err, rErr)
			continue
		}
		if !ok {
			level.Debug(m.logger).Log("msg", "peer is no longer mirrored, skipping refresh", "instance", peer.InstanceName)
		}
	}
	return err
}

// RunRefresh calls Refresh with the directory contents every third of the TTL until ctx is done.
func (m *EventMirror) RunRefresh(ctx context.Context, directory interfaces.PeerDirectory) {
	ticker := time.NewTicker(m.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Refresh(ctx, directory.Snapshot()); err != nil {
				level.Warn(m.logger).Log("msg", "mirror refresh failed", "err", err)
			}
		}
	}
}

// Reset deletes every mirrored peer, used at startup so a previous run leaves nothing behind.
func (m *EventMirror) Reset(ctx context.Context) error {
	peers, err := m.cache.ListAllValues(ctx)
	if service.IsEntityNotFoundError(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, peer := range peers {
		err = multierr.Append(err, m.cache.DeleteValue(ctx, peer.InstanceName))
	}
	return err
}

func (m *EventMirror) ttlMs() int {
	return int(m.ttl / time.Millisecond)
}
