package myredis

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// PeerPrefix namespaces mirrored peers: haplea:peer:<instance_name>.
	PeerPrefix = "haplea:peer"
	// EventsChannel is the pub/sub channel discovery events are published on.
	EventsChannel = "haplea:events"
	// DefaultPeerTTL is how long a mirrored peer survives without a refresh.
	DefaultPeerTTL = 90 * time.Second
	// MinPeerTTL is the shortest accepted TTL; peers are refreshed every third of it.
	MinPeerTTL = time.Second
)

type RedisConfig struct {
	// Addr is a redis:// URL, empty disables the mirror.
	Addr    string
	PeerTTL time.Duration
}

// NewRedisUniversalClient creates and configures instance of redis universal client.
func NewRedisUniversalClient(redisAddr string, options ...ConfigOption) (redis.UniversalClient, error) {
	redisOptions, err := redis.ParseURL(redisAddr)
	if err != nil {
		return nil, fmt.Errorf("cant parse redis url: %w", err)
	}
	for _, opt := range options {
		opt(redisOptions)
	}
	c := redis.NewUniversalClient(universalOptions(redisOptions))
	return c, nil
}

// ConfigOption configures the client.
type ConfigOption func(*redis.Options)

// WithDialTimeout bounds connection setup.
func WithDialTimeout(d time.Duration) ConfigOption {
	return func(o *redis.Options) {
		o.DialTimeout = d
	}
}

// WithMaxRetries sets how many times a failed command is retried.
func WithMaxRetries(n int) ConfigOption {
	return func(o *redis.Options) {
		o.MaxRetries = n
	}
}

func universalOptions(options *redis.Options) *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:              []string{options.Addr},
		DB:                 options.DB,
		Username:           options.Username,
		Password:           options.Password,
		WriteTimeout:       options.WriteTimeout,
		ReadTimeout:        options.ReadTimeout,
		DialTimeout:        options.DialTimeout,
		MaxRetries:         options.MaxRetries,
		PoolSize:           options.PoolSize,
		PoolTimeout:        options.PoolTimeout,
		MinIdleConns:       options.MinIdleConns,
		IdleTimeout:        options.IdleTimeout,
		IdleCheckFrequency: options.IdleCheckFrequency,
	}
}
