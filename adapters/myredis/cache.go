package myredis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fk1blow/haplea/helpers"
	"github.com/fk1blow/haplea/service"

	"github.com/go-redis/redis/v8"
)

const scanBatch = 100

type redisCache[T any] struct {
	client    redis.UniversalClient
	prefix    string
	marshal   func(T) ([]byte, error)
	unmarshal func([]byte) (T, error)
	zero      T
}

// NewCache creates redis implementation of generic cache interface.
func NewCache[T any](client redis.UniversalClient, prefix string, marshal func(T) ([]byte, error), unmarshal func([]byte) (T, error)) *redisCache[T] {
	var zero T
	return &redisCache[T]{
		client:    helpers.NilPanic(client, "myredis.cache.go: client is required"),
		prefix:    helpers.StrPanic(prefix, "myredis.cache.go: prefix is required"),
		zero:      zero,
		marshal:   helpers.NilPanic(marshal, "myredis.cache.go: marshal is required"),
		unmarshal: helpers.NilPanic(unmarshal, "myredis.cache.go: unmarshal is required"),
	}
}

// WriteValue stores item under key. ttlMs <= 0 keeps the key until it is deleted.
func (r *redisCache[T]) WriteValue(ctx context.Context, key string, item T, ttlMs int) error {
	bytes, err := r.marshal(item)
	if err != nil {
		return service.NewInternalServerError("Redis marshal item error", fmt.Errorf("can't marshal item of type %T, err: %w", item, err))
	}

	ttl := time.Duration(ttlMs) * time.Millisecond
	if ttl < 0 {
		ttl = 0
	}
	err = r.client.Set(ctx, r.generateKey(key), bytes, ttl).Err()
	if err != nil {
		return service.NewInternalServerError("Redis write key error", fmt.Errorf("can't write item of type %T to redis (key='%s'), err: %w", item, key, err))
	}

	return nil
}

// RefreshValue overwrites item under key with SET XX; a key deleted in the meantime stays deleted.
func (r *redisCache[T]) RefreshValue(ctx context.Context, key string, item T, ttlMs int) (bool, error) {
	bytes, err := r.marshal(item)
	if err != nil {
		return false, service.NewInternalServerError("Redis marshal item error", fmt.Errorf("can't marshal item of type %T, err: %w", item, err))
	}

	ttl := time.Duration(ttlMs) * time.Millisecond
	if ttl < 0 {
		ttl = 0
	}
	ok, err := r.client.SetXX(ctx, r.generateKey(key), bytes, ttl).Result()
	if err != nil {
		return false, service.NewInternalServerError("Redis refresh key error", fmt.Errorf("can't refresh item of type %T in redis (key='%s'), err: %w", item, key, err))
	}

	return ok, nil
}

func (r *redisCache[T]) DeleteValue(ctx context.Context, key string) error {
	err := r.client.Del(ctx, r.generateKey(key)).Err()
	if err != nil {
		return service.NewInternalServerError("Redis delete key error", fmt.Errorf("can't delete item of type %T from redis (key='%s'), err: %w", r.zero, key, err))
	}
	return nil
}

// ListAllValues scans the keys under the cache prefix then fetches their values.
// Keys that expire between the scan and the read, or hold undecodable values, are skipped.
func (r *redisCache[T]) ListAllValues(ctx context.Context) ([]T, error) {
	prefixWithColon := r.prefix + ":"

	var keys []string
	iter := r.client.Scan(ctx, 0, prefixWithColon+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), prefixWithColon))
	}
	if err := iter.Err(); err != nil {
		return nil, service.NewInternalServerError("Redis scan keys error", fmt.Errorf("redis scan keys error, err: %w", err))
	}

	if len(keys) == 0 {
		return nil, service.NewEntityNotFoundError("Entity not found", nil)
	}

	items := make([]T, 0, len(keys))
	for _, key := range keys {
		bytes, err := r.client.Get(ctx, r.generateKey(key)).Bytes()
		if err != nil {
			continue
		}

		item, err := r.unmarshal(bytes)
		if err != nil {
			continue
		}

		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, service.NewEntityNotFoundError("Entity not found", nil)
	}

	return items, nil
}

func (r *redisCache[T]) generateKey(key string) string {
	return r.prefix + ":" + key
}
