package interfaces

import "context"

// Cache represents an expiring key-value store, used to mirror known peers outside the process.
//
//go:generate moq -stub -out mock/cache.go -pkg mock . Cache
type Cache[T any] interface {
	// WriteValue writes value in cache with the given TTL (ms).
	// Returns:
	// 1) nil on success;
	// 2) internal_server_error when marshalling fails or when the storage write fails.
	WriteValue(ctx context.Context, key string, item T, ttlMs int) error

	// RefreshValue rewrites value with the given TTL (ms) only when the key still exists.
	// Returns:
	// 1) (true, nil) when the key existed and was rewritten;
	// 2) (false, nil) when the key is absent, nothing is written;
	// 3) (false, internal_server_error) when marshalling fails or when the storage write fails.
	RefreshValue(ctx context.Context, key string, item T, ttlMs int) (bool, error)

	// ListAllValues returns all values in the cache (lists keys then fetches values for them).
	// Returns:
	// 1) (items, nil) when there is at least one value;
	// 2) (nil, entity_not_found) when there are no keys or no values could be read/unmarshalled;
	// 3) (nil, internal_server_error) when listing keys fails (e.g. Redis error).
	ListAllValues(ctx context.Context) ([]T, error)

	// DeleteValue deletes the value for the given key from the cache.
	// Returns:
	// 1) nil on success;
	// 2) internal_server_error when the storage delete fails.
	DeleteValue(ctx context.Context, key string) error
}
