package queue

import (
	"context"
	"time"
)

// Envelope is a package taken off a broker together with its acknowledgement id.
type Envelope struct {
	AckID string
	Pack  []byte
}

// Broker moves signed packages from producers to workers and owns the result cache.
type Broker interface {
	// Enqueue pushes a signed package and returns its acknowledgement id.
	Enqueue(ctx context.Context, pack []byte) (string, error)

	// Dequeue waits up to wait for the next package. It returns nil, nil
	// when nothing arrived in time.
	Dequeue(ctx context.Context, wait time.Duration) (*Envelope, error)

	// Acknowledge confirms that a dequeued package was processed.
	Acknowledge(ctx context.Context, ackID string) error

	// QueueSize reports the number of packages waiting.
	QueueSize(ctx context.Context) (int, error)

	// PurgeQueue drops every waiting package.
	PurgeQueue(ctx context.Context) error

	// Cache returns the broker's key/value cache.
	Cache() Cache

	// ListKey is the prefix for every key this broker owns.
	ListKey() string
}

// Cache is the broker-side key/value store used for cached results and group bookkeeping.
// Values are opaque signed packages. Cache entries are not tenant scoped.
type Cache interface {
	// Get returns nil, nil for missing keys.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores val. Zero ttl means no expiration.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Push appends val to the list at key and returns the new list length.
	Push(ctx context.Context, key string, val []byte, ttl time.Duration) (int, error)

	// Range returns all values of the list at key.
	Range(ctx context.Context, key string) ([][]byte, error)

	// Delete removes keys (plain values and lists alike).
	Delete(ctx context.Context, keys ...string) error

	// Clear removes every key owned by the broker.
	Clear(ctx context.Context) error
}

// TaskKey is the cache key of a cached task result.
func TaskKey(listKey, id string) string {
	return listKey + ":" + id
}

// GroupKeysKey is the cache key of the list of result keys in a group.
func GroupKeysKey(listKey, group string) string {
	return listKey + ":" + group + ":keys"
}

// GroupArgsKey is the cache key holding the original arguments of an iter group.
func GroupArgsKey(listKey, group string) string {
	return listKey + ":" + group + ":args"
}
