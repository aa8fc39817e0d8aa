package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantq/pkg/queue"
)

// Broker implements queue.Broker on a Redis list.
//
// Package ids are pushed to the list at ListKey and their bodies kept in a hash.
// Dequeue moves an id to a processing list, Acknowledge removes it from there.
// Cache keys share the "{list_key}:" prefix; the internal keys use "@" so that
// clearing the cache leaves the queue intact.
type Broker struct {
	db            redis.UniversalClient
	listKey       string
	scanBatchSize int64
	cache         *cache
}

var _ queue.Broker = (*Broker)(nil)

// NewBroker creates a broker on listKey with a scan batch size of 1000.
func NewBroker(client redis.UniversalClient, listKey string) *Broker {
	return newBroker(client, listKey, 1000)
}

// NewBrokerWithConfig creates a broker using the scan batch size from cfg.
func NewBrokerWithConfig(client redis.UniversalClient, listKey string, cfg Config) *Broker {
	size := cfg.ScanBatchSize
	if size <= 0 {
		size = 1000
	}
	return newBroker(client, listKey, int64(size))
}

func newBroker(client redis.UniversalClient, listKey string, scanBatchSize int64) *Broker {
	if listKey == "" {
		listKey = "tenantq"
	}
	b := &Broker{
		db:            client,
		listKey:       listKey,
		scanBatchSize: scanBatchSize,
	}
	b.cache = &cache{db: client, prefix: listKey + ":", scanBatchSize: scanBatchSize}
	return b
}

func (b *Broker) processingKey() string { return b.listKey + "@processing" }
func (b *Broker) packsKey() string      { return b.listKey + "@packs" }

// Enqueue implements queue.Broker
func (b *Broker) Enqueue(ctx context.Context, pack []byte) (string, error) {
	id := uuid.NewString()
	_, err := b.db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, b.packsKey(), id, pack)
		p.LPush(ctx, b.listKey, id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to push package to %s: %w", b.listKey, err)
	}
	return id, nil
}

// Dequeue implements queue.Broker. Redis rounds blocking waits up to whole seconds.
func (b *Broker) Dequeue(ctx context.Context, wait time.Duration) (*queue.Envelope, error) {
	var cmd *redis.StringCmd
	if wait <= 0 {
		cmd = b.db.LMove(ctx, b.listKey, b.processingKey(), "RIGHT", "LEFT")
	} else {
		cmd = b.db.BLMove(ctx, b.listKey, b.processingKey(), "RIGHT", "LEFT", wait)
	}

	id, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pack, err := b.db.HGet(ctx, b.packsKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		_ = b.db.LRem(ctx, b.processingKey(), 1, id).Err()
		return nil, fmt.Errorf("%w: %s", ErrPackageMissing, id)
	}
	if err != nil {
		return nil, err
	}
	return &queue.Envelope{AckID: id, Pack: pack}, nil
}

// Acknowledge implements queue.Broker
func (b *Broker) Acknowledge(ctx context.Context, ackID string) error {
	_, err := b.db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, b.processingKey(), 1, ackID)
		p.HDel(ctx, b.packsKey(), ackID)
		return nil
	})
	return err
}

// QueueSize implements queue.Broker
func (b *Broker) QueueSize(ctx context.Context) (int, error) {
	n, err := b.db.LLen(ctx, b.listKey).Result()
	return int(n), err
}

// PurgeQueue implements queue.Broker
func (b *Broker) PurgeQueue(ctx context.Context) error {
	ids, err := b.db.LRange(ctx, b.listKey, 0, -1).Result()
	if err != nil {
		return err
	}
	_, err = b.db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if len(ids) > 0 {
			p.HDel(ctx, b.packsKey(), ids...)
		}
		p.Del(ctx, b.listKey)
		return nil
	})
	return err
}

// Cache implements queue.Broker
func (b *Broker) Cache() queue.Cache {
	return b.cache
}

// ListKey implements queue.Broker
func (b *Broker) ListKey() string {
	return b.listKey
}

// Conn returns the underlying Redis client for advanced operations.
func (b *Broker) Conn() redis.UniversalClient {
	return b.db
}

// cache implements queue.Cache with plain Redis strings and lists.
type cache struct {
	db            redis.UniversalClient
	prefix        string
	scanBatchSize int64
}

// Get returns nil for missing values (redis.Nil becomes nil).
func (c *cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set stores key-value with expiration. Zero duration means no expiration.
func (c *cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.db.Set(ctx, key, val, ttl).Err()
}

// Push appends with RPUSH, so the reported length is atomic across workers.
func (c *cache) Push(ctx context.Context, key string, val []byte, ttl time.Duration) (int, error) {
	var n *redis.IntCmd
	_, err := c.db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		n = p.RPush(ctx, key, val)
		if ttl > 0 {
			p.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(n.Val()), nil
}

func (c *cache) Range(ctx context.Context, key string) ([][]byte, error) {
	vals, err := c.db.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func (c *cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.db.Del(ctx, keys...).Err()
}

// Clear removes every key under the broker prefix using SCAN to avoid blocking Redis.
func (c *cache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		batch, next, err := c.db.Scan(ctx, cursor, c.prefix+"*", c.scanBatchSize).Result()
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := c.db.Del(ctx, batch...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
