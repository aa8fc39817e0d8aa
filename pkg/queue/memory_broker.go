package queue

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBroker implements Broker and Cache in process memory.
// It is meant for tests, synchronous execution and single-process deployments.
type MemoryBroker struct {
	listKey string

	mu       sync.Mutex
	pending  []*Envelope
	inflight map[string]*Envelope
	notify   chan struct{}

	cache *memoryCache
}

// NewMemoryBroker creates an empty in-memory broker. An empty listKey defaults to "tenantq".
func NewMemoryBroker(listKey string) *MemoryBroker {
	if listKey == "" {
		listKey = "tenantq"
	}
	return &MemoryBroker{
		listKey:  listKey,
		inflight: make(map[string]*Envelope),
		notify:   make(chan struct{}, 1),
		cache:    newMemoryCache(listKey),
	}
}

// Enqueue implements Broker
func (b *MemoryBroker) Enqueue(_ context.Context, pack []byte) (string, error) {
	env := &Envelope{AckID: uuid.NewString(), Pack: pack}

	b.mu.Lock()
	b.pending = append(b.pending, env)
	b.mu.Unlock()

	// Wake one waiting Dequeue, if any
	select {
	case b.notify <- struct{}{}:
	default:
	}

	return env.AckID, nil
}

// Dequeue implements Broker
func (b *MemoryBroker) Dequeue(ctx context.Context, wait time.Duration) (*Envelope, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		if env := b.pop(); env != nil {
			return env, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return b.pop(), nil
		case <-b.notify:
		}
	}
}

func (b *MemoryBroker) pop() *Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	env := b.pending[0]
	b.pending[0] = nil
	b.pending = b.pending[1:]
	b.inflight[env.AckID] = env

	// More work remains; pass the wake-up on to another waiter
	if len(b.pending) > 0 {
		select {
		case b.notify <- struct{}{}:
		default:
		}
	}
	return env
}

// Acknowledge implements Broker
func (b *MemoryBroker) Acknowledge(_ context.Context, ackID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.inflight, ackID)
	return nil
}

// QueueSize implements Broker
func (b *MemoryBroker) QueueSize(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.pending), nil
}

// PurgeQueue implements Broker
func (b *MemoryBroker) PurgeQueue(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = nil
	return nil
}

// Cache implements Broker
func (b *MemoryBroker) Cache() Cache {
	return b.cache
}

// ListKey implements Broker
func (b *MemoryBroker) ListKey() string {
	return b.listKey
}

type memoryCacheEntry struct {
	value     []byte
	list      [][]byte
	expiresAt time.Time // zero means no expiration
}

func (e *memoryCacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type memoryCache struct {
	prefix string

	mu      sync.Mutex
	entries map[string]*memoryCacheEntry
}

func newMemoryCache(listKey string) *memoryCache {
	return &memoryCache{
		prefix:  listKey + ":",
		entries: make(map[string]*memoryCacheEntry),
	}
}

func (c *memoryCache) lookup(key string) *memoryCacheEntry {
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		return nil
	}
	return e
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookup(key)
	if e == nil {
		return nil, nil
	}
	return e.value, nil
}

func (c *memoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &memoryCacheEntry{value: val, expiresAt: expiry(ttl)}
	return nil
}

func (c *memoryCache) Push(_ context.Context, key string, val []byte, ttl time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookup(key)
	if e == nil {
		e = &memoryCacheEntry{}
		c.entries[key] = e
	}
	e.list = append(e.list, val)
	e.expiresAt = expiry(ttl)
	return len(e.list), nil
}

func (c *memoryCache) Range(_ context.Context, key string) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookup(key)
	if e == nil {
		return nil, nil
	}
	out := make([][]byte, len(e.list))
	copy(out, e.list)
	return out, nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if strings.HasPrefix(k, c.prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}
