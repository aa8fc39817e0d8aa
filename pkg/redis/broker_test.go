package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantq/pkg/queue"
	"github.com/dmitrymomot/tenantq/pkg/redis"
)

func newTestBroker(t *testing.T) *redis.Broker {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	client, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	b := redis.NewBroker(client, "tenantq_test_"+uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx := context.Background()
		_ = b.PurgeQueue(ctx)
		_ = b.Cache().Clear(ctx)
		_ = client.Del(ctx, b.ListKey()+"@processing", b.ListKey()+"@packs").Err()
	})
	return b
}

func TestConnectErrors(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{})
	assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)

	_, err = redis.Connect(context.Background(), redis.Config{ConnectionURL: "://bad"})
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}

func TestBrokerQueue(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	_, err := b.Enqueue(ctx, []byte("one"))
	require.NoError(t, err)
	_, err = b.Enqueue(ctx, []byte("two"))
	require.NoError(t, err)

	size, err := b.QueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	env, err := b.Dequeue(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, "one", string(env.Pack))
	require.NoError(t, b.Acknowledge(ctx, env.AckID))

	env, err = b.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, "two", string(env.Pack))
	require.NoError(t, b.Acknowledge(ctx, env.AckID))

	env, err = b.Dequeue(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, env)
}

func TestBrokerCache(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()
	c := b.Cache()
	key := queue.TaskKey(b.ListKey(), "t1")

	v, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, key, []byte("r"), time.Minute))
	v, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("r"), v)

	groupKey := queue.GroupKeysKey(b.ListKey(), "g")
	n, err := c.Push(ctx, groupKey, []byte(key), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = c.Push(ctx, groupKey, []byte("other"), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	vals, err := c.Range(ctx, groupKey)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte(key), []byte("other")}, vals)

	_, err = b.Enqueue(ctx, []byte("keep"))
	require.NoError(t, err)
	require.NoError(t, c.Clear(ctx))

	vals, err = c.Range(ctx, groupKey)
	require.NoError(t, err)
	assert.Empty(t, vals)

	size, err := b.QueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size, "clearing the cache keeps the queue")
}

func TestBrokerWithCluster(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	c, err := queue.NewCluster(b, queue.WithSecret("secret"), queue.WithWorkers(1), queue.WithPollInterval(time.Second))
	require.NoError(t, err)
	require.NoError(t, c.RegisterFunc("echo", func(_ context.Context, args []any, _ map[string]any) (any, error) {
		return args, nil
	}))
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Stop() })

	id, err := c.AsyncTask(ctx, "echo", []any{"hi"}, nil, queue.WithCached(true))
	require.NoError(t, err)

	value, err := c.Result(ctx, id, queue.FromCache(true), queue.WithWait(5*time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `["hi"]`, string(value))
}
