package tenantq_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantq/pkg/queue"
	"github.com/dmitrymomot/tenantq/pkg/tenant"
	"github.com/dmitrymomot/tenantq/pkg/tenantq"
)

func TestStateString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "unstarted", tenantq.StateUnstarted.String())
	assert.Equal(t, "started", tenantq.StateStarted.String())
}

func TestChainSync(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")

	chain := tenantq.NewChain(e.utils, queue.WithSync(true))
	require.NoError(t, chain.Append(ctx, "math.pow", []any{2.0, 3.0}, nil))
	require.NoError(t, chain.Append(ctx, "math.floor", []any{2.5}, nil))
	assert.Equal(t, tenantq.StateUnstarted, chain.State())

	group, err := chain.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, group, chain.Group())
	assert.Equal(t, tenantq.StateStarted, chain.State())

	assert.Equal(t, 2, chain.Length())
	current, err := chain.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, chain.Length(), current)

	results, err := chain.Fetch(ctx, false)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "testone", r.Schema())
	}

	values, err := chain.Result(ctx)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, 8.0, decodeFloat(t, values[0]))
	assert.Equal(t, 2.0, decodeFloat(t, values[1]))
}

func TestChainAppendAfterRunPurgesResults(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")

	chain := tenantq.NewChain(e.utils, queue.WithSync(true), queue.WithGroup("reports"))
	require.NoError(t, chain.Append(ctx, "math.pow", []any{2.0, 3.0}, nil))
	require.NoError(t, chain.Append(ctx, "math.floor", []any{2.5}, nil))

	group, err := chain.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "reports", group)

	n, err := e.utils.GetGroupCount(ctx, group)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, chain.Append(ctx, "math.floor", []any{4.5}, nil))
	assert.Equal(t, tenantq.StateUnstarted, chain.State())

	n, err = e.utils.GetGroupCount(ctx, group)
	require.NoError(t, err)
	assert.Zero(t, n, "previous results are deleted before the new link is accepted")

	values, err := chain.Result(ctx)
	require.NoError(t, err)
	assert.Nil(t, values)

	_, err = chain.Run(ctx)
	require.NoError(t, err)

	current, err := chain.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, current)
}

func TestChainResultWaitsForEveryLink(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")

	// Without workers only the head is queued, so the chain never completes
	chain := tenantq.NewChain(e.utils)
	require.NoError(t, chain.Append(ctx, "math.floor", []any{1.5}, nil))
	require.NoError(t, chain.Append(ctx, "math.floor", []any{2.5}, nil))
	_, err := chain.Run(ctx)
	require.NoError(t, err)

	values, err := chain.Result(ctx)
	require.NoError(t, err)
	assert.Nil(t, values)

	current, err := chain.Current(ctx)
	require.NoError(t, err)
	assert.Zero(t, current)
}

func TestIter(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")

	it := tenantq.NewIter(e.utils, "math.floor", [][]any{{1.5}, {2.5}}, nil, queue.WithSync(true))
	assert.Equal(t, 2, it.Length())

	value, err := it.Result(ctx)
	require.NoError(t, err)
	assert.Nil(t, value, "not started")

	group, err := it.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, group, it.Group())

	n, err := it.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, it.Length(), n)

	value, err = it.Result(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2]`, string(value))

	first, err := it.Fetch(ctx)
	require.NoError(t, err)
	second, err := it.Fetch(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, it.Append(ctx, []any{3.5}))
	assert.Equal(t, tenantq.StateUnstarted, it.State())
	assert.Equal(t, 3, it.Length())

	n, err = it.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	r, err := e.utils.FetchTask(ctx, group)
	require.NoError(t, err)
	assert.Nil(t, r, "collated result of the previous run is deleted")

	again, err := it.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, group, again)

	value, err = it.Result(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2, 3]`, string(value))
}

func TestIterCached(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")

	it := tenantq.NewIter(e.utils, "math.floor", [][]any{{1.5}, {2.5}}, nil,
		queue.WithSync(true), queue.WithCached(true))
	group, err := it.Run(ctx)
	require.NoError(t, err)

	stored, err := e.utils.FetchTask(ctx, group)
	require.NoError(t, err)
	assert.Nil(t, stored, "collated result stays in the cache")

	value, err := it.Result(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2]`, string(value))

	require.NoError(t, it.Append(ctx, []any{3.5}))
	cached, err := e.utils.FetchTask(ctx, group, queue.FromCache(true))
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestAsyncTask(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")

	task := tenantq.NewAsyncTask(e.utils, "math.pow", []any{2.0, 10.0},
		map[string]any{queue.SchemaKwarg: "testone"}, queue.WithSync(true))
	assert.Equal(t, "math.pow", task.Func())
	assert.True(t, task.Sync())
	assert.True(t, task.Save())
	assert.False(t, task.Cached())
	assert.Empty(t, task.Hook())
	assert.Empty(t, task.Group())
	assert.Nil(t, task.Broker())

	id, err := task.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, task.ID())

	value, err := task.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1024.0, decodeFloat(t, value))

	first, err := task.Fetch(ctx)
	require.NoError(t, err)
	second, err := task.Fetch(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// Changing an option after the run deletes the stored result
	require.NoError(t, task.SetCached(ctx, true))
	assert.Equal(t, tenantq.StateUnstarted, task.State())
	assert.True(t, task.Cached())

	stored, err := e.utils.FetchTask(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, stored)

	value, err = task.Result(ctx)
	require.NoError(t, err)
	assert.Nil(t, value)

	next, err := task.Run(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, id, next)

	value, err = task.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1024.0, decodeFloat(t, value))

	require.NoError(t, task.SetSave(ctx, true))
	cached, err := e.utils.FetchTask(ctx, next, queue.FromCache(true))
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestAsyncTaskGroup(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")

	task := tenantq.NewAsyncTask(e.utils, "math.floor", []any{5.5}, nil, queue.WithSync(true))
	require.NoError(t, task.SetGroup(ctx, "batch"))
	require.NoError(t, task.SetHook(ctx, ""))
	require.NoError(t, task.SetBroker(ctx, nil))

	values, err := task.ResultGroup(ctx)
	require.NoError(t, err)
	assert.Nil(t, values)

	_, err = task.Run(ctx)
	require.NoError(t, err)

	values, err = task.ResultGroup(ctx)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, 5.0, decodeFloat(t, values[0]))

	results, err := task.FetchGroup(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestAsyncTaskRunDoesNotAttachSchema(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")

	task := tenantq.NewAsyncTask(e.utils, "math.floor", []any{1.5}, nil)
	require.NoError(t, task.SetSync(ctx, false))
	_, err := task.Run(ctx)
	require.NoError(t, err)

	assert.NotContains(t, e.nextTask(t).Kwargs, queue.SchemaKwarg)
}

func TestIterRunTwice(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")

	it := tenantq.NewIter(e.utils, "math.floor", [][]any{{1.5}, {2.5}}, nil, queue.WithSync(true))
	first, err := it.Run(ctx)
	require.NoError(t, err)
	second, err := it.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, tenantq.StateStarted, it.State())

	n, err := it.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, it.Length(), n, "the previous run's members are purged")

	value, err := it.Result(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2]`, string(value))
}

func TestChainRunTwice(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")

	chain := tenantq.NewChain(e.utils, queue.WithSync(true))
	require.NoError(t, chain.Append(ctx, "math.pow", []any{2.0, 3.0}, nil))
	require.NoError(t, chain.Append(ctx, "math.floor", []any{2.5}, nil))

	first, err := chain.Run(ctx)
	require.NoError(t, err)
	second, err := chain.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	current, err := chain.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, chain.Length(), current)

	results, err := chain.Fetch(ctx, true)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestAsyncTaskCachedOnOwnBroker(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")
	other := queue.NewMemoryBroker("other")

	task := tenantq.NewAsyncTask(e.utils, "math.floor", []any{6.5}, nil,
		queue.WithSync(true), queue.WithCached(true), queue.WithBroker(other))
	assert.Same(t, other, task.Broker())

	id, err := task.Run(ctx)
	require.NoError(t, err)

	value, err := task.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6.0, decodeFloat(t, value))

	require.NoError(t, task.SetCached(ctx, false))
	raw, err := other.Cache().Get(ctx, queue.TaskKey(other.ListKey(), id))
	require.NoError(t, err)
	assert.Nil(t, raw, "purge deletes from the task's broker")
}
