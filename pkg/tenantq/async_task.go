package tenantq

import (
	"context"
	"encoding/json"

	"github.com/dmitrymomot/tenantq/pkg/queue"
)

// AsyncTask is a reusable single task definition.
type AsyncTask struct {
	lifecycle

	utils  *Utilities
	fn     string
	args   []any
	kwargs map[string]any
	opts   queue.Options

	id     string
	result *queue.Result
}

// NewAsyncTask defines a task for fn. Options are applied on top of the
// cluster defaults.
func NewAsyncTask(u *Utilities, fn string, args []any, kwargs map[string]any, opts ...queue.TaskOption) *AsyncTask {
	t := &AsyncTask{
		utils:  u,
		fn:     fn,
		args:   args,
		kwargs: kwargs,
		opts:   queue.NewOptions(opts...),
	}
	t.purge = t.purgeResult
	return t
}

// ID returns the id of the last run, or "" before the first one.
func (t *AsyncTask) ID() string { return t.id }

// Func returns the task function name.
func (t *AsyncTask) Func() string { return t.fn }

// Options returns a copy of the task options.
func (t *AsyncTask) Options() queue.Options { return t.opts }

// Broker returns the broker the task is sent to, nil for the cluster default.
func (t *AsyncTask) Broker() queue.Broker { return t.opts.Broker }

// Sync reports whether the task runs on the calling goroutine.
func (t *AsyncTask) Sync() bool { return t.opts.Sync }

// Save reports whether a successful result is stored.
func (t *AsyncTask) Save() bool { return t.opts.Save }

// Hook returns the name of the hook called with the result.
func (t *AsyncTask) Hook() string { return t.opts.Hook }

// Group returns the task group.
func (t *AsyncTask) Group() string { return t.opts.Group }

// Cached reports whether the result is kept in the broker cache.
func (t *AsyncTask) Cached() bool { return t.opts.Cached }

// SetBroker changes the broker. Results of a started task are purged first,
// as for every setter below.
func (t *AsyncTask) SetBroker(ctx context.Context, b queue.Broker) error {
	return t.set(ctx, func(o *queue.Options) { o.Broker = b })
}

// SetSync changes whether the task runs on the calling goroutine.
func (t *AsyncTask) SetSync(ctx context.Context, sync bool) error {
	return t.set(ctx, func(o *queue.Options) { o.Sync = sync })
}

// SetSave changes whether a successful result is stored.
func (t *AsyncTask) SetSave(ctx context.Context, save bool) error {
	return t.set(ctx, func(o *queue.Options) { o.Save = save })
}

// SetHook changes the result hook.
func (t *AsyncTask) SetHook(ctx context.Context, hook string) error {
	return t.set(ctx, func(o *queue.Options) { o.Hook = hook })
}

// SetGroup changes the task group.
func (t *AsyncTask) SetGroup(ctx context.Context, group string) error {
	return t.set(ctx, func(o *queue.Options) { o.Group = group })
}

// SetCached changes whether the result is kept in the broker cache.
func (t *AsyncTask) SetCached(ctx context.Context, cached bool) error {
	return t.set(ctx, func(o *queue.Options) { o.Cached = cached })
}

func (t *AsyncTask) set(ctx context.Context, fn func(o *queue.Options)) error {
	if err := t.mutate(ctx); err != nil {
		return err
	}
	fn(&t.opts)
	return nil
}

// Run enqueues the task and returns its id.
//
// The kwargs are passed to the cluster as given: a task that has to run in a
// tenant schema must carry schema_name itself. Utilities.AddAsyncTask attaches
// the caller's schema instead.
func (t *AsyncTask) Run(ctx context.Context) (string, error) {
	id, err := t.utils.cluster.AsyncTask(ctx, t.fn, t.args, t.kwargs, queue.WithOptions(t.opts))
	if err != nil {
		return "", err
	}
	t.id = id
	t.result = nil
	t.started()
	return id, nil
}

// Result returns the task value, or nil when the task has not run or its
// result is not available within the wait budget.
func (t *AsyncTask) Result(ctx context.Context, opts ...queue.ReadOption) (json.RawMessage, error) {
	r, err := t.Fetch(ctx, opts...)
	if err != nil || r == nil {
		return nil, err
	}
	return r.Value, nil
}

// Fetch returns the task's result record. A completed record is kept, so
// repeated calls do not hit the store again.
func (t *AsyncTask) Fetch(ctx context.Context, opts ...queue.ReadOption) (*queue.Result, error) {
	if t.State() != StateStarted {
		return nil, nil
	}
	if t.result != nil {
		return t.result, nil
	}
	r, err := t.utils.FetchTask(ctx, t.id, t.readOptions(opts)...)
	if err != nil {
		return nil, err
	}
	t.result = r
	return r, nil
}

// ResultGroup returns the values of the task's group.
func (t *AsyncTask) ResultGroup(ctx context.Context, opts ...queue.ReadOption) ([]json.RawMessage, error) {
	if t.State() != StateStarted || t.opts.Group == "" {
		return nil, nil
	}
	return t.utils.GetResultGroup(ctx, t.opts.Group, t.readOptions(opts)...)
}

// FetchGroup returns the result records of the task's group.
func (t *AsyncTask) FetchGroup(ctx context.Context, opts ...queue.ReadOption) ([]*queue.Result, error) {
	if t.State() != StateStarted || t.opts.Group == "" {
		return nil, nil
	}
	return t.utils.FetchTaskGroup(ctx, t.opts.Group, t.readOptions(opts)...)
}

func (t *AsyncTask) readOptions(opts []queue.ReadOption) []queue.ReadOption {
	base := []queue.ReadOption{queue.FromCache(t.opts.Cached)}
	if t.opts.Broker != nil {
		base = append(base, queue.FromBroker(t.opts.Broker))
	}
	return append(base, opts...)
}

// purgeResult deletes the result of the previous run.
func (t *AsyncTask) purgeResult(ctx context.Context) error {
	t.result = nil
	if t.id == "" {
		return nil
	}
	if t.opts.Cached {
		return t.utils.DeleteTaskFromCache(ctx, t.id, queue.FromBroker(t.opts.Broker))
	}
	return t.utils.DeleteTask(ctx, t.id)
}
