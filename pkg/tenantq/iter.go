package tenantq

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/dmitrymomot/tenantq/pkg/queue"
)

// Iter runs one function over a list of argument tuples as a single group.
// Its result is the collated list of member values, in completion order.
type Iter struct {
	lifecycle

	utils  *Utilities
	fn     string
	args   [][]any
	kwargs map[string]any
	opts   queue.Options

	group  string
	result *queue.Result
}

// NewIter defines an iter group for fn. The Cached option decides where the
// collated result is kept; members are always cached. A group is generated on
// the first run unless one is given with queue.WithGroup.
func NewIter(u *Utilities, fn string, args [][]any, kwargs map[string]any, opts ...queue.TaskOption) *Iter {
	it := &Iter{
		utils:  u,
		fn:     fn,
		args:   slices.Clone(args),
		kwargs: kwargs,
		opts:   queue.NewOptions(opts...),
	}
	it.group = it.opts.Group
	it.purge = it.purgeGroup
	return it
}

// Append adds argument tuples. A started iter is purged first.
func (it *Iter) Append(ctx context.Context, tuples ...[]any) error {
	if err := it.mutate(ctx); err != nil {
		return err
	}
	it.args = append(it.args, tuples...)
	return nil
}

// Length returns the number of argument tuples.
func (it *Iter) Length() int {
	return len(it.args)
}

// Group returns the group of the last run.
func (it *Iter) Group() string {
	return it.group
}

// Run enqueues one task per tuple and returns the group. Running a started
// iter again first purges the previous run.
func (it *Iter) Run(ctx context.Context) (string, error) {
	if err := it.mutate(ctx); err != nil {
		return "", err
	}
	opts := it.opts
	opts.Group = it.group
	group, err := it.utils.AddAsyncTasksFromIter(ctx, it.fn, it.args, it.kwargs, queue.WithOptions(opts))
	if group != "" {
		it.group = group
	}
	if err != nil {
		return group, err
	}
	it.result = nil
	it.started()
	return group, nil
}

// Result returns the collated values as a JSON array, or nil while the group
// is incomplete.
func (it *Iter) Result(ctx context.Context, opts ...queue.ReadOption) (json.RawMessage, error) {
	r, err := it.Fetch(ctx, opts...)
	if err != nil || r == nil {
		return nil, err
	}
	return r.Value, nil
}

// Fetch returns the collated result record of the group.
func (it *Iter) Fetch(ctx context.Context, opts ...queue.ReadOption) (*queue.Result, error) {
	if it.State() != StateStarted {
		return nil, nil
	}
	if it.result != nil {
		return it.result, nil
	}
	opts = append([]queue.ReadOption{queue.FromCache(it.opts.Cached), queue.FromBroker(it.opts.Broker)}, opts...)
	r, err := it.utils.FetchTask(ctx, it.group, opts...)
	if err != nil {
		return nil, err
	}
	it.result = r
	return r, nil
}

// Count returns how many members have finished.
func (it *Iter) Count(ctx context.Context) (int, error) {
	if it.group == "" {
		return 0, nil
	}
	return it.utils.GetGroupCount(ctx, it.group, queue.FromCache(true), queue.FromBroker(it.opts.Broker))
}

// purgeGroup deletes the cached members, the group bookkeeping and the
// collated result of the previous run.
func (it *Iter) purgeGroup(ctx context.Context) error {
	it.result = nil
	if it.group == "" {
		return nil
	}
	if _, err := it.utils.DeleteTaskGroup(ctx, it.group, true, queue.FromCache(true), queue.FromBroker(it.opts.Broker)); err != nil {
		return err
	}
	if it.opts.Cached {
		return it.utils.DeleteTaskFromCache(ctx, it.group, queue.FromBroker(it.opts.Broker))
	}
	return it.utils.DeleteTask(ctx, it.group)
}
