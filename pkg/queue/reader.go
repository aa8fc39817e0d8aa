package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// pollStep is the interval between checks while waiting for a result.
const pollStep = 10 * time.Millisecond

// ReadOption is a functional option for result queries
type ReadOption func(*readOptions)

type readOptions struct {
	wait     time.Duration
	count    int
	cached   bool
	failures bool
	broker   Broker
}

// WithWait sets how long a query waits for results. Zero checks once,
// a negative value waits until the result shows up or ctx is done.
func WithWait(d time.Duration) ReadOption {
	return func(o *readOptions) {
		o.wait = d
	}
}

// WithCount makes group queries wait until at least n results exist.
func WithCount(n int) ReadOption {
	return func(o *readOptions) {
		if n > 0 {
			o.count = n
		}
	}
}

// FromCache reads from the broker cache instead of the result store.
func FromCache(cached bool) ReadOption {
	return func(o *readOptions) {
		o.cached = cached
	}
}

// FromBroker reads cached results from b instead of the cluster's default
// broker. Tasks enqueued with WithBroker and cached keep their results there.
func FromBroker(b Broker) ReadOption {
	return func(o *readOptions) {
		o.broker = b
	}
}

// WithFailures includes failed results in group queries, or counts only
// failures in CountGroup.
func WithFailures(failures bool) ReadOption {
	return func(o *readOptions) {
		o.failures = failures
	}
}

func newReadOptions(opts []ReadOption) readOptions {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// cacheBroker is the broker whose cache a cached read goes to.
func (c *Cluster) cacheBroker(o readOptions) Broker {
	if o.broker != nil {
		return o.broker
	}
	return c.broker
}

// Fetch returns the full result record of a task, or nil when it is not
// available within the wait budget.
func (c *Cluster) Fetch(ctx context.Context, id string, opts ...ReadOption) (*Result, error) {
	o := newReadOptions(opts)
	return poll(ctx, o.wait, func() (*Result, bool, error) {
		var (
			r   *Result
			err error
		)
		if o.cached {
			r, err = c.cachedResult(ctx, c.cacheBroker(o), id)
		} else {
			r, err = c.results.GetResult(ctx, id)
		}
		return r, r != nil, err
	})
}

// Result returns the value of a task. A failed task yields its error text.
func (c *Cluster) Result(ctx context.Context, id string, opts ...ReadOption) (json.RawMessage, error) {
	r, err := c.Fetch(ctx, id, opts...)
	if err != nil || r == nil {
		return nil, err
	}
	return r.Value, nil
}

// FetchGroup returns the results of a group, successful ones only unless
// WithFailures is set. With WithCount it first waits for that many results.
func (c *Cluster) FetchGroup(ctx context.Context, group string, opts ...ReadOption) ([]*Result, error) {
	o := newReadOptions(opts)

	if o.count > 0 {
		ready, err := poll(ctx, o.wait, func() (bool, bool, error) {
			n, err := c.countGroup(ctx, group, false, o)
			return n >= o.count, n >= o.count, err
		})
		if err != nil {
			return nil, err
		}
		if !ready {
			return nil, nil
		}
	}

	if o.cached {
		return c.cachedGroup(ctx, c.cacheBroker(o), group, o.failures)
	}
	return c.results.GetGroup(ctx, group, o.failures)
}

// ResultGroup returns the values of a group's results.
func (c *Cluster) ResultGroup(ctx context.Context, group string, opts ...ReadOption) ([]json.RawMessage, error) {
	rs, err := c.FetchGroup(ctx, group, opts...)
	if err != nil || rs == nil {
		return nil, err
	}
	values := make([]json.RawMessage, 0, len(rs))
	for _, r := range rs {
		values = append(values, r.Value)
	}
	return values, nil
}

// CountGroup returns the number of results in a group, or the number of
// failed ones with WithFailures.
func (c *Cluster) CountGroup(ctx context.Context, group string, opts ...ReadOption) (int, error) {
	o := newReadOptions(opts)
	return c.countGroup(ctx, group, o.failures, o)
}

func (c *Cluster) countGroup(ctx context.Context, group string, failures bool, o readOptions) (int, error) {
	if !o.cached {
		return c.results.CountGroup(ctx, group, failures)
	}
	broker := c.cacheBroker(o)
	if !failures {
		keys, err := broker.Cache().Range(ctx, GroupKeysKey(broker.ListKey(), group))
		if err != nil {
			return 0, fmt.Errorf("failed to read group %s: %w", group, err)
		}
		return len(keys), nil
	}

	rs, err := c.cachedGroup(ctx, broker, group, true)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rs {
		if !r.Success {
			n++
		}
	}
	return n, nil
}

// DeleteGroup removes a group. With tasks set the member results are deleted
// too, otherwise they are only detached from the group.
func (c *Cluster) DeleteGroup(ctx context.Context, group string, tasks bool, opts ...ReadOption) (int, error) {
	o := newReadOptions(opts)
	if !o.cached {
		return c.results.DeleteGroup(ctx, group, tasks)
	}

	broker := c.cacheBroker(o)
	cache := broker.Cache()
	listKey := broker.ListKey()
	groupKey := GroupKeysKey(listKey, group)

	raw, err := cache.Range(ctx, groupKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read group %s: %w", group, err)
	}

	keys := []string{groupKey, GroupArgsKey(listKey, group)}
	if tasks {
		for _, k := range raw {
			keys = append(keys, string(k))
		}
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("failed to delete group %s: %w", group, err)
	}
	return len(raw), nil
}

// DeleteCached removes a cached task result.
func (c *Cluster) DeleteCached(ctx context.Context, id string, opts ...ReadOption) error {
	broker := c.cacheBroker(newReadOptions(opts))
	return broker.Cache().Delete(ctx, TaskKey(broker.ListKey(), id))
}

// DeleteTask removes a task result from the result store.
func (c *Cluster) DeleteTask(ctx context.Context, id string) error {
	return c.results.DeleteResult(ctx, id)
}

// QueueSize returns the number of packages waiting in the broker.
func (c *Cluster) QueueSize(ctx context.Context) (int, error) {
	return c.broker.QueueSize(ctx)
}

func (c *Cluster) cachedResult(ctx context.Context, broker Broker, id string) (*Result, error) {
	raw, err := broker.Cache().Get(ctx, TaskKey(broker.ListKey(), id))
	if err != nil {
		return nil, fmt.Errorf("failed to read cached result %s: %w", id, err)
	}
	if raw == nil {
		return nil, nil
	}
	var r Result
	if err := c.signer.Loads(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// cachedGroup loads the results listed under the group's key list in
// completion order. Expired members are skipped.
func (c *Cluster) cachedGroup(ctx context.Context, broker Broker, group string, failures bool) ([]*Result, error) {
	cache := broker.Cache()
	keys, err := cache.Range(ctx, GroupKeysKey(broker.ListKey(), group))
	if err != nil {
		return nil, fmt.Errorf("failed to read group %s: %w", group, err)
	}

	out := make([]*Result, 0, len(keys))
	for _, k := range keys {
		raw, err := cache.Get(ctx, string(k))
		if err != nil {
			return nil, fmt.Errorf("failed to read cached result %s: %w", k, err)
		}
		if raw == nil {
			continue
		}
		var r Result
		if err := c.signer.Loads(raw, &r); err != nil {
			return nil, err
		}
		if !failures && !r.Success {
			continue
		}
		out = append(out, &r)
	}
	return out, nil
}

// poll calls check until it reports done or the wait budget runs out.
func poll[T any](ctx context.Context, wait time.Duration, check func() (T, bool, error)) (T, error) {
	var deadline time.Time
	if wait > 0 {
		deadline = time.Now().Add(wait)
	}

	for {
		v, done, err := check()
		if err != nil || done {
			return v, err
		}
		if wait == 0 || (wait > 0 && !time.Now().Before(deadline)) {
			return v, nil
		}

		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-time.After(pollStep):
		}
	}
}
