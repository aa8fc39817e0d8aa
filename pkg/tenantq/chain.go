package tenantq

import (
	"context"
	"encoding/json"

	"github.com/dmitrymomot/tenantq/pkg/queue"
)

// Chain runs its links one after another under one group.
type Chain struct {
	lifecycle

	utils *Utilities
	links []queue.Link
	opts  queue.Options
	group string
}

// NewChain creates an empty chain. A group is generated on the first run
// unless one is given with queue.WithGroup; later runs reuse it.
func NewChain(u *Utilities, opts ...queue.TaskOption) *Chain {
	c := &Chain{
		utils: u,
		opts:  queue.NewOptions(opts...),
	}
	c.group = c.opts.Group
	c.purge = c.purgeGroup
	return c
}

// Append adds a link. A started chain first deletes the results of its
// previous run.
func (c *Chain) Append(ctx context.Context, fn string, args []any, kwargs map[string]any) error {
	if err := c.mutate(ctx); err != nil {
		return err
	}
	c.links = append(c.links, queue.NewLink(fn, args, kwargs))
	return nil
}

// Length returns the number of links.
func (c *Chain) Length() int {
	return len(c.links)
}

// Group returns the chain group.
func (c *Chain) Group() string {
	return c.group
}

// Run enqueues the first link and returns the group. Running a started chain
// again first deletes the results of the previous run.
func (c *Chain) Run(ctx context.Context) (string, error) {
	if err := c.mutate(ctx); err != nil {
		return "", err
	}
	opts := c.opts
	opts.Group = c.group
	group, err := c.utils.CreateAsyncTasksChain(ctx, c.links, queue.WithOptions(opts))
	if err != nil {
		return "", err
	}
	c.group = group
	c.started()
	return group, nil
}

// Result returns the values of the finished links. Given a wait budget it
// waits for every link to finish.
func (c *Chain) Result(ctx context.Context, opts ...queue.ReadOption) ([]json.RawMessage, error) {
	if c.State() != StateStarted {
		return nil, nil
	}
	return c.utils.GetResultGroup(ctx, c.group, c.readOptions(opts)...)
}

// Fetch returns the result records of the links, failed ones included when
// failures is set.
func (c *Chain) Fetch(ctx context.Context, failures bool, opts ...queue.ReadOption) ([]*queue.Result, error) {
	if c.State() != StateStarted {
		return nil, nil
	}
	opts = append([]queue.ReadOption{queue.WithFailures(failures)}, opts...)
	return c.utils.FetchTaskGroup(ctx, c.group, c.readOptions(opts)...)
}

// Current returns the number of links that have finished.
func (c *Chain) Current(ctx context.Context) (int, error) {
	if c.State() != StateStarted {
		return 0, nil
	}
	return c.utils.GetGroupCount(ctx, c.group, queue.FromCache(c.opts.Cached), queue.FromBroker(c.opts.Broker))
}

func (c *Chain) readOptions(opts []queue.ReadOption) []queue.ReadOption {
	return append([]queue.ReadOption{
		queue.FromCache(c.opts.Cached),
		queue.FromBroker(c.opts.Broker),
		queue.WithCount(len(c.links)),
	}, opts...)
}

func (c *Chain) purgeGroup(ctx context.Context) error {
	_, err := c.utils.DeleteTaskGroup(ctx, c.group, true, queue.FromCache(c.opts.Cached), queue.FromBroker(c.opts.Broker))
	return err
}
