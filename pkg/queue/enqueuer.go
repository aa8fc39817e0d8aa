package queue

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
)

// AsyncTask packages fn with its arguments, signs it and hands it to the broker.
// With the Sync option the package runs on the calling goroutine instead.
// It returns the task id.
func (c *Cluster) AsyncTask(ctx context.Context, fn string, args []any, kwargs map[string]any, opts ...TaskOption) (string, error) {
	if fn == "" {
		return "", ErrEmptyFunc
	}

	o := NewOptions(opts...)
	t := buildTask(fn, args, kwargs, o)

	pack, err := c.signer.Dumps(t)
	if err != nil {
		return "", err
	}

	broker := c.broker
	if o.Broker != nil {
		broker = o.Broker
	}

	if o.Sync {
		return c.runSync(ctx, pack, broker)
	}

	if _, err := broker.Enqueue(ctx, pack); err != nil {
		return "", fmt.Errorf("failed to enqueue task %s (%s): %w", t.ID, t.Func, err)
	}

	c.log(ctx, slog.LevelDebug, "task enqueued", t)
	return t.ID, nil
}

// AsyncChain enqueues the first link and attaches the rest to it. Each link is
// enqueued by the cluster once the previous one finished. All links share one
// group, generated when opts carry none, which is returned.
func (c *Cluster) AsyncChain(ctx context.Context, links []Link, opts ...TaskOption) (string, error) {
	if len(links) == 0 {
		return "", ErrEmptyChain
	}

	o := NewOptions(opts...)
	if o.Group == "" {
		o.Group = uuid.NewString()
	}

	head := links[0]
	_, err := c.AsyncTask(ctx, head.Func, head.Args, head.Kwargs,
		WithGroup(o.Group),
		WithCached(o.Cached),
		WithSync(o.Sync),
		WithSave(o.Save),
		WithBroker(o.Broker),
		WithChain(links[1:]),
	)
	if err != nil {
		return "", err
	}
	return o.Group, nil
}

// RunSync verifies and runs a signed package on the calling goroutine, saves
// its result and continues its chain. It returns the task id.
func (c *Cluster) RunSync(ctx context.Context, pack []byte) (string, error) {
	return c.runSync(ctx, pack, c.broker)
}

func (c *Cluster) runSync(ctx context.Context, pack []byte, broker Broker) (string, error) {
	var t Task
	if err := c.signer.Loads(pack, &t); err != nil {
		return "", err
	}
	if err := c.process(ctx, &t, broker); err != nil {
		return t.ID, err
	}
	return t.ID, nil
}

// Schedule stores a schedule entry for fn in the schema active in ctx.
// Entries default to a single run at the current time.
func (c *Cluster) Schedule(ctx context.Context, fn string, args []any, kwargs map[string]any, opts ...ScheduleOption) (*ScheduleEntry, error) {
	if c.schedules == nil {
		return nil, ErrNoScheduleStore
	}

	e := &ScheduleEntry{
		ID:      uuid.NewString(),
		Func:    fn,
		Args:    args,
		Kwargs:  maps.Clone(kwargs),
		Kind:    ScheduleOnce,
		Repeats: RepeatForever,
		NextRun: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Name == "" {
		e.Name = e.ID
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := c.schedules.CreateSchedule(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create schedule %s (%s): %w", e.Name, e.Func, err)
	}

	c.logger.InfoContext(ctx, "schedule created",
		slog.String("schedule_id", e.ID),
		slog.String("func", e.Func),
		slog.String("kind", string(e.Kind)),
		slog.String("schema", e.Schema()))

	return e, nil
}

func buildTask(fn string, args []any, kwargs map[string]any, o Options) *Task {
	id := uuid.NewString()
	name := o.Name
	if name == "" {
		name = id
	}
	return &Task{
		ID:         id,
		Name:       name,
		Func:       fn,
		Args:       args,
		Kwargs:     maps.Clone(kwargs),
		Group:      o.Group,
		Chain:      o.Chain,
		Cached:     o.Cached,
		Sync:       o.Sync,
		Save:       o.Save,
		Hook:       o.Hook,
		IterCount:  o.IterCount,
		IterCached: o.IterCached,
		CreatedAt:  time.Now(),
	}
}
