package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tenantq/pkg/logger"
)

// work is the loop of a single worker. It blocks on the broker for up to one
// poll interval at a time until ctx is cancelled.
func (c *Cluster) work(ctx context.Context, workerID string) {
	log := c.logger.With(logger.WorkerID(workerID))
	log.Debug("worker started")
	defer log.Debug("worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		env, err := c.broker.Dequeue(ctx, c.pollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("failed to dequeue task", logger.Error(err))
			// Back off so a broken broker does not spin the loop
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.pollInterval):
			}
			continue
		}
		if env == nil {
			continue
		}

		c.inflight.Add(1)
		c.handle(context.WithoutCancel(ctx), env, log)
		c.inflight.Add(-1)
	}
}

// handle verifies one package, processes it and acknowledges it.
// Tasks already taken off the broker finish even when the cluster stops.
func (c *Cluster) handle(ctx context.Context, env *Envelope, log *slog.Logger) {
	defer func() {
		if err := c.broker.Acknowledge(ctx, env.AckID); err != nil {
			log.Error("failed to acknowledge task", slog.String("ack_id", env.AckID), logger.Error(err))
		}
	}()

	var t Task
	if err := c.signer.Loads(env.Pack, &t); err != nil {
		c.failed.Add(1)
		log.Error("rejected task package", slog.String("ack_id", env.AckID), logger.Error(err))
		return
	}

	if err := c.process(ctx, &t, c.broker); err != nil {
		c.log(ctx, slog.LevelError, "failed to process task", &t, logger.Error(err))
	}
}

// process runs t inside its schema, then collects the result in the same scope.
func (c *Cluster) process(ctx context.Context, t *Task, broker Broker) error {
	if schema := t.Schema(); schema != "" {
		scoped, release, err := c.schemas.Enter(ctx, schema)
		if err != nil {
			return c.reject(ctx, t, fmt.Errorf("failed to enter schema %q for task %s: %w", schema, t.ID, err), broker)
		}
		defer release()
		ctx = scoped
	}

	r := c.execute(ctx, t)
	c.processed.Add(1)
	if !r.Success {
		c.failed.Add(1)
		c.log(ctx, slog.LevelError, "task failed", t,
			logger.Duration(r.Duration()),
			slog.String("error", r.Error))
	} else {
		c.log(ctx, slog.LevelInfo, "task completed successfully", t, logger.Duration(r.Duration()))
	}

	return c.collect(ctx, t, r, broker)
}

// reject records a task whose schema could not be entered as failed. The
// result is collected in the scope of ctx, so hooks run, chains continue and
// iter groups still complete.
func (c *Cluster) reject(ctx context.Context, t *Task, cause error, broker Broker) error {
	now := time.Now()
	r := &Result{
		ID:      t.ID,
		Name:    t.Name,
		Func:    t.Func,
		Args:    t.Args,
		Kwargs:  t.Kwargs,
		Group:   t.Group,
		Error:   cause.Error(),
		Started: now,
		Stopped: now,
	}
	r.Value, _ = json.Marshal(r.Error)

	c.processed.Add(1)
	c.failed.Add(1)
	c.log(ctx, slog.LevelError, "task rejected", t, logger.Error(cause))

	return errors.Join(cause, c.collect(ctx, t, r, broker))
}

// execute calls the task's handler and records the outcome.
func (c *Cluster) execute(ctx context.Context, t *Task) *Result {
	r := &Result{
		ID:      t.ID,
		Name:    t.Name,
		Func:    t.Func,
		Args:    t.Args,
		Kwargs:  t.Kwargs,
		Group:   t.Group,
		Started: time.Now(),
	}

	value, err := c.call(ctx, t)
	if err == nil {
		r.Value, err = json.Marshal(value)
		if err != nil {
			err = fmt.Errorf("failed to marshal result of %s: %w", t.Func, err)
		}
	}
	if err != nil {
		r.Error = err.Error()
		// The error text doubles as the result value, so readers of a failed
		// task get something to show.
		r.Value, _ = json.Marshal(r.Error)
	}
	r.Success = err == nil
	r.Stopped = time.Now()
	return r
}

func (c *Cluster) call(ctx context.Context, t *Task) (value any, err error) {
	h, ok := c.handler(t.Func)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, t.Func)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in handler %s: %v", t.Func, rec)
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	value, err = h.Handle(ctx, t.Args, withoutSchema(t.Kwargs))
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(ErrTaskTimeout, err)
	}
	return value, err
}

// collect saves r, runs the task's hook and enqueues the next chain link.
// The chain continues whether or not the task succeeded.
func (c *Cluster) collect(ctx context.Context, t *Task, r *Result, broker Broker) error {
	var errs []error

	switch {
	case t.Cached:
		if err := c.saveCached(ctx, t, r, broker); err != nil {
			errs = append(errs, err)
		}
	case !r.Success || (t.Save && c.saveResults):
		if err := c.results.SaveResult(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("failed to save result of task %s: %w", t.ID, err))
		}
	}

	if t.Hook != "" {
		c.runHook(ctx, t, r)
	}

	if len(t.Chain) > 0 {
		_, err := c.AsyncChain(ctx, t.Chain,
			WithGroup(t.Group),
			WithCached(t.Cached),
			WithSync(t.Sync),
			WithSave(t.Save),
			WithBroker(broker),
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to continue chain of task %s: %w", t.ID, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Cluster) runHook(ctx context.Context, t *Task, r *Result) {
	fn, ok := c.hook(t.Hook)
	if !ok {
		c.log(ctx, slog.LevelWarn, "hook not registered", t, slog.String("hook", t.Hook))
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			c.log(ctx, slog.LevelError, "hook panicked", t, slog.String("hook", t.Hook), slog.Any("panic", rec))
		}
	}()

	fn(ctx, r)
}

// saveCached stores r under its task key. Grouped results also append that key
// to the group's key list, and the member that completes an iter group collates
// all member results into one result whose id is the group.
func (c *Cluster) saveCached(ctx context.Context, t *Task, r *Result, broker Broker) error {
	cache := broker.Cache()
	listKey := broker.ListKey()

	pack, err := c.signer.Dumps(r)
	if err != nil {
		return err
	}
	key := TaskKey(listKey, t.ID)
	if err := cache.Set(ctx, key, pack, c.cacheTTL); err != nil {
		return fmt.Errorf("failed to cache result of task %s: %w", t.ID, err)
	}

	if t.Group == "" {
		return nil
	}

	n, err := cache.Push(ctx, GroupKeysKey(listKey, t.Group), []byte(key), c.cacheTTL)
	if err != nil {
		return fmt.Errorf("failed to add task %s to group %s: %w", t.ID, t.Group, err)
	}

	if t.IterCount > 0 && n == t.IterCount {
		return c.collateIter(ctx, t, r, broker)
	}
	return nil
}

// collateIter builds the aggregated result of a finished iter group.
func (c *Cluster) collateIter(ctx context.Context, t *Task, last *Result, broker Broker) error {
	members, err := c.cachedGroup(ctx, broker, t.Group, true)
	if err != nil {
		return err
	}

	agg := &Result{
		ID:      t.Group,
		Name:    t.Group,
		Func:    t.Func,
		Kwargs:  t.Kwargs,
		Success: true,
		Started: last.Started,
		Stopped: last.Stopped,
	}

	values := make([]json.RawMessage, 0, len(members))
	for _, m := range members {
		values = append(values, m.Value)
		agg.Success = agg.Success && m.Success
		if m.Started.Before(agg.Started) {
			agg.Started = m.Started
		}
		if m.Stopped.After(agg.Stopped) {
			agg.Stopped = m.Stopped
		}
	}
	if agg.Value, err = json.Marshal(values); err != nil {
		return fmt.Errorf("failed to collate group %s: %w", t.Group, err)
	}

	cache := broker.Cache()
	listKey := broker.ListKey()
	if raw, err := cache.Get(ctx, GroupArgsKey(listKey, t.Group)); err != nil {
		return fmt.Errorf("failed to read args of group %s: %w", t.Group, err)
	} else if raw != nil {
		var args []any
		if err := c.signer.Loads(raw, &args); err != nil {
			return fmt.Errorf("failed to load args of group %s: %w", t.Group, err)
		}
		agg.Args = args
	}

	if t.IterCached {
		pack, err := c.signer.Dumps(agg)
		if err != nil {
			return err
		}
		if err := cache.Set(ctx, TaskKey(listKey, agg.ID), pack, c.cacheTTL); err != nil {
			return fmt.Errorf("failed to cache result of group %s: %w", t.Group, err)
		}
	} else if err := c.results.SaveResult(ctx, agg); err != nil {
		return fmt.Errorf("failed to save result of group %s: %w", t.Group, err)
	}

	c.logger.DebugContext(ctx, "iter group collated",
		logger.TaskGroup(t.Group),
		logger.Count(len(members)),
		slog.Bool("success", agg.Success))
	return nil
}
