package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tenantq/pkg/logger"
	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

// runScheduler checks for due schedule entries every scheduler interval.
func (c *Cluster) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(c.schedulerInterval)
	defer ticker.Stop()

	log := c.logger.With(logger.Component("scheduler"))

	// Check immediately on start
	c.checkSchedules(ctx, log)

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler shutting down")
			return
		case <-ticker.C:
			c.checkSchedules(ctx, log)
		}
	}
}

func (c *Cluster) checkSchedules(ctx context.Context, log *slog.Logger) {
	n, err := c.EnqueueDue(ctx, time.Now())
	if err != nil {
		log.Error("failed to enqueue scheduled tasks", logger.Error(err))
	}
	if n > 0 {
		log.Debug("enqueued scheduled tasks", logger.Count(n))
	}
}

// EnqueueDue walks every schema from the schema lister, enqueues the entries
// due at now inside that schema and advances them. It returns the number of
// tasks enqueued.
func (c *Cluster) EnqueueDue(ctx context.Context, now time.Time) (int, error) {
	if c.schedules == nil {
		return 0, ErrNoScheduleStore
	}
	if c.lister == nil {
		return 0, nil
	}

	schemas, err := c.lister.Schemas(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list schemas: %w", err)
	}

	var (
		total int
		errs  []error
	)
	for _, schema := range schemas {
		n, err := tenant.Within(ctx, c.schemas, schema, func(ctx context.Context) (int, error) {
			return c.enqueueDueInSchema(ctx, now)
		})
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("schema %s: %w", schema, err))
		}
	}
	return total, errors.Join(errs...)
}

func (c *Cluster) enqueueDueInSchema(ctx context.Context, now time.Time) (int, error) {
	due, err := c.schedules.DueSchedules(ctx, now)
	if err != nil {
		return 0, err
	}

	n := 0
	var errs []error
	for _, e := range due {
		if err := c.runEntry(ctx, e, now); err != nil {
			errs = append(errs, fmt.Errorf("schedule %s: %w", e.ID, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// runEntry enqueues one due entry and then advances, updates or deletes it.
func (c *Cluster) runEntry(ctx context.Context, e *ScheduleEntry, now time.Time) error {
	id, err := c.AsyncTask(ctx, e.Func, e.Args, e.Kwargs,
		WithTaskName(e.Name),
		WithHook(e.Hook),
	)
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "created scheduled task",
		slog.String("schedule_id", e.ID),
		logger.TaskID(id),
		logger.TaskName(e.Name),
		slog.Time("scheduled_for", e.NextRun))

	e.Task = id
	e.LastRun = &now
	if e.Repeats > 0 {
		e.Repeats--
	}

	if e.Kind == ScheduleOnce || e.Repeats == 0 {
		return c.schedules.DeleteSchedule(ctx, e.ID)
	}

	e.Advance(now)
	return c.schedules.UpdateSchedule(ctx, e)
}
