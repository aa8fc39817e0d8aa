package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantq/pkg/queue"
)

const scheduleColumns = `id, name, func, args, kwargs, hook, kind, minutes, repeats, next_run, last_run, task`

// ScheduleStore implements queue.ScheduleStore on the q_schedule table of the schema in ctx.
type ScheduleStore struct {
	pool *pgxpool.Pool
}

var _ queue.ScheduleStore = (*ScheduleStore)(nil)

// NewScheduleStore creates a schedule store on pool.
func NewScheduleStore(pool *pgxpool.Pool) *ScheduleStore {
	return &ScheduleStore{pool: pool}
}

func scheduleParams(e *queue.ScheduleEntry) ([]any, error) {
	args, err := marshalJSON(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode args of schedule %s: %w", e.ID, err)
	}
	kwargs, err := marshalJSON(e.Kwargs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode kwargs of schedule %s: %w", e.ID, err)
	}
	return []any{
		e.ID, e.Name, e.Func, args, kwargs, e.Hook, string(e.Kind),
		e.Minutes, e.Repeats, e.NextRun, e.LastRun, e.Task,
	}, nil
}

// CreateSchedule implements queue.ScheduleStore
func (s *ScheduleStore) CreateSchedule(ctx context.Context, e *queue.ScheduleEntry) error {
	tbl, err := table(ctx, "q_schedule")
	if err != nil {
		return err
	}
	params, err := scheduleParams(e)
	if err != nil {
		return err
	}
	_, err = DB(ctx, s.pool).Exec(ctx, `INSERT INTO `+tbl+` (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, params...)
	return err
}

// DueSchedules implements queue.ScheduleStore
func (s *ScheduleStore) DueSchedules(ctx context.Context, now time.Time) ([]*queue.ScheduleEntry, error) {
	tbl, err := table(ctx, "q_schedule")
	if err != nil {
		return nil, err
	}
	rows, err := DB(ctx, s.pool).Query(ctx, `SELECT `+scheduleColumns+` FROM `+tbl+`
		WHERE repeats <> 0 AND next_run <= $1
		ORDER BY next_run`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*queue.ScheduleEntry
	for rows.Next() {
		e, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanSchedule(row pgx.Row) (*queue.ScheduleEntry, error) {
	var (
		e            queue.ScheduleEntry
		kind         string
		args, kwargs []byte
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Func, &args, &kwargs, &e.Hook, &kind,
		&e.Minutes, &e.Repeats, &e.NextRun, &e.LastRun, &e.Task); err != nil {
		return nil, err
	}
	e.Kind = queue.ScheduleKind(kind)
	if err := unmarshalJSON(args, &e.Args); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(kwargs, &e.Kwargs); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateSchedule implements queue.ScheduleStore
func (s *ScheduleStore) UpdateSchedule(ctx context.Context, e *queue.ScheduleEntry) error {
	tbl, err := table(ctx, "q_schedule")
	if err != nil {
		return err
	}
	params, err := scheduleParams(e)
	if err != nil {
		return err
	}
	_, err = DB(ctx, s.pool).Exec(ctx, `UPDATE `+tbl+` SET
			name = $2, func = $3, args = $4, kwargs = $5, hook = $6, kind = $7,
			minutes = $8, repeats = $9, next_run = $10, last_run = $11, task = $12
		WHERE id = $1`, params...)
	return err
}

// DeleteSchedule implements queue.ScheduleStore
func (s *ScheduleStore) DeleteSchedule(ctx context.Context, id string) error {
	tbl, err := table(ctx, "q_schedule")
	if err != nil {
		return err
	}
	_, err = DB(ctx, s.pool).Exec(ctx, `DELETE FROM `+tbl+` WHERE id = $1`, id)
	return err
}
