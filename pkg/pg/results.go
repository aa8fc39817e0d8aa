package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantq/pkg/queue"
	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

// table returns the schema-qualified name of table for the schema in ctx.
func table(ctx context.Context, name string) (string, error) {
	schema, ok := tenant.SchemaFromContext(ctx)
	if !ok {
		return "", ErrNoSchemaInContext
	}
	if err := tenant.CheckSchemaName(schema); err != nil {
		return "", err
	}
	return pgx.Identifier{schema, name}.Sanitize(), nil
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

const resultColumns = `id, name, func, args, kwargs, group_id, result, error, success, started, stopped`

// ResultStore implements queue.ResultStore on the q_task table of the schema in ctx.
type ResultStore struct {
	pool *pgxpool.Pool
}

var _ queue.ResultStore = (*ResultStore)(nil)

// NewResultStore creates a result store on pool.
func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// SaveResult implements queue.ResultStore
func (s *ResultStore) SaveResult(ctx context.Context, r *queue.Result) error {
	tbl, err := table(ctx, "q_task")
	if err != nil {
		return err
	}
	args, err := marshalJSON(r.Args)
	if err != nil {
		return fmt.Errorf("failed to encode args of task %s: %w", r.ID, err)
	}
	kwargs, err := marshalJSON(r.Kwargs)
	if err != nil {
		return fmt.Errorf("failed to encode kwargs of task %s: %w", r.ID, err)
	}
	var value []byte
	if len(r.Value) > 0 {
		value = r.Value
	}

	_, err = DB(ctx, s.pool).Exec(ctx, `INSERT INTO `+tbl+` (`+resultColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			func = EXCLUDED.func,
			args = EXCLUDED.args,
			kwargs = EXCLUDED.kwargs,
			group_id = EXCLUDED.group_id,
			result = EXCLUDED.result,
			error = EXCLUDED.error,
			success = EXCLUDED.success,
			started = EXCLUDED.started,
			stopped = EXCLUDED.stopped`,
		r.ID, r.Name, r.Func, args, kwargs, r.Group, value, r.Error, r.Success, r.Started, r.Stopped)
	return err
}

func scanResult(row pgx.Row) (*queue.Result, error) {
	var (
		r            queue.Result
		args, kwargs []byte
		value        []byte
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Func, &args, &kwargs, &r.Group, &value, &r.Error, &r.Success, &r.Started, &r.Stopped); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(args, &r.Args); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(kwargs, &r.Kwargs); err != nil {
		return nil, err
	}
	if len(value) > 0 {
		r.Value = value
	}
	return &r, nil
}

// GetResult implements queue.ResultStore
func (s *ResultStore) GetResult(ctx context.Context, id string) (*queue.Result, error) {
	tbl, err := table(ctx, "q_task")
	if err != nil {
		return nil, err
	}
	r, err := scanResult(DB(ctx, s.pool).QueryRow(ctx, `SELECT `+resultColumns+` FROM `+tbl+` WHERE id = $1`, id))
	if IsNotFoundError(err) {
		return nil, nil
	}
	return r, err
}

// GetGroup implements queue.ResultStore
func (s *ResultStore) GetGroup(ctx context.Context, group string, failures bool) ([]*queue.Result, error) {
	tbl, err := table(ctx, "q_task")
	if err != nil {
		return nil, err
	}
	rows, err := DB(ctx, s.pool).Query(ctx, `SELECT `+resultColumns+` FROM `+tbl+`
		WHERE group_id = $1 AND group_id <> '' AND (success OR $2)
		ORDER BY stopped`, group, failures)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*queue.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountGroup implements queue.ResultStore
func (s *ResultStore) CountGroup(ctx context.Context, group string, failures bool) (int, error) {
	tbl, err := table(ctx, "q_task")
	if err != nil {
		return 0, err
	}
	var n int
	err = DB(ctx, s.pool).QueryRow(ctx, `SELECT count(*) FROM `+tbl+`
		WHERE group_id = $1 AND group_id <> '' AND (NOT success OR NOT $2)`, group, failures).Scan(&n)
	return n, err
}

// DeleteGroup implements queue.ResultStore
func (s *ResultStore) DeleteGroup(ctx context.Context, group string, tasks bool) (int, error) {
	tbl, err := table(ctx, "q_task")
	if err != nil {
		return 0, err
	}
	query := `UPDATE ` + tbl + ` SET group_id = '' WHERE group_id = $1 AND group_id <> ''`
	if tasks {
		query = `DELETE FROM ` + tbl + ` WHERE group_id = $1 AND group_id <> ''`
	}
	tag, err := DB(ctx, s.pool).Exec(ctx, query, group)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteResult implements queue.ResultStore
func (s *ResultStore) DeleteResult(ctx context.Context, id string) error {
	tbl, err := table(ctx, "q_task")
	if err != nil {
		return err
	}
	_, err = DB(ctx, s.pool).Exec(ctx, `DELETE FROM `+tbl+` WHERE id = $1`, id)
	return err
}
