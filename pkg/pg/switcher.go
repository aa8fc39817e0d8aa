package pg

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and *pgxpool.Conn.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type connKey struct{}

type scopedConn struct {
	conn   *pgxpool.Conn
	schema string
}

// ConnFromContext returns the connection pinned by SchemaSwitcher.Enter.
// Its search_path is the active tenant schema followed by public.
func ConnFromContext(ctx context.Context) (*pgxpool.Conn, bool) {
	sc, ok := ctx.Value(connKey{}).(*scopedConn)
	if !ok || sc == nil {
		return nil, false
	}
	return sc.conn, true
}

// DB returns the connection pinned in ctx, or pool when there is none.
// Task handlers use it to run unqualified queries against their tenant's tables.
func DB(ctx context.Context, pool *pgxpool.Pool) Querier {
	if conn, ok := ConnFromContext(ctx); ok {
		return conn
	}
	return pool
}

// SchemaSwitcher is a tenant.SchemaContext that pins a pooled connection
// with search_path set to the schema for the duration of the scope.
type SchemaSwitcher struct {
	pool *pgxpool.Pool
}

var _ tenant.SchemaContext = (*SchemaSwitcher)(nil)

// NewSchemaSwitcher creates a switcher on pool.
func NewSchemaSwitcher(pool *pgxpool.Pool) *SchemaSwitcher {
	return &SchemaSwitcher{pool: pool}
}

// Enter acquires a connection and sets its search_path to schema, public.
// When ctx already holds a connection in the same schema it is reused and the
// returned release does nothing. Release resets search_path and returns the
// connection to the pool.
func (s *SchemaSwitcher) Enter(ctx context.Context, schema string) (context.Context, func(), error) {
	noop := func() {}
	if err := tenant.CheckSchemaName(schema); err != nil {
		return ctx, noop, err
	}

	if sc, ok := ctx.Value(connKey{}).(*scopedConn); ok && sc != nil && sc.schema == schema {
		return tenant.WithSchema(ctx, schema), noop, nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return ctx, noop, err
	}

	path := pgx.Identifier{schema}.Sanitize() + ", public"
	if _, err := conn.Exec(ctx, "SELECT set_config('search_path', $1, false)", path); err != nil {
		conn.Release()
		return ctx, noop, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if _, err := conn.Exec(context.WithoutCancel(ctx), "RESET search_path"); err != nil {
				// Never hand a connection with a tenant search_path back to the pool
				_ = conn.Conn().Close(context.WithoutCancel(ctx))
			}
			conn.Release()
		})
	}

	scoped := context.WithValue(ctx, connKey{}, &scopedConn{conn: conn, schema: schema})
	return tenant.WithSchema(scoped, schema), release, nil
}
