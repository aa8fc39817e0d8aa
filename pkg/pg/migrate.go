package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

//go:embed migrations/public/*.sql migrations/tenant/*.sql
var migrations embed.FS

const (
	publicMigrationsDir = "migrations/public"
	tenantMigrationsDir = "migrations/tenant"
)

// goose keeps its dialect, table name and file system in package globals.
var gooseMu sync.Mutex

// logger defines the interface required for migration logging integration.
// Compatible with slog and other structured loggers.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// Migrate creates the tenant registry in the shared schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log logger) error {
	// Bridge pgx connection pool to database/sql interface required by goose.
	db := stdlib.OpenDBFromPool(pool)
	defer closeDB(ctx, db, log)

	return up(ctx, db, cfg, publicMigrationsDir, log)
}

// MigrateSchema creates schema when missing and applies the task tables to it.
// It uses a dedicated connection whose search_path is the schema, so goose's
// version table and every unqualified table land inside it.
func MigrateSchema(ctx context.Context, cfg Config, schema string, log logger) error {
	if err := tenant.CheckSchemaName(schema); err != nil {
		return err
	}

	connCfg, err := pgx.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return errors.Join(ErrFailedToParseDBConfig, err)
	}
	connCfg.RuntimeParams["search_path"] = schema

	db := stdlib.OpenDB(*connCfg)
	defer closeDB(ctx, db, log)

	ident := pgx.Identifier{schema}.Sanitize()
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, fmt.Errorf("create schema %s: %w", ident, err))
	}

	return up(ctx, db, cfg, tenantMigrationsDir, log)
}

func up(ctx context.Context, db *sql.DB, cfg Config, dir string, log logger) error {
	if cfg.MigrationsTable == "" {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationTableNotSet)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	// Route goose migration logs through application logger instead of stdout.
	goose.SetLogger(newSlogAdapter(log))
	goose.SetTableName(cfg.MigrationsTable)
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	return nil
}

func closeDB(ctx context.Context, db *sql.DB, log logger) {
	if err := db.Close(); err != nil {
		log.ErrorContext(ctx, "Failed to close database connection", "error", err)
	}
}

// migrateSlogAdapter bridges goose's Printf-style logging to structured logging.
// Maps goose's Fatalf to ErrorContext and Printf to InfoContext for consistency.
type migrateSlogAdapter struct {
	log logger
}

func newSlogAdapter(log logger) goose.Logger {
	return &migrateSlogAdapter{
		log: log,
	}
}

func (a *migrateSlogAdapter) Fatalf(format string, v ...any) {
	a.log.ErrorContext(context.Background(), fmt.Sprintf(format, v...))
}

func (a *migrateSlogAdapter) Printf(format string, v ...any) {
	a.log.InfoContext(context.Background(), fmt.Sprintf(format, v...))
}
