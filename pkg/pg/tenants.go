package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

const tenantColumns = `id, schema_name, domain_url, name, active, created_at`

// TenantStore keeps the tenant registry in the shared schema. It is both the
// tenant.Provider behind the HTTP middleware and the tenant.SchemaLister the
// scheduler walks.
type TenantStore struct {
	pool *pgxpool.Pool
	cfg  Config
	log  logger
}

var (
	_ tenant.Provider     = (*TenantStore)(nil)
	_ tenant.SchemaLister = (*TenantStore)(nil)
)

// NewTenantStore creates a registry on pool. cfg and log are used to migrate
// the schemas of newly created tenants.
func NewTenantStore(pool *pgxpool.Pool, cfg Config, log logger) *TenantStore {
	return &TenantStore{pool: pool, cfg: cfg, log: log}
}

func (s *TenantStore) tbl() string {
	return pgx.Identifier{tenant.PublicSchema, "tenants"}.Sanitize()
}

// Create registers t and migrates its schema. A zero ID is generated.
func (s *TenantStore) Create(ctx context.Context, t *tenant.Tenant) error {
	if err := tenant.CheckSchemaName(t.Schema); err != nil {
		return err
	}
	if t.Schema == tenant.PublicSchema {
		return fmt.Errorf("%w: %q is the shared schema", tenant.ErrInvalidSchemaName, t.Schema)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	err := s.pool.QueryRow(ctx, `INSERT INTO `+s.tbl()+` (id, schema_name, domain_url, name, active)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		t.ID, t.Schema, t.DomainURL, t.Name, t.Active).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to register tenant %s: %w", t.Schema, err)
	}

	return MigrateSchema(ctx, s.cfg, t.Schema, s.log)
}

// GetByIdentifier implements tenant.Provider. The identifier may be the
// tenant id, its schema name or its domain URL.
func (s *TenantStore) GetByIdentifier(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	if identifier == "" {
		return nil, tenant.ErrInvalidIdentifier
	}

	var (
		t   tenant.Tenant
		row pgx.Row
	)
	if id, err := uuid.Parse(identifier); err == nil {
		row = s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM `+s.tbl()+` WHERE id = $1`, id)
	} else {
		row = s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM `+s.tbl()+`
			WHERE schema_name = $1 OR domain_url = $1 LIMIT 1`, identifier)
	}

	if err := row.Scan(&t.ID, &t.Schema, &t.DomainURL, &t.Name, &t.Active, &t.CreatedAt); err != nil {
		if IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Schemas implements tenant.SchemaLister over active tenants.
func (s *TenantStore) Schemas(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT schema_name FROM `+s.tbl()+` WHERE active ORDER BY schema_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Deactivate marks a tenant inactive. Its schema and data are kept.
func (s *TenantStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE `+s.tbl()+` SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}
