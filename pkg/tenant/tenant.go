package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PublicSchema is the shared schema that holds the tenant registry.
const PublicSchema = "public"

// Tenant represents a tenant with the schema that isolates its data.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Schema    string    `json:"schema_name"`
	DomainURL string    `json:"domain_url"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider loads tenant information from a data source.
type Provider interface {
	// GetByIdentifier retrieves a tenant using any unique identifier:
	// domain URL, schema name or UUID.
	// Returns ErrTenantNotFound if no tenant matches the identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error)
}

// SchemaLister enumerates the schemas of all known tenants.
// Background components (e.g. the scheduler) use it to visit every tenant.
type SchemaLister interface {
	Schemas(ctx context.Context) ([]string, error)
}

// StaticSchemas is a SchemaLister over a fixed list of schema names.
type StaticSchemas []string

// Schemas returns a copy of the list.
func (s StaticSchemas) Schemas(context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}
