package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type (
	tenantKey struct{}
	schemaKey struct{}
)

// WithTenant adds a tenant to the context.
// The tenant's schema becomes the active schema unless WithSchema overrides it later.
func WithTenant(ctx context.Context, tenant *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

// FromContext retrieves the tenant from the context.
// Returns nil, false if no tenant is found.
func FromContext(ctx context.Context) (*Tenant, bool) {
	tenant, ok := ctx.Value(tenantKey{}).(*Tenant)
	return tenant, ok
}

// IDFromContext retrieves just the tenant ID from the context.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenant, ok := FromContext(ctx)
	if !ok || tenant == nil {
		return uuid.UUID{}, false
	}
	return tenant.ID, true
}

// MustFromContext retrieves the tenant from the context.
// Panics if no tenant is found.
func MustFromContext(ctx context.Context) *Tenant {
	tenant, ok := FromContext(ctx)
	if !ok || tenant == nil {
		panic("tenant: no tenant in context")
	}
	return tenant
}

// WithSchema marks schema as the active schema for everything derived from ctx.
func WithSchema(ctx context.Context, schema string) context.Context {
	return context.WithValue(ctx, schemaKey{}, schema)
}

// SchemaFromContext returns the active schema name.
// An explicit WithSchema value wins over the schema of a tenant stored with WithTenant.
func SchemaFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if schema, ok := ctx.Value(schemaKey{}).(string); ok && schema != "" {
		return schema, true
	}
	if t, ok := FromContext(ctx); ok && t != nil && t.Schema != "" {
		return t.Schema, true
	}
	return "", false
}

// LoggerExtractor returns a logger context extractor that adds the active schema.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if schema, ok := SchemaFromContext(ctx); ok {
			return slog.String("schema", schema), true
		}
		return slog.Attr{}, false
	}
}
