// Package tenant carries tenant identity and the active database schema
// through context.Context.
//
// Every tenant owns a PostgreSQL schema. Code that must run "inside" a tenant
// receives a context produced by WithSchema (or WithTenant), and components that
// touch the database enter that schema through a SchemaContext:
//
//	ctx = tenant.WithSchema(ctx, "testone")
//
//	users, err := tenant.Within(ctx, schemas, "testone", func(ctx context.Context) ([]User, error) {
//		return repo.ListUsers(ctx)
//	})
//
// Within guarantees the scope is released on every exit path, including
// errors and panics raised by the wrapped function.
//
// ContextSchemas is the database-free implementation; pg.SchemaSwitcher
// switches the connection's search_path.
//
// # HTTP
//
// Middleware resolves the tenant of each request (by host, subdomain or
// header), validates its schema name and stores both the tenant and its
// schema in the request context.
//
//	mw := tenant.Middleware(tenant.NewHostResolver(), provider,
//		tenant.WithCacheTTL(10*time.Minute),
//		tenant.WithSkipPaths([]string{"/health"}),
//	)
//
// # Errors
//
//   - ErrTenantNotFound: tenant does not exist
//   - ErrInactiveTenant: tenant exists but is not active
//   - ErrNoTenantInContext: required tenant is missing from context
//   - ErrInvalidSchemaName: schema name is not a safe identifier
//   - ErrNoSchema: a schema scope was requested without a name
package tenant
