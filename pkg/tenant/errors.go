package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidIdentifier is returned when the identifier format is invalid.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrInactiveTenant is returned when trying to use an inactive tenant.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// ErrInvalidSchemaName is returned for names that are not safe PostgreSQL schema identifiers.
	ErrInvalidSchemaName = errors.New("invalid schema name")

	// ErrNoSchema is returned when a schema scope is requested without a schema name.
	ErrNoSchema = errors.New("no schema name was provided")
)
