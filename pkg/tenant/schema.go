package tenant

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var schemaNameRe = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]{0,62}$`)

// ValidSchemaName reports whether name can be used as a tenant schema.
// Names must be plain PostgreSQL identifiers and must not use the reserved pg_ prefix.
func ValidSchemaName(name string) bool {
	return schemaNameRe.MatchString(name) && !strings.HasPrefix(strings.ToLower(name), "pg_")
}

// SchemaContext activates a database schema for the duration of a scope.
type SchemaContext interface {
	// Enter returns a context in which schema is active together with a release
	// function. Release restores the previous state and must run exactly once,
	// on every exit path.
	Enter(ctx context.Context, schema string) (context.Context, func(), error)
}

// ContextSchemas is a SchemaContext that only records the schema in the context.
// Stores that partition data by SchemaFromContext need nothing more.
type ContextSchemas struct{}

// Enter validates schema and returns a derived context carrying it.
func (ContextSchemas) Enter(ctx context.Context, schema string) (context.Context, func(), error) {
	if err := CheckSchemaName(schema); err != nil {
		return ctx, func() {}, err
	}
	return WithSchema(ctx, schema), func() {}, nil
}

// CheckSchemaName returns ErrNoSchema or ErrInvalidSchemaName when schema is unusable.
func CheckSchemaName(schema string) error {
	if schema == "" {
		return ErrNoSchema
	}
	if !ValidSchemaName(schema) {
		return fmt.Errorf("%w: %q", ErrInvalidSchemaName, schema)
	}
	return nil
}

// Within runs fn inside schema and releases the scope when fn returns or panics.
func Within[T any](ctx context.Context, sc SchemaContext, schema string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	scoped, release, err := sc.Enter(ctx, schema)
	if err != nil {
		return zero, err
	}
	defer release()

	return fn(scoped)
}
