package environment

import (
	"context"
	"strings"
)

// Environment names the deployment a process runs in.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Staging     Environment = "staging"
)

// Parse normalizes an environment name. The short aliases dev, prod and
// stage are accepted; anything else is returned lowercased as is.
func Parse(s string) Environment {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "dev":
		return Development
	case "prod":
		return Production
	case "stage":
		return Staging
	default:
		return Environment(v)
	}
}

type contextKey struct{}

// WithContext stores env in ctx.
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext returns the environment stored in ctx, or an empty one.
func FromContext(ctx context.Context) Environment {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(Environment)
	return env
}

func IsProduction(ctx context.Context) bool {
	return Parse(string(FromContext(ctx))) == Production
}

func IsDevelopment(ctx context.Context) bool {
	return Parse(string(FromContext(ctx))) == Development
}

func IsStaging(ctx context.Context) bool {
	return Parse(string(FromContext(ctx))) == Staging
}
