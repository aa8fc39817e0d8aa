package tenantq

import (
	"log/slog"
)

// Option configures Utilities.
type Option func(*Utilities)

// WithLogger sets the logger used for configuration errors.
func WithLogger(l *slog.Logger) Option {
	return func(u *Utilities) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithDefaultSchema sets the schema used when neither the kwargs nor the
// context name one. The default is the shared public schema; an empty name
// disables the fallback.
func WithDefaultSchema(schema string) Option {
	return func(u *Utilities) {
		u.defaultSchema = schema
	}
}
