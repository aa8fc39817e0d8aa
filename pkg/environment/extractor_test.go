package environment_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/tenantq/pkg/environment"
)

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := environment.LoggerExtractor()

	attr, ok := extract(environment.WithContext(context.Background(), environment.Staging))
	assert.True(t, ok)
	assert.Equal(t, "env", attr.Key)
	assert.Equal(t, "staging", attr.Value.String())

	attr, ok = extract(context.Background())
	assert.False(t, ok)
	assert.Equal(t, slog.Attr{}, attr)

	_, ok = extract(environment.WithContext(context.Background(), ""))
	assert.False(t, ok)
}
