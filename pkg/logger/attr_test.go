package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantq/pkg/logger"
)

func TestGroup(t *testing.T) {
	t.Parallel()

	attr := logger.Group("task", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "task", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestSchema(t *testing.T) {
	t.Parallel()

	attr := logger.Schema("testone")
	require.Equal(t, "schema", attr.Key)
	assert.Equal(t, "testone", attr.Value.String())

	assert.True(t, logger.Schema("").Equal(slog.Attr{}))
}

func TestTaskGroup(t *testing.T) {
	t.Parallel()

	attr := logger.TaskGroup("g1")
	require.Equal(t, "group", attr.Key)
	assert.Equal(t, "g1", attr.Value.String())

	assert.True(t, logger.TaskGroup("").Equal(slog.Attr{}))
}

func TestTaskAttrs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attr slog.Attr
		key  string
		val  string
	}{
		{logger.TaskID("abc"), "task_id", "abc"},
		{logger.TaskName("nightly"), "task_name", "nightly"},
		{logger.Func("math.floor"), "func", "math.floor"},
		{logger.WorkerID("w1"), "worker_id", "w1"},
		{logger.Component("scheduler"), "component", "scheduler"},
		{logger.Event("started"), "event", "started"},
		{logger.Handler("mscluster"), "handler", "mscluster"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, tt.attr.Key)
		assert.Equal(t, tt.val, tt.attr.Value.String())
	}
}

func TestCountAndDuration(t *testing.T) {
	t.Parallel()

	c := logger.Count(3)
	require.Equal(t, "count", c.Key)
	assert.Equal(t, int64(3), c.Value.Int64())

	d := logger.Duration(time.Second)
	require.Equal(t, "duration", d.Key)
	assert.Equal(t, time.Second, d.Value.Any())
}
