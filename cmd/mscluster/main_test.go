package main

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantq/pkg/config"
)

func setupEnv(t *testing.T, broker string) {
	t.Helper()
	config.ResetCache()
	t.Cleanup(config.ResetCache)

	t.Setenv("QUEUE_SECRET_KEY", "test-secret")
	t.Setenv("QUEUE_BROKER", broker)
	t.Setenv("QUEUE_NAME", "mscluster-test")
	t.Setenv("QUEUE_POLL_INTERVAL", "10ms")
	t.Setenv("QUEUE_WORKERS", "2")
	t.Setenv("PG_CONN_URL", "")
	t.Setenv("MONITOR_ADDR", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestRunOnceWithEmptyQueue(t *testing.T) {
	setupEnv(t, brokerMemory)

	_, err := execute(t, "--run-once")
	require.NoError(t, err)
}

func TestUnknownBroker(t *testing.T) {
	setupEnv(t, "kafka")

	_, err := execute(t, "--run-once")
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnknownBroker)
}

func TestMissingSecret(t *testing.T) {
	setupEnv(t, brokerMemory)
	t.Setenv("QUEUE_SECRET_KEY", "")

	_, err := execute(t, "--run-once")
	require.Error(t, err)
}

func TestInfoCommand(t *testing.T) {
	setupEnv(t, brokerMemory)

	out, err := execute(t, "info", "--plain")
	require.NoError(t, err)

	assert.Contains(t, out, "mscluster-test")
	assert.Contains(t, out, "Queue size")
	assert.Contains(t, out, "memory")
	assert.Contains(t, out, "disabled")
	assert.NotContains(t, out, "╭")
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	t.Run("rounded", func(t *testing.T) {
		t.Parallel()
		out := renderTable([]string{"Name", "Count"}, [][]string{{"alpha", "1"}, {"beta"}}, []columnAlignment{alignLeft, alignRight}, false)
		assert.Contains(t, out, "╭")
		assert.Contains(t, out, "alpha")
		assert.Contains(t, out, "beta")
	})

	t.Run("plain", func(t *testing.T) {
		t.Parallel()
		out := renderTable([]string{"Name"}, [][]string{{"alpha"}}, nil, true)
		assert.NotContains(t, out, "╭")
		assert.NotContains(t, out, "│")
		assert.Contains(t, out, "alpha")
	})

	t.Run("no headers", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, renderTable(nil, [][]string{{"x"}}, nil, false))
	})
}
