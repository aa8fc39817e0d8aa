package tenantq_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantq/pkg/queue"
	"github.com/dmitrymomot/tenantq/pkg/tenant"
	"github.com/dmitrymomot/tenantq/pkg/tenantq"
)

type mockSchemas struct {
	mock.Mock
}

func (m *mockSchemas) Enter(ctx context.Context, schema string) (context.Context, func(), error) {
	args := m.Called(ctx, schema)
	if err := args.Error(1); err != nil {
		return nil, nil, err
	}
	release, _ := args.Get(0).(func())
	return tenant.WithSchema(ctx, schema), release, nil
}

func TestReadsEnterCallerSchema(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ctx := tenant.WithSchema(context.Background(), "testone")
	id, err := e.utils.AddAsyncTask(ctx, "math.floor", []any{2.5}, nil, queue.WithSync(true))
	require.NoError(t, err)

	released := 0
	sc := &mockSchemas{}
	sc.On("Enter", mock.Anything, "testone").Return(func() { released++ }, nil).Once()

	u, err := tenantq.New(e.cluster, sc)
	require.NoError(t, err)

	raw, err := u.GetResult(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, decodeFloat(t, raw), 0)
	assert.Equal(t, 1, released)
	sc.AssertExpectations(t)
}

func TestReadsUseDefaultSchema(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	sc := &mockSchemas{}
	sc.On("Enter", mock.Anything, "shared").Return(func() {}, nil).Once()

	u, err := tenantq.New(e.cluster, sc, tenantq.WithDefaultSchema("shared"))
	require.NoError(t, err)

	raw, err := u.GetResult(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, raw)
	sc.AssertExpectations(t)
}

func TestReadsPropagateEnterError(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	errSwitch := errors.New("switch failed")
	sc := &mockSchemas{}
	sc.On("Enter", mock.Anything, "testtwo").Return(nil, errSwitch).Once()

	u, err := tenantq.New(e.cluster, sc)
	require.NoError(t, err)

	_, err = u.FetchTask(tenant.WithSchema(context.Background(), "testtwo"), "any")
	require.ErrorIs(t, err, errSwitch)
	sc.AssertExpectations(t)
}

func TestWritesDoNotEnterSchema(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	sc := &mockSchemas{}

	u, err := tenantq.New(e.cluster, sc)
	require.NoError(t, err)

	_, err = u.AddAsyncTask(tenant.WithSchema(context.Background(), "testone"), "math.floor", []any{1.5}, nil)
	require.NoError(t, err)

	task := e.nextTask(t)
	assert.Equal(t, "testone", task.Kwargs[queue.SchemaKwarg])
	sc.AssertNotCalled(t, "Enter", mock.Anything, mock.Anything)
}
