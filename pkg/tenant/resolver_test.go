package tenant_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

func TestHostResolver(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "TestOne.testproject.localhost:8000"

	id, err := tenant.NewHostResolver().Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "testone.testproject.localhost", id)
}

func TestSubdomainResolver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		suffix string
		host   string
		want   string
	}{
		{name: "subdomain", host: "testone.testproject.localhost", want: "testone"},
		{name: "with port", host: "testtwo.testproject.localhost:8000", want: "testtwo"},
		{name: "www skipped", host: "www.testone.example.com", want: "testone"},
		{name: "base domain", host: "example.com", want: ""},
		{name: "with suffix", suffix: ".testproject.localhost", host: "testone.testproject.localhost", want: "testone"},
		{name: "suffix mismatch", suffix: ".testproject.localhost", host: "testone.other.localhost", want: ""},
		{name: "suffix only", suffix: ".testproject.localhost", host: ".testproject.localhost", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host

			id, err := tenant.NewSubdomainResolver(tt.suffix).Resolve(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestHeaderResolver(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", " testone ")

	id, err := tenant.NewHeaderResolver("").Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "testone", id)
}

func TestCompositeResolver(t *testing.T) {
	t.Parallel()

	t.Run("first non-empty wins", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "testtwo")
		req.Host = "localhost"

		r := tenant.NewCompositeResolver(
			tenant.NewSubdomainResolver(""),
			tenant.NewHeaderResolver("X-Tenant-ID"),
		)
		id, err := r.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "testtwo", id)
	})

	t.Run("joins errors when nothing resolves", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		r := tenant.NewCompositeResolver(
			tenant.ResolverFunc(func(*http.Request) (string, error) { return "", boom }),
			tenant.NewHeaderResolver(""),
		)
		_, err := r.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, err, boom)
	})
}
