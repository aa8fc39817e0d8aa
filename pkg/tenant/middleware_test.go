package tenant_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("stores tenant and schema in context", func(t *testing.T) {
		t.Parallel()

		provider := newMockProvider()
		testTenant := createTestTenant("testone", true)
		provider.addTenant(testTenant)

		mw := tenant.Middleware(tenant.NewHostResolver(), provider)
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := tenant.FromContext(r.Context())
			require.True(t, ok)
			assert.Equal(t, testTenant, got)

			schema, ok := tenant.SchemaFromContext(r.Context())
			require.True(t, ok)
			assert.Equal(t, "testone", schema)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Host = "testone.testproject.localhost"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("continues without tenant when no identifier", func(t *testing.T) {
		t.Parallel()

		mw := tenant.Middleware(tenant.NewHeaderResolver(""), newMockProvider())
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := tenant.SchemaFromContext(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown tenant is 404", func(t *testing.T) {
		t.Parallel()

		mw := tenant.Middleware(tenant.NewHeaderResolver(""), newMockProvider())
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "missing")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("inactive tenant is 403", func(t *testing.T) {
		t.Parallel()

		provider := newMockProvider()
		provider.addTenant(createTestTenant("testtwo", false))

		mw := tenant.Middleware(tenant.NewHeaderResolver(""), provider)
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "testtwo")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("invalid schema name is 400", func(t *testing.T) {
		t.Parallel()

		provider := newMockProvider()
		bad := createTestTenant("bad-schema", true)
		provider.addTenant(bad)

		mw := tenant.Middleware(tenant.NewHeaderResolver(""), provider)
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "bad-schema")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("caches provider lookups", func(t *testing.T) {
		t.Parallel()

		provider := newMockProvider()
		provider.addTenant(createTestTenant("testone", true))

		mw := tenant.Middleware(tenant.NewHeaderResolver(""), provider)
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Tenant-ID", "testone")
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}
		assert.Equal(t, 1, provider.callCount())
	})

	t.Run("skip paths bypass resolution", func(t *testing.T) {
		t.Parallel()

		provider := newMockProvider()
		mw := tenant.Middleware(tenant.NewHeaderResolver(""), provider, tenant.WithSkipPaths([]string{"/health"}))
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Tenant-ID", "missing")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, provider.callCount())
	})
}

func TestRequireTenant(t *testing.T) {
	t.Parallel()

	handler := tenant.RequireTenant(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(tenant.WithTenant(req.Context(), createTestTenant("testone", true)))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
