package tenant_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

// mockProvider is a mock implementation of tenant.Provider
type mockProvider struct {
	mu      sync.Mutex
	tenants map[string]*tenant.Tenant
	calls   int
}

func newMockProvider() *mockProvider {
	return &mockProvider{tenants: make(map[string]*tenant.Tenant)}
}

func (m *mockProvider) addTenant(t *tenant.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.Schema] = t
	m.tenants[t.DomainURL] = t
}

func (m *mockProvider) GetByIdentifier(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if t, ok := m.tenants[identifier]; ok {
		return t, nil
	}
	return nil, tenant.ErrTenantNotFound
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func createTestTenant(schema string, active bool) *tenant.Tenant {
	return &tenant.Tenant{
		ID:        uuid.New(),
		Schema:    schema,
		DomainURL: schema + ".testproject.localhost",
		Name:      "Test " + schema,
		Active:    active,
		CreatedAt: time.Now(),
	}
}
