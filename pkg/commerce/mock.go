package commerce

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
)

// MockData seeds deterministic storefront responses for tests or local demos.
type MockData struct {
	DefaultCollection string
	Collections       map[string][]dashboard.Product
	Carts             map[string]dashboard.Cart
}

// MockStorefront implements Client using in-memory fixtures.
type MockStorefront struct {
	data MockData
	mu   sync.RWMutex
}

// NewMockStorefront builds a mock storefront from the provided fixtures.
func NewMockStorefront(data MockData) *MockStorefront {
	return &MockStorefront{data: data}
}

// DefaultCollection returns the fixture's default handle.
func (m *MockStorefront) DefaultCollection() string {
	return m.data.DefaultCollection
}

// ProductsByCollection returns up to first products of the collection.
func (m *MockStorefront) ProductsByCollection(_ context.Context, handle string, first int) ([]dashboard.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return limit(cloneProducts(m.data.Collections[handle]), first), nil
}

// ProductByHandle searches every collection for the handle.
func (m *MockStorefront) ProductByHandle(_ context.Context, handle string) (*dashboard.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, products := range m.data.Collections {
		for _, p := range products {
			if p.Handle == handle {
				found := p
				return &found, nil
			}
		}
	}
	return nil, nil
}

// SearchProducts matches titles case-insensitively.
func (m *MockStorefront) SearchProducts(_ context.Context, query string, first int) ([]dashboard.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	query = strings.ToLower(query)
	var out []dashboard.Product
	seen := map[string]bool{}
	for _, handle := range m.collectionHandles() {
		for _, p := range m.data.Collections[handle] {
			if !seen[p.ID] && strings.Contains(strings.ToLower(p.Title), query) {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
	}
	return limit(out, first), nil
}

// Collections lists fixture collection handles.
func (m *MockStorefront) Collections(_ context.Context, first int) ([]Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handles := m.collectionHandles()
	out := make([]Collection, 0, len(handles))
	for _, h := range handles {
		out = append(out, Collection{Handle: h, Title: h})
	}
	if first > 0 && len(out) > first {
		out = out[:first]
	}
	return out, nil
}

// Cart returns the member's fixture cart, if any.
func (m *MockStorefront) Cart(_ context.Context, userID string) (*dashboard.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cart, ok := m.data.Carts[userID]
	if !ok {
		return nil, nil
	}
	return &cart, nil
}

func (m *MockStorefront) collectionHandles() []string {
	handles := make([]string, 0, len(m.data.Collections))
	for h := range m.data.Collections {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles
}

// MockSource serves the same storefront to the listed organizations.
type MockSource struct {
	Store         dashboard.Storefront
	Organizations map[string]bool
}

// Storefront returns Store for enabled organizations.
func (s MockSource) Storefront(_ context.Context, orgID string) (dashboard.Storefront, error) {
	if s.Store == nil || !s.Organizations[orgID] {
		return nil, nil
	}
	return s.Store, nil
}

func cloneProducts(products []dashboard.Product) []dashboard.Product {
	out := make([]dashboard.Product, len(products))
	copy(out, products)
	return out
}

func limit(products []dashboard.Product, first int) []dashboard.Product {
	if first > 0 && len(products) > first {
		return products[:first]
	}
	if products == nil {
		return []dashboard.Product{}
	}
	return products
}

var (
	_ Client                   = (*MockStorefront)(nil)
	_ dashboard.CommerceSource = MockSource{}
)
