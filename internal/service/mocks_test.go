package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/fleex/storefront-api/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockUserStore keeps tenant profiles in memory, keyed by ID.
type mockUserStore struct {
	mu    sync.Mutex
	users map[string]*model.UserProfile
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]*model.UserProfile)}
}

func (m *mockUserStore) GetUser(_ context.Context, tenantID string) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[tenantID]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, nil
}

func (m *mockUserStore) CreateUser(_ context.Context, user model.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = &user
	return nil
}

func (m *mockUserStore) UpdateUser(_ context.Context, tenantID string, apply func(*model.UserProfile)) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[tenantID]
	if u == nil {
		return nil, errors.New("tenant not found")
	}
	apply(u)
	clone := *u
	return &clone, nil
}

func (m *mockUserStore) FindUserByEmail(_ context.Context, email string) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) FindUserBySlug(_ context.Context, slug string) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Slug == slug {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) LogActivity(_ context.Context, tenantID, actor, action, details string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.users[tenantID]; u != nil {
		u.ActivityLogs = append([]model.ActivityLog{{ActorName: actor, Action: action, Details: details}}, u.ActivityLogs...)
	}
	return nil
}

// mockCatalogStore serves a fixed catalog per tenant.
type mockCatalogStore struct {
	mu         sync.Mutex
	links      []model.LinkItem
	products   []model.Product
	categories []model.Category
	coupons    []model.Coupon
}

func (m *mockCatalogStore) GetLinks(_ context.Context, _ string) ([]model.LinkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.LinkItem(nil), m.links...), nil
}

func (m *mockCatalogStore) SetLinks(_ context.Context, _ string, links []model.LinkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = links
	return nil
}

func (m *mockCatalogStore) GetProducts(_ context.Context, _ string) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Product(nil), m.products...), nil
}

func (m *mockCatalogStore) SetProducts(_ context.Context, _ string, products []model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = products
	return nil
}

func (m *mockCatalogStore) GetCategories(_ context.Context, _ string) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Category(nil), m.categories...), nil
}

func (m *mockCatalogStore) SetCategories(_ context.Context, _ string, categories []model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = categories
	return nil
}

func (m *mockCatalogStore) GetCoupons(_ context.Context, _ string) ([]model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Coupon(nil), m.coupons...), nil
}

func (m *mockCatalogStore) SetCoupons(_ context.Context, _ string, coupons []model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons = coupons
	return nil
}

// mockOrderStore records orders, abandoned carts and stock decrements.
type mockOrderStore struct {
	mu         sync.Mutex
	orders     []model.Order
	abandoned  []model.AbandonedCart
	decrements [][]model.CartItem
}

func (m *mockOrderStore) ListOrders(_ context.Context, _ string) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Order(nil), m.orders...), nil
}

func (m *mockOrderStore) AddOrder(_ context.Context, _ string, order model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrderStore) UpdateOrder(_ context.Context, _, orderID string, patch model.OrderPatch) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID != orderID {
			continue
		}
		if patch.Status != nil {
			m.orders[i].Status = *patch.Status
		}
		if patch.PaymentMethod != nil {
			m.orders[i].PaymentMethod = *patch.PaymentMethod
		}
		if patch.TrackingCode != nil {
			m.orders[i].TrackingCode = *patch.TrackingCode
		}
	}
	return append([]model.Order(nil), m.orders...), nil
}

func (m *mockOrderStore) ListAbandonedCarts(_ context.Context, _ string) ([]model.AbandonedCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AbandonedCart(nil), m.abandoned...), nil
}

func (m *mockOrderStore) SaveAbandonedCart(_ context.Context, _ string, cart model.AbandonedCart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = append(m.abandoned, cart)
	return nil
}

func (m *mockOrderStore) DecrementStock(_ context.Context, _ string, items []model.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decrements = append(m.decrements, items)
	return nil
}

// mockCartCache mirrors the redis cache contract: saving an empty cart clears
// the entry.
type mockCartCache struct {
	mu    sync.Mutex
	carts map[string][]model.CartItem
}

func newMockCartCache() *mockCartCache {
	return &mockCartCache{carts: make(map[string][]model.CartItem)}
}

func (m *mockCartCache) key(tenantID, sessionID string) string { return tenantID + ":" + sessionID }

func (m *mockCartCache) Save(_ context.Context, tenantID, sessionID string, items []model.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(items) == 0 {
		delete(m.carts, m.key(tenantID, sessionID))
		return nil
	}
	m.carts[m.key(tenantID, sessionID)] = append([]model.CartItem(nil), items...)
	return nil
}

func (m *mockCartCache) Load(_ context.Context, tenantID, sessionID string) ([]model.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[m.key(tenantID, sessionID)], nil
}

func (m *mockCartCache) Clear(_ context.Context, tenantID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, m.key(tenantID, sessionID))
	return nil
}
