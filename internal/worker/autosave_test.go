package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleex/storefront-api/internal/model"
)

type stubCatalogStore struct {
	mu       sync.Mutex
	saves    int
	products []model.Product
	links    []model.LinkItem
}

func (s *stubCatalogStore) GetLinks(_ context.Context, _ string) ([]model.LinkItem, error) {
	return nil, nil
}

func (s *stubCatalogStore) SetLinks(_ context.Context, _ string, links []model.LinkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = links
	return nil
}

func (s *stubCatalogStore) GetProducts(_ context.Context, _ string) ([]model.Product, error) {
	return nil, nil
}

func (s *stubCatalogStore) SetProducts(_ context.Context, _ string, products []model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.products = products
	return nil
}

func (s *stubCatalogStore) GetCategories(_ context.Context, _ string) ([]model.Category, error) {
	return nil, nil
}

func (s *stubCatalogStore) SetCategories(_ context.Context, _ string, _ []model.Category) error {
	return nil
}

func (s *stubCatalogStore) GetCoupons(_ context.Context, _ string) ([]model.Coupon, error) {
	return nil, nil
}

func (s *stubCatalogStore) SetCoupons(_ context.Context, _ string, _ []model.Coupon) error {
	return nil
}

func (s *stubCatalogStore) productSaves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *stubCatalogStore) savedProducts() []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products
}

func snapshotWith(titles ...string) CatalogSnapshot {
	products := make([]model.Product, 0, len(titles))
	for _, title := range titles {
		products = append(products, model.Product{ID: title, Title: title})
	}
	return CatalogSnapshot{Products: products}
}

func TestAutosaver_DebounceCoalescesEdits(t *testing.T) {
	store := &stubCatalogStore{}
	saver := NewAutosaver(store, 30*time.Millisecond, testLogger())

	// Three rapid edits within the window land as one save of the last state.
	saver.Enqueue("t1", snapshotWith("a"))
	saver.Enqueue("t1", snapshotWith("a", "b"))
	saver.Enqueue("t1", snapshotWith("a", "b", "c"))

	require.Eventually(t, func() bool { return store.productSaves() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Len(t, store.savedProducts(), 3)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, store.productSaves(), "no further saves after the window closes")
}

func TestAutosaver_SeparateTenantsSaveIndependently(t *testing.T) {
	store := &stubCatalogStore{}
	saver := NewAutosaver(store, 10*time.Millisecond, testLogger())

	saver.Enqueue("t1", snapshotWith("a"))
	saver.Enqueue("t2", snapshotWith("b"))

	require.Eventually(t, func() bool { return store.productSaves() == 2 },
		time.Second, 5*time.Millisecond)
}

func TestAutosaver_FlushSavesImmediately(t *testing.T) {
	store := &stubCatalogStore{}
	saver := NewAutosaver(store, time.Hour, testLogger())

	saver.Enqueue("t1", snapshotWith("a"))
	saver.Flush()

	assert.Equal(t, 1, store.productSaves(), "flush does not wait for the debounce window")
}
