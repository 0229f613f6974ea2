package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fleex/storefront-api/internal/model"
)

const (
	colProfile   = "profile"
	colLinks     = "links"
	colProducts  = "products"
	colCats      = "categories"
	colCoupons   = "coupons"
	colOrders    = "orders"
	colAbandoned = "abandoned_carts"

	activityLogCap = 50
)

// UserStore is the tenant-profile surface the auth and checkout services use.
type UserStore interface {
	GetUser(ctx context.Context, tenantID string) (*model.UserProfile, error)
	UpdateUser(ctx context.Context, tenantID string, apply func(*model.UserProfile)) (*model.UserProfile, error)
	CreateUser(ctx context.Context, user model.UserProfile) error
	FindUserByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	FindUserBySlug(ctx context.Context, slug string) (*model.UserProfile, error)
	LogActivity(ctx context.Context, tenantID, actor, action, details string) error
}

// CatalogStore is the owner-editable catalog surface.
type CatalogStore interface {
	GetLinks(ctx context.Context, tenantID string) ([]model.LinkItem, error)
	SetLinks(ctx context.Context, tenantID string, links []model.LinkItem) error
	GetProducts(ctx context.Context, tenantID string) ([]model.Product, error)
	SetProducts(ctx context.Context, tenantID string, products []model.Product) error
	GetCategories(ctx context.Context, tenantID string) ([]model.Category, error)
	SetCategories(ctx context.Context, tenantID string, categories []model.Category) error
	GetCoupons(ctx context.Context, tenantID string) ([]model.Coupon, error)
	SetCoupons(ctx context.Context, tenantID string, coupons []model.Coupon) error
}

// OrderStore is the order and abandoned-cart surface the checkout core and
// the dashboard sync loop depend on.
type OrderStore interface {
	ListOrders(ctx context.Context, tenantID string) ([]model.Order, error)
	AddOrder(ctx context.Context, tenantID string, order model.Order) error
	UpdateOrder(ctx context.Context, tenantID, orderID string, patch model.OrderPatch) ([]model.Order, error)
	ListAbandonedCarts(ctx context.Context, tenantID string) ([]model.AbandonedCart, error)
	SaveAbandonedCart(ctx context.Context, tenantID string, cart model.AbandonedCart) error
	DecrementStock(ctx context.Context, tenantID string, items []model.CartItem) error
}

type stockDecrementer interface {
	DecrementStock(ctx context.Context, tenantID string, items []model.CartItem) error
}

type userIndex interface {
	FindByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	FindBySlug(ctx context.Context, slug string) (*model.UserProfile, error)
}

// Store is the dual-target persistence gateway: every write lands in the
// local cache first and is synced to the remote store with a bounded timeout;
// every read races the remote against that timeout and falls back locally.
type Store struct {
	profile    Doc[model.UserProfile]
	links      Collection[model.LinkItem]
	products   Collection[model.Product]
	categories Collection[model.Category]
	coupons    Collection[model.Coupon]
	orders     Collection[model.Order]
	abandoned  Collection[model.AbandonedCart]

	remoteStock stockDecrementer
	localStock  stockDecrementer
	remoteIndex userIndex
	localIndex  userIndex

	timeout time.Duration
	log     *slog.Logger
}

var _ UserStore = (*Store)(nil)
var _ CatalogStore = (*Store)(nil)
var _ OrderStore = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, rdb *redis.Client, timeout time.Duration, log *slog.Logger) *Store {
	localProducts := newLocalCollection[model.Product](rdb, colProducts)
	return &Store{
		profile: newFallbackDoc[model.UserProfile](colProfile,
			newRemoteDoc[model.UserProfile](pool, colProfile),
			newLocalDoc[model.UserProfile](rdb, colProfile), timeout, log),
		links: newFallbackCollection[model.LinkItem](colLinks,
			newRemoteCollection(pool, colLinks, func(l model.LinkItem) string { return l.ID }),
			newLocalCollection[model.LinkItem](rdb, colLinks), timeout, log),
		products: newFallbackCollection[model.Product](colProducts,
			newRemoteCollection(pool, colProducts, func(p model.Product) string { return p.ID }),
			localProducts, timeout, log),
		categories: newFallbackCollection[model.Category](colCats,
			newRemoteCollection(pool, colCats, func(c model.Category) string { return c.ID }),
			newLocalCollection[model.Category](rdb, colCats), timeout, log),
		coupons: newFallbackCollection[model.Coupon](colCoupons,
			newRemoteCollection(pool, colCoupons, func(c model.Coupon) string { return c.ID }),
			newLocalCollection[model.Coupon](rdb, colCoupons), timeout, log),
		orders: newFallbackCollection[model.Order](colOrders,
			newRemoteCollection(pool, colOrders, func(o model.Order) string { return o.ID }),
			newLocalCollection[model.Order](rdb, colOrders), timeout, log),
		abandoned: newFallbackCollection[model.AbandonedCart](colAbandoned,
			newRemoteCollection(pool, colAbandoned, func(c model.AbandonedCart) string { return c.ID }),
			newLocalCollection[model.AbandonedCart](rdb, colAbandoned), timeout, log),
		remoteStock: remoteStock{pool: pool},
		localStock:  localStock{products: localProducts},
		remoteIndex: remoteUserIndex{pool: pool},
		localIndex:  localUserIndex{rdb: rdb},
		timeout:     timeout,
		log:         log,
	}
}

// --- Users ---

func (s *Store) GetUser(ctx context.Context, tenantID string) (*model.UserProfile, error) {
	return s.profile.Get(ctx, tenantID)
}

func (s *Store) CreateUser(ctx context.Context, user model.UserProfile) error {
	return s.profile.Set(ctx, user.ID, user)
}

func (s *Store) UpdateUser(ctx context.Context, tenantID string, apply func(*model.UserProfile)) (*model.UserProfile, error) {
	user, err := s.profile.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("tenant %s not found", tenantID)
	}
	apply(user)
	if err := s.profile.Set(ctx, tenantID, *user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if user, err := s.remoteIndex.FindByEmail(rctx, email); err == nil {
		if user != nil {
			return user, nil
		}
	} else {
		s.log.Warn("remote profile lookup failed, scanning local cache", "error", err)
	}
	return s.localIndex.FindByEmail(ctx, email)
}

func (s *Store) FindUserBySlug(ctx context.Context, slug string) (*model.UserProfile, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if user, err := s.remoteIndex.FindBySlug(rctx, slug); err == nil {
		if user != nil {
			return user, nil
		}
	} else {
		s.log.Warn("remote profile lookup failed, scanning local cache", "error", err)
	}
	return s.localIndex.FindBySlug(ctx, slug)
}

func (s *Store) LogActivity(ctx context.Context, tenantID, actor, action, details string) error {
	entry := model.ActivityLog{
		ID:        uuid.NewString(),
		ActorName: actor,
		Action:    action,
		Details:   details,
		Timestamp: time.Now(),
	}
	_, err := s.UpdateUser(ctx, tenantID, func(u *model.UserProfile) {
		logs := append([]model.ActivityLog{entry}, u.ActivityLogs...)
		if len(logs) > activityLogCap {
			logs = logs[:activityLogCap]
		}
		u.ActivityLogs = logs
	})
	return err
}

// --- Catalog ---

func (s *Store) GetLinks(ctx context.Context, tenantID string) ([]model.LinkItem, error) {
	return s.links.List(ctx, tenantID)
}

func (s *Store) SetLinks(ctx context.Context, tenantID string, links []model.LinkItem) error {
	return s.links.Save(ctx, tenantID, links)
}

func (s *Store) GetProducts(ctx context.Context, tenantID string) ([]model.Product, error) {
	products, err := s.products.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].Variants == nil {
			products[i].Variants = []model.Variant{}
		}
	}
	return products, nil
}

func (s *Store) SetProducts(ctx context.Context, tenantID string, products []model.Product) error {
	return s.products.Save(ctx, tenantID, products)
}

func (s *Store) GetCategories(ctx context.Context, tenantID string) ([]model.Category, error) {
	return s.categories.List(ctx, tenantID)
}

func (s *Store) SetCategories(ctx context.Context, tenantID string, categories []model.Category) error {
	return s.categories.Save(ctx, tenantID, categories)
}

func (s *Store) GetCoupons(ctx context.Context, tenantID string) ([]model.Coupon, error) {
	return s.coupons.List(ctx, tenantID)
}

func (s *Store) SetCoupons(ctx context.Context, tenantID string, coupons []model.Coupon) error {
	return s.coupons.Save(ctx, tenantID, coupons)
}

// --- Orders ---

func (s *Store) ListOrders(ctx context.Context, tenantID string) ([]model.Order, error) {
	orders, err := s.orders.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].Date.After(orders[j].Date) })
	return orders, nil
}

func (s *Store) AddOrder(ctx context.Context, tenantID string, order model.Order) error {
	return s.orders.Append(ctx, tenantID, order)
}

// UpdateOrder merges the patch into the stored order and returns the full
// updated collection. Applying the same patch twice is a no-op.
func (s *Store) UpdateOrder(ctx context.Context, tenantID, orderID string, patch model.OrderPatch) ([]model.Order, error) {
	orders, err := s.orders.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID != orderID {
			continue
		}
		if patch.Status != nil {
			orders[i].Status = *patch.Status
		}
		if patch.PaymentMethod != nil {
			orders[i].PaymentMethod = *patch.PaymentMethod
		}
		if patch.TrackingCode != nil {
			orders[i].TrackingCode = *patch.TrackingCode
		}
	}
	if err := s.orders.Save(ctx, tenantID, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) ListAbandonedCarts(ctx context.Context, tenantID string) ([]model.AbandonedCart, error) {
	return s.abandoned.List(ctx, tenantID)
}

func (s *Store) SaveAbandonedCart(ctx context.Context, tenantID string, cart model.AbandonedCart) error {
	return s.abandoned.Append(ctx, tenantID, cart)
}

// DecrementStock applies the purchased quantities local-first, then syncs the
// atomic floor-checked decrement to the remote store. Must be called exactly
// once per finalized order.
func (s *Store) DecrementStock(ctx context.Context, tenantID string, items []model.CartItem) error {
	if err := s.localStock.DecrementStock(ctx, tenantID, items); err != nil {
		return err
	}
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.remoteStock.DecrementStock(rctx, tenantID, items); err != nil {
		s.log.Warn("remote stock sync failed", "tenant", tenantID, "error", err)
	}
	return nil
}
