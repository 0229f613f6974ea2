package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleex/storefront-api/internal/model"
)

// The local side mirrors each tenant collection as one JSON blob in Redis,
// keyed fleex:<tenant>:<collection>. It is the write-first target: a write
// that lands here is never lost even with the remote store down.

func localKey(tenantID, name string) string {
	return "fleex:" + tenantID + ":" + name
}

type localCollection[T any] struct {
	rdb  *redis.Client
	name string
	mu   *sync.Mutex // serializes read-modify-write on Append
}

func newLocalCollection[T any](rdb *redis.Client, name string) *localCollection[T] {
	return &localCollection[T]{rdb: rdb, name: name, mu: &sync.Mutex{}}
}

func (l *localCollection[T]) List(ctx context.Context, tenantID string) ([]T, error) {
	raw, err := l.rdb.Get(ctx, localKey(tenantID, l.name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("local list %s: %w", l.name, err)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode local %s: %w", l.name, err)
	}
	return items, nil
}

func (l *localCollection[T]) Save(ctx context.Context, tenantID string, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode local %s: %w", l.name, err)
	}
	if err := l.rdb.Set(ctx, localKey(tenantID, l.name), raw, 0).Err(); err != nil {
		return fmt.Errorf("local save %s: %w", l.name, err)
	}
	return nil
}

func (l *localCollection[T]) Append(ctx context.Context, tenantID string, item T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.List(ctx, tenantID)
	if err != nil {
		return err
	}
	return l.Save(ctx, tenantID, append(items, item))
}

type localDoc[T any] struct {
	rdb  *redis.Client
	name string
}

func newLocalDoc[T any](rdb *redis.Client, name string) *localDoc[T] {
	return &localDoc[T]{rdb: rdb, name: name}
}

func (l *localDoc[T]) Get(ctx context.Context, tenantID string) (*T, error) {
	raw, err := l.rdb.Get(ctx, localKey(tenantID, l.name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("local get %s: %w", l.name, err)
	}
	value := new(T)
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, fmt.Errorf("decode local %s: %w", l.name, err)
	}
	return value, nil
}

func (l *localDoc[T]) Set(ctx context.Context, tenantID string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode local %s: %w", l.name, err)
	}
	if err := l.rdb.Set(ctx, localKey(tenantID, l.name), raw, 0).Err(); err != nil {
		return fmt.Errorf("local set %s: %w", l.name, err)
	}
	return nil
}

// localStock floor-decrements the mirrored product list under a mutex. This
// keeps fallback reads consistent; the remote decrement is the atomic one.
type localStock struct {
	products *localCollection[model.Product]
}

func (l localStock) DecrementStock(ctx context.Context, tenantID string, items []model.CartItem) error {
	l.products.mu.Lock()
	defer l.products.mu.Unlock()

	products, err := l.products.List(ctx, tenantID)
	if err != nil {
		return err
	}
	for i := range products {
		for _, item := range items {
			if products[i].ID != item.Product.ID {
				continue
			}
			if products[i].Stock < item.Quantity {
				products[i].Stock = 0
			} else {
				products[i].Stock -= item.Quantity
			}
			products[i].Sales += item.Quantity
		}
	}
	return l.products.Save(ctx, tenantID, products)
}

// localUserIndex scans mirrored profiles so login still works with the
// remote store down.
type localUserIndex struct{ rdb *redis.Client }

func (l localUserIndex) scan(ctx context.Context, match func(model.UserProfile) bool) (*model.UserProfile, error) {
	iter := l.rdb.Scan(ctx, 0, "fleex:*:"+colProfile, 0).Iterator()
	for iter.Next(ctx) {
		raw, err := l.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var user model.UserProfile
		if json.Unmarshal(raw, &user) != nil {
			continue
		}
		if match(user) {
			return &user, nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}
	return nil, nil
}

func (l localUserIndex) FindByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	return l.scan(ctx, func(u model.UserProfile) bool { return u.Email == email })
}

func (l localUserIndex) FindBySlug(ctx context.Context, slug string) (*model.UserProfile, error) {
	return l.scan(ctx, func(u model.UserProfile) bool { return u.Slug == slug })
}

// CartCache holds the per-session cart snapshot behind the "restore previous
// cart" offer. An empty snapshot clears the entry.
type CartCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCartCache(rdb *redis.Client, ttl time.Duration) *CartCache {
	return &CartCache{rdb: rdb, ttl: ttl}
}

func (c *CartCache) key(tenantID, sessionID string) string {
	return "fleex:cart:" + tenantID + ":" + sessionID
}

func (c *CartCache) Save(ctx context.Context, tenantID, sessionID string, items []model.CartItem) error {
	if len(items) == 0 {
		return c.Clear(ctx, tenantID, sessionID)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(tenantID, sessionID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (c *CartCache) Load(ctx context.Context, tenantID, sessionID string) ([]model.CartItem, error) {
	raw, err := c.rdb.Get(ctx, c.key(tenantID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var items []model.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

func (c *CartCache) Clear(ctx context.Context, tenantID, sessionID string) error {
	if err := c.rdb.Del(ctx, c.key(tenantID, sessionID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
