package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/fleex/storefront-api/internal/model"
	"github.com/fleex/storefront-api/internal/repository"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantRequired   = errors.New("a variant must be selected for this product")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Cart is the ordered line-item state of one customer session. Lines merge on
// (productID, variant id or "default"); insertion order is display order.
type Cart struct {
	Items []model.CartItem
}

// Add puts one unit of the product in the cart. Out-of-stock products are a
// no-op; exceeding the product's current stock fails without mutating.
func (c *Cart) Add(product model.Product, variant *model.Variant) error {
	if len(product.Variants) > 0 && variant == nil {
		return ErrVariantRequired
	}
	if product.Stock <= 0 {
		return nil
	}

	key := "default"
	if variant != nil {
		key = variant.ID
	}
	for i := range c.Items {
		if c.Items[i].Product.ID == product.ID && c.Items[i].VariantKey() == key {
			if c.Items[i].Quantity+1 > product.Stock {
				return ErrInsufficientStock
			}
			c.Items[i].Quantity++
			return nil
		}
	}
	c.Items = append(c.Items, model.CartItem{Product: product, Quantity: 1, SelectedVariant: variant})
	return nil
}

// Remove drops the line at index unconditionally.
func (c *Cart) Remove(index int) {
	if index < 0 || index >= len(c.Items) {
		return
	}
	c.Items = append(c.Items[:index], c.Items[index+1:]...)
}

// UpdateQuantity applies a +/- delta to the line at index. The change is
// rejected (no-op) when the candidate quantity exceeds the live stock or
// drops below 1.
func (c *Cart) UpdateQuantity(index, delta, liveStock int) {
	if index < 0 || index >= len(c.Items) {
		return
	}
	candidate := c.Items[index].Quantity + delta
	if candidate > liveStock || candidate < 1 {
		return
	}
	c.Items[index].Quantity = candidate
}

func (c *Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range c.Items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}

func (c *Cart) Count() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Totals computes subtotal, percentage coupon discount, shipping and the
// final total.
func (c *Cart) Totals(coupon *model.Coupon, shipping *model.ShippingQuote) Totals {
	t := Totals{Subtotal: c.Subtotal(), Discount: decimal.Zero, Shipping: decimal.Zero}
	if coupon != nil {
		t.Discount = t.Subtotal.Mul(decimal.NewFromInt(int64(coupon.DiscountPercent))).Div(decimal.NewFromInt(100))
	}
	if shipping != nil {
		t.Shipping = shipping.Price
	}
	t.Total = t.Subtotal.Sub(t.Discount).Add(t.Shipping)
	return t
}

// cartCache persists per-session cart snapshots for abandoned-session
// recovery.
type cartCache interface {
	Save(ctx context.Context, tenantID, sessionID string, items []model.CartItem) error
	Load(ctx context.Context, tenantID, sessionID string) ([]model.CartItem, error)
	Clear(ctx context.Context, tenantID, sessionID string) error
}

// CartService wraps the pure cart with live-catalog lookups and the snapshot
// side effect: every mutation persists the cart, an empty cart clears the
// entry.
type CartService struct {
	catalog repository.CatalogStore
	cache   cartCache
	log     *slog.Logger
}

func NewCartService(catalog repository.CatalogStore, cache cartCache, log *slog.Logger) *CartService {
	return &CartService{catalog: catalog, cache: cache, log: log}
}

func (s *CartService) AddToCart(ctx context.Context, tenantID, sessionID string, cart *Cart, productID, variantID string) error {
	product, err := s.liveProduct(ctx, tenantID, productID)
	if err != nil {
		return err
	}

	var variant *model.Variant
	if variantID != "" {
		for i := range product.Variants {
			if product.Variants[i].ID == variantID {
				variant = &product.Variants[i]
				break
			}
		}
		if variant == nil {
			return ErrVariantRequired
		}
	}

	if err := cart.Add(*product, variant); err != nil {
		return err
	}
	s.snapshot(ctx, tenantID, sessionID, cart)
	return nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, tenantID, sessionID string, cart *Cart, index int) {
	cart.Remove(index)
	s.snapshot(ctx, tenantID, sessionID, cart)
}

func (s *CartService) UpdateQuantity(ctx context.Context, tenantID, sessionID string, cart *Cart, index, delta int) error {
	if index < 0 || index >= len(cart.Items) {
		return nil
	}
	product, err := s.liveProduct(ctx, tenantID, cart.Items[index].Product.ID)
	if err != nil {
		return err
	}
	cart.UpdateQuantity(index, delta, product.Stock)
	s.snapshot(ctx, tenantID, sessionID, cart)
	return nil
}

// SavedCart returns a previously cached non-empty cart, surfaced to the
// caller as a restore offer rather than merged.
func (s *CartService) SavedCart(ctx context.Context, tenantID, sessionID string) ([]model.CartItem, error) {
	return s.cache.Load(ctx, tenantID, sessionID)
}

func (s *CartService) ClearSnapshot(ctx context.Context, tenantID, sessionID string) {
	if err := s.cache.Clear(ctx, tenantID, sessionID); err != nil {
		s.log.Warn("clear cart snapshot", "tenant", tenantID, "error", err)
	}
}

func (s *CartService) snapshot(ctx context.Context, tenantID, sessionID string, cart *Cart) {
	if err := s.cache.Save(ctx, tenantID, sessionID, cart.Items); err != nil {
		s.log.Warn("save cart snapshot", "tenant", tenantID, "error", err)
	}
}

func (s *CartService) liveProduct(ctx context.Context, tenantID, productID string) (*model.Product, error) {
	products, err := s.catalog.GetProducts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, ErrProductNotFound
}
