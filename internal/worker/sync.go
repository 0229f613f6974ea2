package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fleex/storefront-api/internal/model"
	"github.com/fleex/storefront-api/internal/repository"
)

const (
	notifyExchange = "orders.notify"
)

// OrderNotification is the message published when the sync loop detects a
// new order for a tenant. Dashboard clients consume it to pop the alert.
type OrderNotification struct {
	TenantID      string          `json:"tenant_id"`
	OrderID       string          `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	Total         string          `json:"total"`
	NewOrderCount int             `json:"new_order_count"`
	Order         json.RawMessage `json:"order"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// SetupRabbitMQ declares the notification exchange.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(notifyExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare notify exchange: %w", err)
	}
	return nil
}

type tenantSnapshot struct {
	orders    []model.Order
	abandoned []model.AbandonedCart
	primed    bool
}

// SyncLoop polls the persistence gateway for every watched tenant on a fixed
// interval. A grown order count raises a notification for the newest order;
// any other drift replaces the snapshot silently. Tenants are polled
// serially so a slow remote call cannot interleave two ticks of the same
// tenant.
type SyncLoop struct {
	orders   repository.OrderStore
	pub      publisher
	interval time.Duration
	log      *slog.Logger

	mu        sync.Mutex
	snapshots map[string]*tenantSnapshot
	done      chan struct{}
	stopOnce  sync.Once
}

func NewSyncLoop(orders repository.OrderStore, pub publisher, interval time.Duration, log *slog.Logger) *SyncLoop {
	return &SyncLoop{
		orders:    orders,
		pub:       pub,
		interval:  interval,
		log:       log,
		snapshots: make(map[string]*tenantSnapshot),
		done:      make(chan struct{}),
	}
}

// Watch registers a tenant for polling. Watching an already watched tenant
// is a no-op.
func (s *SyncLoop) Watch(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[tenantID]; !ok {
		s.snapshots[tenantID] = &tenantSnapshot{}
	}
}

func (s *SyncLoop) Unwatch(tenantID string) {
	s.mu.Lock()
	delete(s.snapshots, tenantID)
	s.mu.Unlock()
}

// Orders returns the last synced order view for a tenant.
func (s *SyncLoop) Orders(tenantID string) []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.snapshots[tenantID]; ok {
		return append([]model.Order(nil), snap.orders...)
	}
	return nil
}

func (s *SyncLoop) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Tick(ctx)
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	s.log.Info("dashboard sync loop started", "interval", s.interval)
}

func (s *SyncLoop) Stop() { s.stopOnce.Do(func() { close(s.done) }) }

// Tick polls every watched tenant once.
func (s *SyncLoop) Tick(ctx context.Context) {
	s.mu.Lock()
	tenants := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		tenants = append(tenants, id)
	}
	s.mu.Unlock()

	for _, tenantID := range tenants {
		s.syncTenant(ctx, tenantID)
	}
}

func (s *SyncLoop) syncTenant(ctx context.Context, tenantID string) {
	fresh, err := s.orders.ListOrders(ctx, tenantID)
	if err != nil {
		s.log.Warn("poll orders failed", "tenant", tenantID, "error", err)
		return
	}
	freshCarts, err := s.orders.ListAbandonedCarts(ctx, tenantID)
	if err != nil {
		s.log.Warn("poll abandoned carts failed", "tenant", tenantID, "error", err)
		return
	}

	s.mu.Lock()
	snap, ok := s.snapshots[tenantID]
	if !ok {
		s.mu.Unlock()
		return
	}
	prevCount := len(snap.orders)
	primed := snap.primed
	changed := !ordersEqual(snap.orders, fresh)
	snap.orders = fresh
	snap.abandoned = freshCarts
	snap.primed = true
	s.mu.Unlock()

	if primed && len(fresh) > prevCount {
		// ListOrders sorts newest first.
		s.notify(ctx, tenantID, fresh[0], len(fresh)-prevCount)
	} else if changed {
		s.log.Debug("order snapshot refreshed", "tenant", tenantID)
	}
}

func (s *SyncLoop) notify(ctx context.Context, tenantID string, newest model.Order, grew int) {
	raw, err := json.Marshal(newest)
	if err != nil {
		s.log.Error("encode order notification", "error", err)
		return
	}
	body, err := json.Marshal(OrderNotification{
		TenantID:      tenantID,
		OrderID:       newest.ID,
		CustomerName:  newest.CustomerName,
		Total:         newest.ProductPrice.StringFixed(2),
		NewOrderCount: grew,
		Order:         raw,
	})
	if err != nil {
		s.log.Error("encode order notification", "error", err)
		return
	}

	if s.pub == nil {
		return
	}
	err = s.pub.PublishWithContext(ctx, notifyExchange, tenantID, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		s.log.Warn("publish order notification failed", "tenant", tenantID, "error", err)
		return
	}
	s.log.Info("new order detected", "tenant", tenantID, "order", newest.ID, "customer", newest.CustomerName)
}

// ordersEqual is a full-value comparison, the drift check the dashboard
// poller uses when the count did not grow.
func ordersEqual(a, b []model.Order) bool {
	if len(a) != len(b) {
		return false
	}
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ra) == string(rb)
}
