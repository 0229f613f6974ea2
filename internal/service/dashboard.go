package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/fleex/storefront-api/internal/model"
	"github.com/fleex/storefront-api/internal/repository"
)

// DashboardService backs the owner's view: order management, abandoned-cart
// recovery and the customer export.
type DashboardService struct {
	users  repository.UserStore
	orders repository.OrderStore
}

func NewDashboardService(users repository.UserStore, orders repository.OrderStore) *DashboardService {
	return &DashboardService{users: users, orders: orders}
}

func (s *DashboardService) ListOrders(ctx context.Context, tenantID string) ([]model.Order, error) {
	return s.orders.ListOrders(ctx, tenantID)
}

func (s *DashboardService) ListAbandonedCarts(ctx context.Context, tenantID string) ([]model.AbandonedCart, error) {
	return s.orders.ListAbandonedCarts(ctx, tenantID)
}

// UpdateOrderStatus patches the order and records who did it.
func (s *DashboardService) UpdateOrderStatus(ctx context.Context, tenantID, orderID, actor string, status model.OrderStatus) ([]model.Order, error) {
	orders, err := s.orders.UpdateOrder(ctx, tenantID, orderID, model.OrderPatch{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	// Activity logging is best effort.
	_ = s.users.LogActivity(ctx, tenantID, actor, "Status de pedido alterado", string(status))
	return orders, nil
}

// ExportCustomersCSV flattens the tenant's orders into the customer sheet.
func (s *DashboardService) ExportCustomersCSV(ctx context.Context, tenantID string) ([]byte, error) {
	orders, err := s.orders.ListOrders(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Nome", "Telefone", "Data do Pedido", "Produto", "Valor"})
	for _, o := range orders {
		_ = w.Write([]string{
			o.CustomerName,
			o.CustomerPhone,
			o.Date.Format("02/01/2006"),
			o.ProductTitle,
			o.ProductPrice.StringFixed(2),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
