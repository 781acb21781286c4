package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository"
)

// OrderService turns carts into orders.
type OrderService struct {
	orders repository.OrderRepository
	logger *slog.Logger
}

// NewOrderService creates an OrderService.
func NewOrderService(orders repository.OrderRepository, logger *slog.Logger) *OrderService {
	return &OrderService{orders: orders, logger: logger}
}

// Checkout places an order for everything in the user's cart and empties
// it. An empty cart fails with apperror.ErrEmptyCart and changes nothing.
func (s *OrderService) Checkout(ctx context.Context, userID string) (*model.Order, error) {
	order, err := s.orders.Checkout(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/order: checkout: %w", err)
	}

	s.logger.Info("order placed",
		slog.String("userID", userID),
		slog.String("orderID", order.ID),
		slog.Int("items", len(order.Items)),
		slog.Float64("total", order.Total),
	)
	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := s.orders.ListOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/order: listing orders: %w", err)
	}
	return orders, nil
}
