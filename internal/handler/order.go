package handler

import (
	"log/slog"
	"net/http"

	"github.com/nebula-auto-parts/storefront/internal/service"
)

// OrderHandler serves checkout and order history.
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// HandleCheckout turns the caller's cart into an order.
//
// HTTP: POST /api/orders/checkout
// Returns 201 with the order, or 400 "empty_cart".
func (h *OrderHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Checkout(r.Context(), id.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// HandleList returns the caller's orders, newest first.
//
// HTTP: GET /api/orders
func (h *OrderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), id.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}
