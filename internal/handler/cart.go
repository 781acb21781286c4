package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/service"
)

// CartHandler serves the caller's cart.
type CartHandler struct {
	carts  *service.CartService
	logger *slog.Logger
}

// NewCartHandler creates a CartHandler.
func NewCartHandler(carts *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// productID accepts both 5 and "5"; storefront clients send either.
type productID int64

func (p *productID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return apperror.ValidationFailed("productId", "productId must be an integer")
	}
	*p = productID(n)
	return nil
}

type addItemRequest struct {
	ProductID productID `json:"productId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Image     string    `json:"image"`
	Quantity  int       `json:"quantity"`
}

// HandleList returns the caller's cart lines in the order they were added.
//
// HTTP: GET /api/cart
func (h *CartHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	lines, err := h.carts.ListItems(r.Context(), id.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

// HandleAdd adds a product, merging into an existing line.
//
// HTTP: POST /api/cart
// Body: {"productId": 5, "quantity": 2}
func (h *CartHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	line, err := h.carts.AddItem(r.Context(), id.UserID, service.AddItemInput{
		ProductID: int64(req.ProductID),
		Name:      req.Name,
		Price:     req.Price,
		Image:     req.Image,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// HandleChangeQuantity steps a line's quantity up or down by one.
//
// HTTP: PUT /api/cart/{id}
// Body: {"type": "inc"} or {"type": "dec"}
func (h *CartHandler) HandleChangeQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req struct {
		Type string `json:"type"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	line, err := h.carts.ChangeQuantity(r.Context(), id.UserID, chi.URLParam(r, "id"), req.Type)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// HandleRemove deletes a line. Deleting a missing line still succeeds.
//
// HTTP: DELETE /api/cart/{id}
func (h *CartHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.carts.RemoveItem(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Item removed"})
}

var _ json.Unmarshaler = (*productID)(nil)
