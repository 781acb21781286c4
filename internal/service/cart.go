// Package service holds the business rules of the storefront. Services
// depend on the repository interfaces and know nothing about HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository"
)

// AddItemInput is an add-to-cart request. Name, Price and Image are what
// the client displayed; they only fill gaps in the catalog entry.
type AddItemInput struct {
	ProductID int64
	Name      string
	Price     float64
	Image     string
	Quantity  int
}

// CartService manages each user's cart.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewCartService creates a CartService.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *slog.Logger) *CartService {
	return &CartService{carts: carts, products: products, logger: logger}
}

// AddItem adds a product to the user's cart, merging into the existing
// line for that product if there is one.
//
// A missing or non-positive quantity means 1. The product has to exist in
// the catalog; the line's name, price and image are taken from the catalog
// entry at this moment and stay fixed afterwards.
func (s *CartService) AddItem(ctx context.Context, userID string, in AddItemInput) (*model.CartLine, error) {
	if in.ProductID <= 0 {
		return nil, apperror.ValidationFailed("productId", "productId is required")
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}
	if in.Quantity > model.MaxLineQuantity {
		return nil, apperror.ValidationFailed("quantity",
			fmt.Sprintf("quantity must be at most %d", model.MaxLineQuantity))
	}

	product, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("service/cart: looking up product %d: %w", in.ProductID, err)
	}

	line := &model.CartLine{
		UserID:    userID,
		ProductID: product.ID,
		Name:      firstNonEmpty(product.Name, strings.TrimSpace(in.Name)),
		Price:     product.Price,
		Image:     firstNonEmpty(product.Image, strings.TrimSpace(in.Image)),
		Quantity:  in.Quantity,
	}
	if line.Price == 0 && in.Price > 0 {
		line.Price = in.Price
	}

	if err := s.carts.AddOrMerge(ctx, line); err != nil {
		return nil, fmt.Errorf("service/cart: adding product %d: %w", in.ProductID, err)
	}

	s.logger.Info("cart item added",
		slog.String("userID", userID),
		slog.Int64("productID", line.ProductID),
		slog.Int("added", in.Quantity),
		slog.Int("quantity", line.Quantity),
	)
	return line, nil
}

// ParseDirection maps the "type" of a quantity change to a delta:
// inc/increment is +1, dec/decrement is -1.
func ParseDirection(direction string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "inc", "increment":
		return 1, nil
	case "dec", "decrement":
		return -1, nil
	}
	return 0, apperror.ValidationFailed("type", `type must be "inc" or "dec"`)
}

// ChangeQuantity moves the line's quantity one step up or down. Going down
// stops at 1; the line is never removed this way.
func (s *CartService) ChangeQuantity(ctx context.Context, userID, lineID, direction string) (*model.CartLine, error) {
	delta, err := ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	line, err := s.carts.ChangeQuantity(ctx, userID, lineID, delta)
	if err != nil {
		return nil, fmt.Errorf("service/cart: changing quantity of %s: %w", lineID, err)
	}
	return line, nil
}

// RemoveItem deletes the line. Removing a line that is already gone, or
// that belongs to someone else, succeeds without changing anything.
func (s *CartService) RemoveItem(ctx context.Context, userID, lineID string) error {
	removed, err := s.carts.RemoveLine(ctx, userID, lineID)
	if err != nil {
		return fmt.Errorf("service/cart: removing %s: %w", lineID, err)
	}
	if !removed {
		s.logger.Debug("cart item already absent",
			slog.String("userID", userID),
			slog.String("lineID", lineID),
		)
	}
	return nil
}

// ListItems returns the user's cart in the order items were first added.
func (s *CartService) ListItems(ctx context.Context, userID string) ([]model.CartLine, error) {
	lines, err := s.carts.ListLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/cart: listing cart: %w", err)
	}
	return lines, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
