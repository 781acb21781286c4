package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository"
)

// FeaturedLimit is how many featured items the home page shows.
const FeaturedLimit = 3

// CatalogService is the read-only product catalog.
type CatalogService struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(products repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{products: products, logger: logger}
}

// List returns every product ordered by id.
func (s *CatalogService) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing products: %w", err)
	}
	return products, nil
}

// Get returns the product with the given numeric id. rawID comes straight
// from the URL, so a non-numeric value is a validation error rather than a
// miss.
func (s *CatalogService) Get(ctx context.Context, rawID string) (*model.Product, error) {
	id, err := ParseProductID(rawID)
	if err != nil {
		return nil, err
	}

	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: fetching product %d: %w", id, err)
	}
	return p, nil
}

// Search matches q, ignoring case, against product names, brands and
// descriptions.
func (s *CatalogService) Search(ctx context.Context, q string) ([]model.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}

	products, err := s.products.SearchProducts(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: searching: %w", err)
	}
	s.logger.Debug("catalog search", slog.String("q", q), slog.Int("results", len(products)))
	return products, nil
}

// Featured returns up to FeaturedLimit promotional items.
func (s *CatalogService) Featured(ctx context.Context) ([]model.FeaturedItem, error) {
	items, err := s.products.ListFeatured(ctx, FeaturedLimit)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing featured items: %w", err)
	}
	return items, nil
}

// ParseProductID parses a positive decimal product id.
func ParseProductID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "product id must be a positive integer")
	}
	return id, nil
}
