package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository"
)

var _ repository.ProductRepository = (*DB)(nil)

const productColumns = `id, name, description, price, brand, image`

// fold returns the Unicode case-folded form of s. A new Caser is built per
// call because Casers carry state and must not be shared across goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}

// searchKey is the text product search matches against. SQLite's LIKE only
// folds ASCII, so both the stored key and the query are folded in Go first.
func searchKey(p model.Product) string {
	return fold(strings.Join([]string{p.Name, p.Brand, p.Description}, "\x1f"))
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ListProducts returns the whole catalog ordered by product id.
func (db *DB) ListProducts(ctx context.Context) ([]model.Product, error) {
	products := []model.Product{}
	err := db.conn.SelectContext(ctx, &products,
		`SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing products: %w", err)
	}
	return products, nil
}

// GetProduct looks a product up by its numeric id.
func (db *DB) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := db.conn.GetContext(ctx, &p,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("product", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting product %d: %w", id, err)
	}
	return &p, nil
}

// SearchProducts returns products whose name, brand or description contains
// query, ignoring case.
func (db *DB) SearchProducts(ctx context.Context, query string) ([]model.Product, error) {
	pattern := "%" + escapeLike(fold(query)) + "%"

	products := []model.Product{}
	err := db.conn.SelectContext(ctx, &products,
		`SELECT `+productColumns+` FROM products
		 WHERE search_key LIKE ? ESCAPE '\'
		 ORDER BY id`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching products for %q: %w", query, err)
	}
	return products, nil
}

// ListFeatured returns at most limit featured items in insertion order.
func (db *DB) ListFeatured(ctx context.Context, limit int) ([]model.FeaturedItem, error) {
	items := []model.FeaturedItem{}
	err := db.conn.SelectContext(ctx, &items,
		`SELECT id, title, description, image FROM featured_items ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing featured items: %w", err)
	}
	return items, nil
}

// Stats counts products, orders and users for the admin dashboard.
func (db *DB) Stats(ctx context.Context) (*model.Stats, error) {
	var s model.Stats
	err := db.conn.GetContext(ctx, &s, `
		SELECT
			(SELECT COUNT(*) FROM products) AS products,
			(SELECT COUNT(*) FROM orders)   AS orders,
			(SELECT COUNT(*) FROM users)    AS users`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting stats: %w", err)
	}
	return &s, nil
}

var _ repository.StatsRepository = (*DB)(nil)
