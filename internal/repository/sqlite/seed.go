package sqlite

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nebula-auto-parts/storefront/internal/model"
)

//go:embed seed.json
var seedJSON []byte

type seedData struct {
	Products []model.Product      `json:"products"`
	Featured []model.FeaturedItem `json:"featured"`
}

// Seed loads the built-in catalog and featured items. Each table is filled
// only when it is empty, so restarts never duplicate rows or overwrite
// edits. It reports how many products were inserted.
func (db *DB) Seed(ctx context.Context) (int, error) {
	var data seedData
	if err := json.Unmarshal(seedJSON, &data); err != nil {
		return 0, fmt.Errorf("sqlite: decoding seed data: %w", err)
	}

	inserted := 0
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM products`); err != nil {
			return fmt.Errorf("sqlite: counting products: %w", err)
		}
		if count == 0 {
			if err := insertProducts(ctx, tx, data.Products); err != nil {
				return err
			}
			inserted = len(data.Products)
		}

		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM featured_items`); err != nil {
			return fmt.Errorf("sqlite: counting featured items: %w", err)
		}
		if count == 0 {
			for _, f := range data.Featured {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO featured_items (title, description, image) VALUES (?, ?, ?)`,
					f.Title, f.Description, f.Image,
				); err != nil {
					return fmt.Errorf("sqlite: seeding featured item %q: %w", f.Title, err)
				}
			}
		}
		return nil
	})
	return inserted, err
}

// InsertProducts adds catalog entries. Product ids must be unique.
func (db *DB) InsertProducts(ctx context.Context, products []model.Product) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		return insertProducts(ctx, tx, products)
	})
}

func insertProducts(ctx context.Context, tx *sqlx.Tx, products []model.Product) error {
	for _, p := range products {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO products (id, name, description, price, brand, image, search_key)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Description, p.Price, p.Brand, p.Image, searchKey(p),
		)
		if err != nil {
			if uniqueViolation(err, "products.id") {
				return fmt.Errorf("sqlite: duplicate product id %d: %w", p.ID, err)
			}
			return fmt.Errorf("sqlite: inserting product %d: %w", p.ID, err)
		}
	}
	return nil
}
