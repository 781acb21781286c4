package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository"
)

var _ repository.CartRepository = (*DB)(nil)

const cartColumns = `id, user_id, product_id, name, price, image, quantity, created_at, updated_at`

// AddOrMerge inserts line, or, when the user already has a line for the
// same product, adds line.Quantity to it. The merged quantity is capped at
// model.MaxLineQuantity.
//
// The merge is one INSERT ... ON CONFLICT DO UPDATE statement, so the
// quantity increment happens inside SQLite and two concurrent adds can't
// both read the old quantity and overwrite each other. The existing line's
// name/price/image snapshot is left as it was.
//
// On return line holds the stored row (its ID is the existing line's ID
// after a merge).
func (db *DB) AddOrMerge(ctx context.Context, line *model.CartLine) error {
	now := time.Now()
	newID := xid.New().String()

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cart_items (id, user_id, product_id, name, price, image, quantity, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (user_id, product_id) DO UPDATE SET
				quantity   = MIN(?, cart_items.quantity + excluded.quantity),
				updated_at = excluded.updated_at`,
			newID, line.UserID, line.ProductID, line.Name, line.Price, line.Image,
			line.Quantity, now, now, model.MaxLineQuantity,
		)
		if err != nil {
			return fmt.Errorf("sqlite: merging cart line (user=%s, product=%d): %w",
				line.UserID, line.ProductID, err)
		}

		err = tx.GetContext(ctx, line,
			`SELECT `+cartColumns+` FROM cart_items WHERE user_id = ? AND product_id = ?`,
			line.UserID, line.ProductID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: reading merged cart line: %w", err)
		}
		return nil
	})
}

// ChangeQuantity adds delta to the line's quantity, keeping it within
// 1..model.MaxLineQuantity.
// A line owned by someone else is reported as not found.
func (db *DB) ChangeQuantity(ctx context.Context, userID, lineID string, delta int) (*model.CartLine, error) {
	var line model.CartLine

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE cart_items
			 SET quantity = MIN(?, MAX(1, quantity + ?)), updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			model.MaxLineQuantity, delta, time.Now(), lineID, userID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: changing quantity of cart line %s: %w", lineID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("cart item", lineID)
		}

		if err := tx.GetContext(ctx, &line,
			`SELECT `+cartColumns+` FROM cart_items WHERE id = ?`, lineID); err != nil {
			return fmt.Errorf("sqlite: reading cart line %s: %w", lineID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// RemoveLine deletes the user's line and reports whether one was removed.
// Removing an absent line is not an error.
func (db *DB) RemoveLine(ctx context.Context, userID, lineID string) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = ? AND user_id = ?`, lineID, userID)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing cart line %s: %w", lineID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListLines returns the user's cart in insertion order.
func (db *DB) ListLines(ctx context.Context, userID string) ([]model.CartLine, error) {
	return listLines(ctx, db.conn, userID)
}

// listLines works on both *sqlx.DB and *sqlx.Tx so checkout can read the
// cart inside its transaction.
func listLines(ctx context.Context, q sqlx.QueryerContext, userID string) ([]model.CartLine, error) {
	lines := []model.CartLine{}
	err := sqlx.SelectContext(ctx, q, &lines,
		`SELECT `+cartColumns+` FROM cart_items WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: listing cart for user %s: %w", userID, err)
	}
	return lines, nil
}
