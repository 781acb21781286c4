package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository"
)

var _ repository.OrderRepository = (*DB)(nil)

// Checkout turns the user's cart into an order.
//
// Reading the cart, inserting the order and its items, and deleting the
// cart lines all happen in one transaction: either the order exists and the
// cart is empty, or nothing changed. An empty cart returns
// apperror.ErrEmptyCart without writing anything.
func (db *DB) Checkout(ctx context.Context, userID string) (*model.Order, error) {
	var order *model.Order

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		lines, err := listLines(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperror.EmptyCart()
		}

		order = model.NewOrderFromCart(userID, lines)
		order.ID = xid.New().String()
		order.CreatedAt = time.Now()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, user_id, total, created_at) VALUES (?, ?, ?, ?)`,
			order.ID, order.UserID, order.Total, order.CreatedAt,
		); err != nil {
			return fmt.Errorf("sqlite: inserting order for user %s: %w", userID, err)
		}

		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO order_items (order_id, position, product_id, name, price, quantity)
			 VALUES (:order_id, :position, :product_id, :name, :price, :quantity)`,
			order.Items,
		); err != nil {
			return fmt.Errorf("sqlite: inserting items of order %s: %w", order.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("sqlite: draining cart for user %s: %w", userID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns the user's orders newest first, each with its items in
// the order they appeared in the cart.
func (db *DB) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	orders := []model.Order{}
	err := db.conn.SelectContext(ctx, &orders,
		`SELECT id, user_id, total, created_at FROM orders
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing orders for user %s: %w", userID, err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*model.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		orders[i].Items = []model.OrderItem{}
		byID[orders[i].ID] = &orders[i]
	}

	query, args, err := sqlx.In(
		`SELECT order_id, position, product_id, name, price, quantity
		 FROM order_items WHERE order_id IN (?)
		 ORDER BY order_id, position`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building order items query: %w", err)
	}

	var items []model.OrderItem
	if err := db.conn.SelectContext(ctx, &items, db.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing order items: %w", err)
	}
	for _, it := range items {
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}

	return orders, nil
}
