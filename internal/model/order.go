package model

import "time"

// OrderItem is an immutable copy of a cart line taken at checkout.
type OrderItem struct {
	OrderID   string  `json:"-"         db:"order_id"`
	Position  int     `json:"-"         db:"position"`
	ProductID int64   `json:"productId" db:"product_id"`
	Name      string  `json:"name"      db:"name"`
	Price     float64 `json:"price"     db:"price"`
	Quantity  int     `json:"quantity"  db:"quantity"`
}

// Order is a checked-out cart. Total is computed once, when the order is
// built from the cart, and never recomputed.
type Order struct {
	ID        string      `json:"id"        db:"id"`
	UserID    string      `json:"userId"    db:"user_id"`
	Items     []OrderItem `json:"items"     db:"-"`
	Total     float64     `json:"total"     db:"total"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// NewOrderFromCart snapshots lines into an order for userID and computes the
// total. The caller assigns ID and CreatedAt when persisting.
func NewOrderFromCart(userID string, lines []CartLine) *Order {
	order := &Order{
		UserID: userID,
		Items:  make([]OrderItem, 0, len(lines)),
	}
	for i, l := range lines {
		order.Items = append(order.Items, OrderItem{
			Position:  i,
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Quantity:  l.Quantity,
		})
		order.Total += l.Subtotal()
	}
	return order
}
