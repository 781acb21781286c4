package model

import "time"

// MaxLineQuantity bounds the quantity of a single cart line.
const MaxLineQuantity = 999

// CartLine is one product row in a user's in-progress cart.
//
// Name, Price and Image are copied from the catalog when the line is first
// created and are not refreshed afterwards: the cart shows what the user
// added, and checkout charges that price.
//
// There is at most one line per (UserID, ProductID); adding the same product
// again grows Quantity. Quantity stays within 1..MaxLineQuantity.
type CartLine struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Name      string    `json:"name"      db:"name"`
	Price     float64   `json:"price"     db:"price"`
	Image     string    `json:"image"     db:"image"`
	Quantity  int       `json:"quantity"  db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Subtotal is Price × Quantity.
func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}
