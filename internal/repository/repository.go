// Package repository declares the persistence contracts the services depend
// on. The sqlite subpackage implements all of them.
package repository

import (
	"context"

	"github.com/nebula-auto-parts/storefront/internal/model"
)

// ProductRepository is the read side of the catalog. Seeding happens at
// startup, outside this interface.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	SearchProducts(ctx context.Context, query string) ([]model.Product, error)
	ListFeatured(ctx context.Context, limit int) ([]model.FeaturedItem, error)
}

// UserRepository stores accounts. Create returns a validation error
// (apperror.ErrValidation) when the email or Google id is already taken.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.User, error)
	SetProfilePicture(ctx context.Context, userID string, blobID *string) error
	ClearProfilePicture(ctx context.Context, blobID string) (int64, error)
}

// CartRepository stores cart lines.
//
// AddOrMerge is a single atomic increment-or-insert keyed on
// (UserID, ProductID): concurrent calls never lose an update.
// ChangeQuantity applies delta and clamps the result to
// 1..model.MaxLineQuantity; it returns apperror.ErrNotFound when the line
// is not the user's.
type CartRepository interface {
	AddOrMerge(ctx context.Context, line *model.CartLine) error
	ChangeQuantity(ctx context.Context, userID, lineID string, delta int) (*model.CartLine, error)
	RemoveLine(ctx context.Context, userID, lineID string) (bool, error)
	ListLines(ctx context.Context, userID string) ([]model.CartLine, error)
}

// OrderRepository stores orders.
//
// Checkout converts the user's whole cart into one order and empties the
// cart as a single transaction; it returns apperror.ErrEmptyCart when there
// is nothing to check out.
type OrderRepository interface {
	Checkout(ctx context.Context, userID string) (*model.Order, error)
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
}

// StatsRepository backs the admin dashboard counters.
type StatsRepository interface {
	Stats(ctx context.Context) (*model.Stats, error)
}
