package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/blob"
	"github.com/nebula-auto-parts/storefront/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// The fakes are in-memory implementations of the repository interfaces.
// Each has an err field that, when set, every method returns, to simulate
// a database failure.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserRepo stores users by id and enforces unique emails and Google
// ids like the real schema does.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	order  []string
	nextID int
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) conflict(u *model.User) error {
	for _, other := range f.users {
		if other.ID == u.ID {
			continue
		}
		if other.Email == u.Email {
			return apperror.Duplicate("email", u.Email)
		}
		if u.GoogleID != nil && other.GoogleID != nil && *other.GoogleID == *u.GoogleID {
			return apperror.Duplicate("googleId", *u.GoogleID)
		}
	}
	return nil
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if err := f.conflict(u); err != nil {
		return err
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	stored := *u
	f.users[u.ID] = &stored
	f.order = append(f.order, u.ID)
	return nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool, key string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, id := range f.order {
		if u, ok := f.users[id]; ok && match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id }, id)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email }, email)
}

func (f *fakeUserRepo) GetByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID }, googleID)
}

func (f *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[u.ID]; !ok {
		return apperror.NotFound("user", u.ID)
	}
	if err := f.conflict(u); err != nil {
		return err
	}
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	users := []model.User{}
	for _, id := range f.order {
		if u, ok := f.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) SetProfilePicture(_ context.Context, userID string, blobID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.ProfilePicture = blobID
	return nil
}

func (f *fakeUserRepo) ClearProfilePicture(_ context.Context, blobID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.ProfilePicture != nil && *u.ProfilePicture == blobID {
			u.ProfilePicture = nil
			n++
		}
	}
	return n, nil
}

// fakeProductRepo serves a fixed catalog.
type fakeProductRepo struct {
	products []model.Product
	featured []model.FeaturedItem
	lastQ    string
	err      error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products: []model.Product{
			{ID: 5, Name: "Wiper Blade", Price: 700, Brand: "Bosch", Image: "/img/wiper.jpg"},
			{ID: 7, Name: "Spark Plug", Price: 250, Brand: "NGK"},
		},
		featured: []model.FeaturedItem{
			{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}, {ID: 4, Title: "D"},
		},
	}
}

func (f *fakeProductRepo) ListProducts(context.Context) ([]model.Product, error) {
	return f.products, f.err
}

func (f *fakeProductRepo) GetProduct(_ context.Context, id int64) (*model.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.products {
		if p.ID == id {
			copied := p
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("product", fmt.Sprint(id))
}

func (f *fakeProductRepo) SearchProducts(_ context.Context, q string) ([]model.Product, error) {
	f.lastQ = q
	return f.products[:1], f.err
}

func (f *fakeProductRepo) ListFeatured(_ context.Context, limit int) ([]model.FeaturedItem, error) {
	if limit > len(f.featured) {
		limit = len(f.featured)
	}
	return f.featured[:limit], f.err
}

// fakeCartRepo keeps lines in insertion order.
type fakeCartRepo struct {
	mu     sync.Mutex
	lines  []model.CartLine
	nextID int
	err    error
}

func (f *fakeCartRepo) AddOrMerge(_ context.Context, line *model.CartLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i := range f.lines {
		if f.lines[i].UserID == line.UserID && f.lines[i].ProductID == line.ProductID {
			f.lines[i].Quantity += line.Quantity
			*line = f.lines[i]
			return nil
		}
	}
	f.nextID++
	line.ID = fmt.Sprintf("line-%d", f.nextID)
	f.lines = append(f.lines, *line)
	return nil
}

func (f *fakeCartRepo) ChangeQuantity(_ context.Context, userID, lineID string, delta int) (*model.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lines {
		if f.lines[i].ID == lineID && f.lines[i].UserID == userID {
			f.lines[i].Quantity = max(1, f.lines[i].Quantity+delta)
			copied := f.lines[i]
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("cart item", lineID)
}

func (f *fakeCartRepo) RemoveLine(_ context.Context, userID, lineID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for i := range f.lines {
		if f.lines[i].ID == lineID && f.lines[i].UserID == userID {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCartRepo) ListLines(_ context.Context, userID string) ([]model.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := []model.CartLine{}
	for _, l := range f.lines {
		if l.UserID == userID {
			lines = append(lines, l)
		}
	}
	return lines, f.err
}

// fakeOrderRepo checks out a fakeCartRepo.
type fakeOrderRepo struct {
	carts  *fakeCartRepo
	orders []model.Order
	err    error
}

func (f *fakeOrderRepo) Checkout(ctx context.Context, userID string) (*model.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	lines, _ := f.carts.ListLines(ctx, userID)
	if len(lines) == 0 {
		return nil, apperror.EmptyCart()
	}
	order := model.NewOrderFromCart(userID, lines)
	order.ID = fmt.Sprintf("order-%d", len(f.orders)+1)
	order.CreatedAt = time.Now()
	f.orders = append([]model.Order{*order}, f.orders...)
	for _, l := range lines {
		_, _ = f.carts.RemoveLine(ctx, userID, l.ID)
	}
	return order, nil
}

func (f *fakeOrderRepo) ListOrders(_ context.Context, userID string) ([]model.Order, error) {
	orders := []model.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	return orders, f.err
}

type fakeStatsRepo struct {
	stats model.Stats
	err   error
}

func (f *fakeStatsRepo) Stats(context.Context) (*model.Stats, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.stats
	return &s, nil
}

// fakeBlobStore is an in-memory blob.Store.
type fakeBlobStore struct {
	mu     sync.Mutex
	blobs  map[string]*blob.Blob
	nextID int
	err    error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string]*blob.Blob)}
}

func (f *fakeBlobStore) Put(_ context.Context, b *blob.Blob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	b.ID = fmt.Sprintf("img-%d", f.nextID)
	b.Size = int64(len(b.Data))
	b.CreatedAt = time.Now()
	stored := *b
	f.blobs[b.ID] = &stored
	return nil
}

func (f *fakeBlobStore) Get(_ context.Context, id string) (*blob.Blob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[id]
	if !ok {
		return nil, apperror.NotFound("image", id)
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.blobs[id]; !ok {
		return apperror.NotFound("image", id)
	}
	delete(f.blobs, id)
	return nil
}
