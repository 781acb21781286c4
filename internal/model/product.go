package model

// Product is a catalog entry. ID is the stable numeric id clients use in
// URLs and cart requests, not a storage-assigned key.
type Product struct {
	ID          int64   `json:"id"          db:"id"`
	Name        string  `json:"name"        db:"name"`
	Description string  `json:"description" db:"description"`
	Price       float64 `json:"price"       db:"price"`
	Brand       string  `json:"brand"       db:"brand"`
	Image       string  `json:"image"       db:"image"`
}

// FeaturedItem is a promotional tile shown on the home page.
type FeaturedItem struct {
	ID          int64  `json:"id"          db:"id"`
	Title       string `json:"title"       db:"title"`
	Description string `json:"description" db:"description"`
	Image       string `json:"image"       db:"image"`
}

// Stats are the admin dashboard counters.
type Stats struct {
	Products int `json:"products" db:"products"`
	Orders   int `json:"orders"   db:"orders"`
	Users    int `json:"users"    db:"users"`
}
