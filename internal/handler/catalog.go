package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nebula-auto-parts/storefront/internal/service"
)

// CatalogHandler serves the public product endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// HandleHealth answers GET / so load balancers and humans can see the API
// is up.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Nebula Auto Parts API is running"))
}

// HandleList returns the whole catalog.
//
// HTTP: GET /api/products
func (h *CatalogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// HandleGet returns one product by its numeric id.
//
// HTTP: GET /api/products/{id}
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// HandleSearch matches ?q= against name, brand and description.
//
// HTTP: GET /api/search?q=wiper
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// HandleFeatured returns the home page tiles.
//
// HTTP: GET /api/featured-items
func (h *CatalogHandler) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.Featured(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
