package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nebula-auto-parts/storefront/internal/handler"
	"github.com/nebula-auto-parts/storefront/internal/model"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Nebula Auto Parts API is running", rr.Body.String())
}

func TestCatalogHandler(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("list", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/products", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		products := decodeBody[[]model.Product](t, rr)
		assert.Len(t, products, 2)
		assert.Equal(t, int64(5), products[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/products/7", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Timing Belt Kit", decodeBody[model.Product](t, rr).Name)
	})

	t.Run("get unknown id", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/products/999", "", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", decodeBody[handler.ErrorResponse](t, rr).Error)
	})

	t.Run("get non-numeric id", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/products/abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", decodeBody[handler.ErrorResponse](t, rr).Error)
	})

	t.Run("search ignores case", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/search?q=BOSCH", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		products := decodeBody[[]model.Product](t, rr)
		if assert.Len(t, products, 1) {
			assert.Equal(t, int64(5), products[0].ID)
		}
	})

	t.Run("search without match is an empty array", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/search?q=spark", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})

	t.Run("search without q", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/search", "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("featured", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/featured-items", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})
}
