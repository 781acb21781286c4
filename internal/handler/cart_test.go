package handler_test

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nebula-auto-parts/storefront/internal/handler"
	"github.com/nebula-auto-parts/storefront/internal/model"
)

func TestCartHandler_RequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/cart", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "no token, authorization denied")
}

func TestCartHandler_AddAndList(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.register(t, "buyer@example.com")

	t.Run("numeric productId", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": 5, "quantity": 2})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		line := decodeBody[model.CartLine](t, rr)
		assert.Equal(t, 2, line.Quantity)
		assert.Equal(t, "Wiper Blade", line.Name)
		assert.Equal(t, 700.0, line.Price)
		assert.Equal(t, "/img/wiper.jpg", line.Image)
	})

	t.Run("string productId merges", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/cart", token, `{"productId":"5"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, 3, decodeBody[model.CartLine](t, rr).Quantity)
	})

	t.Run("client price is ignored", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": 7, "price": 1, "name": "Cheap"})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		line := decodeBody[model.CartLine](t, rr)
		assert.Equal(t, 3900.0, line.Price)
		assert.Equal(t, "Timing Belt Kit", line.Name)
	})

	t.Run("list in insertion order", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/cart", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		lines := decodeBody[[]model.CartLine](t, rr)
		require.Len(t, lines, 2)
		assert.Equal(t, int64(5), lines[0].ProductID)
		assert.Equal(t, int64(7), lines[1].ProductID)
	})
}

func TestCartHandler_AddRejects(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.register(t, "buyer@example.com")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing body", "", http.StatusBadRequest},
		{"malformed json", `{"productId":`, http.StatusBadRequest},
		{"non-numeric id", `{"productId":"abc"}`, http.StatusBadRequest},
		{"missing id", `{"quantity":1}`, http.StatusBadRequest},
		{"unknown product", `{"productId":404}`, http.StatusNotFound},
		{"quantity above limit", `{"productId":5,"quantity":1000}`, http.StatusBadRequest},
		{"quantity overflows int", `{"productId":5,"quantity":99999999999999999999}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body any
			if tt.body != "" {
				body = tt.body
			}
			rr := env.do(t, http.MethodPost, "/api/cart", token, body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestCartHandler_ConcurrentAddsMerge(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.register(t, "buyer@example.com")

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.do(t, http.MethodPost, "/api/cart", token, `{"productId":7}`)
		}()
	}
	wg.Wait()

	lines := decodeBody[[]model.CartLine](t, env.do(t, http.MethodGet, "/api/cart", token, nil))
	require.Len(t, lines, 1)
	assert.Equal(t, 10, lines[0].Quantity)
}

func TestCartHandler_ChangeQuantity(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.register(t, "buyer@example.com")
	line := decodeBody[model.CartLine](t, env.do(t, http.MethodPost, "/api/cart", token, `{"productId":5}`))

	rr := env.do(t, http.MethodPut, "/api/cart/"+line.ID, token, `{"type":"inc"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 2, decodeBody[model.CartLine](t, rr).Quantity)

	for range 3 {
		rr = env.do(t, http.MethodPut, "/api/cart/"+line.ID, token, `{"type":"dec"}`)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Equal(t, 1, decodeBody[model.CartLine](t, rr).Quantity, "quantity must not drop below 1")

	t.Run("unknown direction", func(t *testing.T) {
		rr := env.do(t, http.MethodPut, "/api/cart/"+line.ID, token, `{"type":"double"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("another user's line", func(t *testing.T) {
		_, other := env.register(t, "other@example.com")
		rr := env.do(t, http.MethodPut, "/api/cart/"+line.ID, other, `{"type":"inc"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestCartHandler_Remove(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.register(t, "buyer@example.com")
	line := decodeBody[model.CartLine](t, env.do(t, http.MethodPost, "/api/cart", token, `{"productId":5}`))

	for _, name := range []string{"present", "already removed"} {
		t.Run(name, func(t *testing.T) {
			rr := env.do(t, http.MethodDelete, "/api/cart/"+line.ID, token, nil)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "Item removed", decodeBody[map[string]any](t, rr)["message"])
		})
	}

	assert.JSONEq(t, "[]", env.do(t, http.MethodGet, "/api/cart", token, nil).Body.String())
}

func TestOrderHandler_Checkout(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.register(t, "buyer@example.com")

	t.Run("empty cart", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/orders/checkout", token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "empty_cart", decodeBody[handler.ErrorResponse](t, rr).Error)
	})

	env.do(t, http.MethodPost, "/api/cart", token, `{"productId":5,"quantity":2}`)
	env.do(t, http.MethodPost, "/api/cart", token, `{"productId":7}`)

	rr := env.do(t, http.MethodPost, "/api/orders/checkout", token, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	order := decodeBody[model.Order](t, rr)
	assert.Equal(t, 5300.0, order.Total)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(5), order.Items[0].ProductID)
	assert.Equal(t, 2, order.Items[0].Quantity)

	assert.JSONEq(t, "[]", env.do(t, http.MethodGet, "/api/cart", token, nil).Body.String(),
		"checkout must empty the cart")

	orders := decodeBody[[]model.Order](t, env.do(t, http.MethodGet, "/api/orders", token, nil))
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	t.Run("orders are private", func(t *testing.T) {
		_, other := env.register(t, "other@example.com")
		rr := env.do(t, http.MethodGet, "/api/orders", other, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})
}
