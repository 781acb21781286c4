package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nebula-auto-parts/storefront/internal/auth"
	"github.com/nebula-auto-parts/storefront/internal/handler"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository/sqlite"
	"github.com/nebula-auto-parts/storefront/internal/service"
)

const testMaxUpload = 1 << 10

// testEnv wires every handler to real services over an in-memory database.
type testEnv struct {
	db     *sqlite.DB
	tokens *auth.TokenService
	auth   *service.AuthService
	router chi.Router
}

type fakeGoogle struct {
	user *auth.GoogleUser
	err  error
	code string // last code passed to Exchange
}

func (f *fakeGoogle) AuthURL(state string) string {
	return "https://accounts.example.test/o/oauth2/auth?state=" + state
}

func (f *fakeGoogle) Exchange(_ context.Context, code string) (*auth.GoogleUser, error) {
	f.code = code
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func newTestEnv(t *testing.T, google handler.GoogleAuthenticator) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.InsertProducts(context.Background(), []model.Product{
		{ID: 5, Name: "Wiper Blade", Description: "All-season beam blade", Price: 700, Brand: "Bosch", Image: "/img/wiper.jpg"},
		{ID: 7, Name: "Timing Belt Kit", Description: "Belt with tensioner", Price: 3900, Brand: "Gates", Image: "/img/belt.jpg"},
	}))

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", 0)
	require.NoError(t, err)

	authService := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), logger)
	catalog := handler.NewCatalogHandler(service.NewCatalogService(db, logger), logger)
	carts := handler.NewCartHandler(service.NewCartService(db, db, logger), logger)
	orders := handler.NewOrderHandler(service.NewOrderService(db, logger), logger)
	profiles := handler.NewProfileHandler(service.NewProfileService(db, db.Images(), testMaxUpload, logger), testMaxUpload, logger)
	admin := handler.NewAdminHandler(service.NewAdminService(db, db, logger), logger)
	authHandler := handler.NewAuthHandler(authService, google, "http://shop.example.test", logger)

	r := chi.NewRouter()
	r.Get("/", handler.HandleHealth)
	r.Get("/api/products", catalog.HandleList)
	r.Get("/api/products/{id}", catalog.HandleGet)
	r.Get("/api/search", catalog.HandleSearch)
	r.Get("/api/featured-items", catalog.HandleFeatured)
	r.Post("/api/auth/register", authHandler.HandleRegister)
	r.Post("/api/auth/login", authHandler.HandleLogin)
	r.Get("/api/auth/google", authHandler.HandleGoogleLogin)
	r.Get("/api/auth/google/callback", authHandler.HandleGoogleCallback)
	r.Get("/api/profile-picture/{id}", profiles.HandleGetPicture)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/api/cart", carts.HandleList)
		r.Post("/api/cart", carts.HandleAdd)
		r.Put("/api/cart/{id}", carts.HandleChangeQuantity)
		r.Delete("/api/cart/{id}", carts.HandleRemove)
		r.Post("/api/orders/checkout", orders.HandleCheckout)
		r.Get("/api/orders", orders.HandleList)
		r.Get("/api/user/profile", profiles.HandleGetProfile)
		r.Put("/api/user/profile", profiles.HandleUpdateProfile)
		r.Post("/api/profile-picture", profiles.HandleUploadPicture)
		r.Put("/api/profile-picture", profiles.HandleSetPicture)
		r.Delete("/api/profile-picture/{id}", profiles.HandleDeletePicture)

		r.With(auth.RequireRole(model.RoleAdmin)).Route("/api/admin", func(r chi.Router) {
			r.Get("/users", admin.HandleListUsers)
			r.Get("/stats", admin.HandleStats)
			r.Put("/user/{id}", admin.HandleUpdateUser)
			r.Delete("/user/{id}", admin.HandleDeleteUser)
		})
	})

	return &testEnv{db: db, tokens: tokens, auth: authService, router: r}
}

// register creates a password account and returns its token.
func (e *testEnv) register(t *testing.T, email string) (*model.User, string) {
	t.Helper()
	res, err := e.auth.Register(context.Background(), service.RegisterInput{
		Name:     "Test " + email,
		Email:    email,
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	return res.User, res.Token
}

// admin creates an administrator and returns its token.
func (e *testEnv) admin(t *testing.T) string {
	t.Helper()
	user, err := e.auth.EnsureAdmin(context.Background(), "boss@example.com", "admin-pass")
	require.NoError(t, err)
	token, err := e.tokens.Generate(auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	require.NoError(t, err)
	return token
}

// do sends a JSON request (body may be nil) with an optional bearer token.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, token)
}

func (e *testEnv) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}
