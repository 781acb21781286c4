// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: New opens the database and the
// image store, builds services and handlers, and maps URLs to them.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB (+ blob.Store)
//	             → services (catalog, cart, order, auth, profile, admin)
//	             → handlers → routes
//
// Handlers only see services and services only see repository interfaces,
// so every layer can be tested on its own.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nebula-auto-parts/storefront/internal/auth"
	"github.com/nebula-auto-parts/storefront/internal/blob"
	"github.com/nebula-auto-parts/storefront/internal/blob/gridfs"
	"github.com/nebula-auto-parts/storefront/internal/config"
	"github.com/nebula-auto-parts/storefront/internal/handler"
	"github.com/nebula-auto-parts/storefront/internal/middleware"
	"github.com/nebula-auto-parts/storefront/internal/model"
	sqliteRepo "github.com/nebula-auto-parts/storefront/internal/repository/sqlite"
	"github.com/nebula-auto-parts/storefront/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and, with BLOB_BACKEND=gridfs,
// the MongoDB client. Both are released by Close, which Start calls on
// shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	gridfs *gridfs.Store // nil unless the gridfs backend is selected
}

// New creates a Server from cfg.
//
// It opens and migrates the database, seeds the catalog on first run,
// connects the configured image store and makes sure the bootstrap admin
// exists when ADMIN_EMAIL is set. Everything opened so far is closed again
// if a later step fails.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *Server, err error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	seeded, err := db.Seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("seeding catalog: %w", err)
	}
	if seeded > 0 {
		logger.Info("catalog seeded", slog.Int("products", seeded))
	}

	var blobs blob.Store = db.Images()
	if cfg.BlobBackend == config.BlobBackendGridFS {
		if s.gridfs, err = gridfs.Connect(ctx, cfg.MongoURI, cfg.MongoDB, logger); err != nil {
			return nil, fmt.Errorf("connecting image store: %w", err)
		}
		blobs = s.gridfs
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	authService := service.NewAuthService(db, tokens, auth.NewPasswordService(), logger)

	if cfg.AdminEmail != "" {
		admin, err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("bootstrapping admin: %w", err)
		}
		logger.Info("admin account ready", slog.String("userID", admin.ID))
	}

	s.setupRoutes(tokens, authService, blobs)
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /                              health text
//	GET    /api/featured-items            featured tiles
//	GET    /api/products                  catalog
//	GET    /api/products/{id}             one product
//	GET    /api/search?q=                 product search
//	POST   /api/auth/register             sign up
//	POST   /api/auth/login                password login
//	GET    /api/auth/google               Google consent redirect   [GOOGLE_CLIENT_ID set]
//	GET    /api/auth/google/callback      Google callback           [GOOGLE_CLIENT_ID set]
//	GET    /api/profile-picture/{id}      image bytes
//	GET    /api/user/profile              bearer
//	PUT    /api/user/profile              bearer
//	POST   /api/profile-picture           bearer
//	PUT    /api/profile-picture           bearer
//	DELETE /api/profile-picture/{id}      bearer
//	GET    /api/cart                      bearer
//	POST   /api/cart                      bearer
//	PUT    /api/cart/{id}                 bearer
//	DELETE /api/cart/{id}                 bearer
//	POST   /api/orders/checkout           bearer
//	GET    /api/orders                    bearer
//	GET    /api/admin/users               bearer + admin
//	GET    /api/admin/stats               bearer + admin
//	PUT    /api/admin/user/{id}           bearer + admin
//	DELETE /api/admin/user/{id}           bearer + admin
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs first so the logger can print it; Recoverer sits inside
// the logger so a recovered panic is still logged as a 500.
func (s *Server) setupRoutes(tokens *auth.TokenService, authService *service.AuthService, blobs blob.Store) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	catalogHandler := handler.NewCatalogHandler(service.NewCatalogService(s.db, s.logger), s.logger)
	cartHandler := handler.NewCartHandler(service.NewCartService(s.db, s.db, s.logger), s.logger)
	orderHandler := handler.NewOrderHandler(service.NewOrderService(s.db, s.logger), s.logger)
	profileHandler := handler.NewProfileHandler(
		service.NewProfileService(s.db, blobs, s.config.MaxUploadBytes, s.logger),
		s.config.MaxUploadBytes, s.logger)
	adminHandler := handler.NewAdminHandler(service.NewAdminService(s.db, s.db, s.logger), s.logger)

	// A nil *GoogleProvider inside the interface would not compare equal to
	// nil, so the interface is only assigned when Google is configured.
	var google handler.GoogleAuthenticator
	if s.config.GoogleEnabled() {
		google = auth.NewGoogleProvider(s.config.GoogleClientID, s.config.GoogleClientSecret, s.config.GoogleCallbackURL)
	} else {
		s.logger.Warn("GOOGLE_CLIENT_ID not set, Google sign-in is disabled")
	}
	authHandler := handler.NewAuthHandler(authService, google, s.config.FrontendURL, s.logger)

	s.router.Get("/", handler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// === Public ===
		r.Get("/featured-items", catalogHandler.HandleFeatured)
		r.Get("/products", catalogHandler.HandleList)
		r.Get("/products/{id}", catalogHandler.HandleGet)
		r.Get("/search", catalogHandler.HandleSearch)
		r.Get("/profile-picture/{id}", profileHandler.HandleGetPicture)

		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		if google != nil {
			r.Get("/auth/google", authHandler.HandleGoogleLogin)
			r.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
		}

		// === Bearer token required ===
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/user/profile", profileHandler.HandleGetProfile)
			r.Put("/user/profile", profileHandler.HandleUpdateProfile)
			r.Post("/profile-picture", profileHandler.HandleUploadPicture)
			r.Put("/profile-picture", profileHandler.HandleSetPicture)
			r.Delete("/profile-picture/{id}", profileHandler.HandleDeletePicture)

			r.Get("/cart", cartHandler.HandleList)
			r.Post("/cart", cartHandler.HandleAdd)
			r.Put("/cart/{id}", cartHandler.HandleChangeQuantity)
			r.Delete("/cart/{id}", cartHandler.HandleRemove)

			r.Post("/orders/checkout", orderHandler.HandleCheckout)
			r.Get("/orders", orderHandler.HandleList)

			// === Admin only ===
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(model.RoleAdmin))
				r.Get("/users", adminHandler.HandleListUsers)
				r.Get("/stats", adminHandler.HandleStats)
				r.Put("/user/{id}", adminHandler.HandleUpdateUser)
				r.Delete("/user/{id}", adminHandler.HandleDeleteUser)
			})
		})
	})
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and, if connected, the MongoDB client.
func (s *Server) Close() error {
	var errs []error
	if s.gridfs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.gridfs.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing image store: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the image store and the database
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("blobBackend", s.config.BlobBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
