// Package server is the neokart REST API: storefront, cart, order and
// back-office routes under /api backed by Postgres.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/safar/neokart/internal/config"
	"github.com/safar/neokart/internal/models"
	"github.com/safar/neokart/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// SessionLookup resolves a bearer token to its account.
type SessionLookup func(ctx context.Context, token string) (*models.User, error)

type Options struct {
	DB     *sql.DB
	Config config.ServerConfig
	Logger *zap.Logger

	// Sessions overrides the token lookup; it defaults to the sessions table.
	Sessions SessionLookup
	Now      func() time.Time
}

type Server struct {
	db       *sql.DB
	cfg      config.ServerConfig
	logger   *zap.Logger
	sessions SessionLookup
	now      func() time.Time
}

func New(opts Options) *Server {
	s := &Server{
		db:       opts.DB,
		cfg:      opts.Config,
		logger:   opts.Logger,
		sessions: opts.Sessions,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.sessions == nil {
		s.sessions = func(ctx context.Context, token string) (*models.User, error) {
			return store.SessionUser(ctx, s.db, token)
		}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.cfg.SessionTTL <= 0 {
		s.cfg.SessionTTL = 24 * time.Hour
	}
	if s.cfg.LowStockThreshold <= 0 {
		s.cfg.LowStockThreshold = 5
	}
	return s
}

// Handler returns the routed, traced and logged API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	return otelhttp.NewHandler(s.logRequests(mux), "neokart-api")
}

func (s *Server) routes(mux *http.ServeMux) {
	user := func(h http.HandlerFunc) http.Handler { return s.requireRole(models.RoleUser, h) }
	admin := func(h http.HandlerFunc) http.Handler { return s.requireRole(models.RoleAdmin, h) }
	anyone := func(h http.HandlerFunc) http.Handler { return s.requireRole("", h) }

	// accounts
	mux.HandleFunc("POST /api/user/register", s.handleRegister())
	mux.HandleFunc("POST /api/user/login", s.handleLogin())
	mux.Handle("POST /api/user/logout", anyone(s.handleLogout()))
	mux.Handle("GET /api/user/me", anyone(s.handleMe()))
	mux.Handle("PUT /api/user/me", anyone(s.handleUpdateMe()))
	mux.Handle("PUT /api/user/change-password", anyone(s.handleChangePassword()))
	mux.HandleFunc("POST /api/auth/send-otp/{phone}", s.handleSendOTP())
	mux.HandleFunc("POST /api/auth/resend-otp/{phone}", s.handleSendOTP())
	mux.HandleFunc("POST /api/auth/verify-otp", s.handleVerifyOTP())
	mux.HandleFunc("POST /api/auth/forgot-password", s.handleForgotPassword())
	mux.HandleFunc("POST /api/auth/reset-password", s.handleResetPassword())
	mux.HandleFunc("POST /api/auth/admin/register", s.handleAdminRegister())
	mux.HandleFunc("POST /api/auth/admin/login", s.handleAdminLogin())
	mux.Handle("GET /api/admin", admin(s.handleMe()))
	mux.Handle("PUT /api/admin", admin(s.handleUpdateMe()))
	mux.Handle("PUT /api/admin/change-password", admin(s.handleChangePassword()))

	// catalog
	mux.HandleFunc("GET /api/products/all", s.handleAllProducts())
	mux.HandleFunc("GET /api/products/page", s.handleProductsPage())
	mux.HandleFunc("GET /api/products/categories", s.handleCategories())
	mux.HandleFunc("GET /api/products/categories-with-subcategories", s.handleCategoryTree())
	mux.HandleFunc("GET /api/products/search", s.handleSearch())
	mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct())
	mux.HandleFunc("GET /api/products/{first}/{second}", s.handleProductPair())
	mux.HandleFunc("GET /api/products/category/{category}/{sub}", s.handleFilterProducts())
	mux.HandleFunc("GET /api/products/related/{category}/{id}", s.handleRelated())
	mux.Handle("POST /api/products/{id}/rate", user(s.handleRate()))
	mux.Handle("POST /api/products/add", admin(s.handleAddProduct()))
	mux.Handle("PUT /api/products/update/{id}", admin(s.handleUpdateProduct()))
	mux.Handle("DELETE /api/products/delete/{id}", admin(s.handleDeleteProduct()))
	mux.Handle("POST /api/products/bulk-upload", admin(s.handleBulkUpload()))

	// cart
	mux.Handle("GET /api/cart/me", user(s.handleGetCart()))
	mux.Handle("POST /api/cart/add", user(s.handleAddToCart()))
	mux.Handle("PUT /api/cart/update/{productId}", user(s.handleUpdateCart()))
	mux.Handle("DELETE /api/cart/remove/{productId}", user(s.handleRemoveFromCart()))
	mux.Handle("DELETE /api/cart/clear", user(s.handleClearCart()))

	// orders
	mux.Handle("POST /api/orders/create", user(s.handleCreateOrder()))
	mux.Handle("GET /api/orders/my", user(s.handleMyOrders()))
	mux.Handle("GET /api/orders/{id}", anyone(s.handleGetOrder()))
	mux.Handle("DELETE /api/orders/{id}", user(s.handleCancelOrder()))
	mux.Handle("GET /api/orders", admin(s.handleAllOrders()))
	mux.Handle("GET /api/orders/page", admin(s.handleOrdersPage()))
	mux.Handle("POST /api/orders/update-status", admin(s.handleUpdateOrderStatus()))
	mux.Handle("POST /api/orders/ship-next", admin(s.handleShipNext()))

	// back office
	mux.Handle("GET /api/admin/variants/{id}", admin(s.handleListVariants()))
	mux.Handle("POST /api/admin/variants/{id}", admin(s.handleAddVariant()))
	mux.Handle("DELETE /api/admin/variants/{id}", admin(s.handleDeleteVariant()))
	mux.Handle("GET /api/admin/coupons", admin(s.handleListCoupons()))
	mux.Handle("POST /api/admin/coupons", admin(s.handleCreateCoupon()))
	mux.Handle("DELETE /api/admin/coupons/{id}", admin(s.handleDeleteCoupon()))
	mux.Handle("POST /api/admin/coupons/apply", anyone(s.handleApplyCoupon()))
	mux.Handle("GET /api/admin/flash-sales", admin(s.handleListFlashSales()))
	mux.HandleFunc("GET /api/admin/flash-sales/active", s.handleActiveFlashSales())
	mux.Handle("POST /api/admin/flash-sales", admin(s.handleCreateFlashSale()))
	mux.Handle("DELETE /api/admin/flash-sales/{id}", admin(s.handleDeleteFlashSale()))
	mux.Handle("GET /api/admin/users", admin(s.handleListUsers()))
	mux.Handle("GET /api/admin/users/page", admin(s.handleUsersPage()))
	mux.Handle("GET /api/admin/users/search", admin(s.handleSearchUsers()))
	mux.Handle("GET /api/admin/users/{id}", admin(s.handleGetUser()))
	mux.Handle("PUT /api/admin/users/{id}/toggle-status", admin(s.handleToggleUser()))
	mux.Handle("GET /api/admin/audit", admin(s.handleAuditLogs()))
	mux.Handle("GET /api/admin/dashboard/{metric}", admin(s.handleDashboard()))

	// contact form
	mux.HandleFunc("POST /api/contact", s.handleSendContactMessage())
	mux.Handle("GET /api/contact", admin(s.handleContactMessages()))

	if s.cfg.UploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadDir))))
	}
}
