package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/safar/neokart/internal/apiclient"
	"github.com/safar/neokart/internal/config"
	"github.com/safar/neokart/internal/models"
	"github.com/safar/neokart/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, handler http.Handler, storage session.Storage) (*app, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	errOut := &bytes.Buffer{}
	a := &app{logger: zap.NewNop(), errOut: errOut}
	a.connect(config.ClientConfig{
		BaseURL:        srv.URL,
		Timeout:        5 * time.Second,
		SearchDebounce: time.Millisecond,
		PriceDebounce:  time.Millisecond,
		PageSize:       2,
	}, storage)
	return a, errOut
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(a)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func rating(r float64) *float64 { return &r }

func TestProductsCmd_filtersSortsAndPages(t *testing.T) {
	phones := []models.Product{
		{ID: 1, Name: "Basic", Price: decimal.NewFromInt(100), AverageRating: rating(2.5), Category: "Phones", SubCategory: "Android"},
		{ID: 2, Name: "Flagship", Price: decimal.NewFromInt(900), AverageRating: rating(4.8), Category: "Phones", SubCategory: "iPhone"},
		{ID: 3, Name: "Mid", Price: decimal.NewFromInt(400), AverageRating: rating(3.9), Category: "Phones", SubCategory: "Android"},
		{ID: 4, Name: "Budget", Price: decimal.NewFromInt(150), Category: "Phones", SubCategory: "Android"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/category/Phones", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, phones)
	})
	a, _ := newTestApp(t, mux, session.NewMemoryStorage())

	out, err := execute(t, a, "products", "Phones", "--max-price", "500", "--rating", "2", "--sort", "highToLow", "--json")
	require.NoError(t, err)

	var got []models.Product
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Mid", got[0].Name)
	assert.Equal(t, "Basic", got[1].Name)

	out, err = execute(t, a, "products", "Phones", "--sort", "lowToHigh", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Mid")
	assert.Contains(t, out, "Flagship")
	assert.Contains(t, out, "Page 2 of 2 (4 products)")
	assert.Contains(t, out, "Sub-categories: Android, iPhone")

	out, err = execute(t, a, "products", "Phones", "--sub", "iPhone")
	require.NoError(t, err)
	assert.Contains(t, out, "Flagship")
	assert.NotContains(t, out, "Basic")
	assert.Contains(t, out, "Sub-categories: Android, iPhone")

	out, err = execute(t, a, "products", "Phones", "--max-price", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "No products match your filters.")

	_, err = execute(t, a, "products", "Phones", "--sort", "cheapest")
	assert.ErrorContains(t, err, "unknown sort key")
}

func TestSearchCmd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gaming mouse", r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, []models.Product{{ID: 7, Name: "Gaming Mouse", Price: decimal.NewFromInt(40)}})
	})
	a, _ := newTestApp(t, mux, session.NewMemoryStorage())

	out, err := execute(t, a, "search", "gaming", "mouse")
	require.NoError(t, err)
	assert.Contains(t, out, "Gaming Mouse")
}

func TestCartCmd_requiresLogin(t *testing.T) {
	var hits atomic.Int32
	a, _ := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), session.NewMemoryStorage())

	_, err := execute(t, a, "cart", "add", "1")
	require.ErrorIs(t, err, apiclient.ErrNotAuthenticated)
	assert.Zero(t, hits.Load())

	out, err := execute(t, a, "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty.")
}

func TestLoginThenAddToCart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.LoginResponse{Success: true, Role: models.RoleUser, Name: "Ada", Token: "tok-1"})
	})
	mux.HandleFunc("POST /api/cart/add", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "3", r.URL.Query().Get("productId"))
		assert.Equal(t, "2", r.URL.Query().Get("quantity"))
		writeJSON(w, http.StatusOK, models.Cart{
			Items: []models.CartItem{{
				Product:  models.Product{ID: 3, Name: "Cable"},
				Quantity: 2,
				Price:    decimal.RequireFromString("4.50"),
			}},
			TotalPrice: decimal.RequireFromString("9.00"),
		})
	})
	storage := session.NewMemoryStorage()
	a, _ := newTestApp(t, mux, storage)

	out, err := execute(t, a, "login", "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, Ada.")
	token, _ := storage.Get(session.UserTokenKey)
	assert.Equal(t, "tok-1", token)

	out, err = execute(t, a, "cart", "add", "3", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Cable")
	assert.Contains(t, out, "9.00")
}

func TestLoginCmd_rejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.LoginResponse{Message: "Invalid email or password"})
	})
	storage := session.NewMemoryStorage()
	a, _ := newTestApp(t, mux, storage)

	_, err := execute(t, a, "login", "ada@example.com", "wrong")
	require.ErrorContains(t, err, "Invalid email or password")
	_, ok := storage.Get(session.UserTokenKey)
	assert.False(t, ok)
}

func TestExpiredSessionPrintsLoginHint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cart/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired"})
	})
	storage := session.NewMemoryStorage()
	require.NoError(t, storage.Set(session.UserTokenKey, "stale"))
	require.NoError(t, storage.Set(session.AdminTokenKey, "admin-ok"))
	a, errOut := newTestApp(t, mux, storage)

	_, err := execute(t, a, "cart")
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.Contains(t, errOut.String(), "neokart login")

	_, ok := storage.Get(session.UserTokenKey)
	assert.False(t, ok)
	admin, _ := storage.Get(session.AdminTokenKey)
	assert.Equal(t, "admin-ok", admin)
}

func TestLogoutCmd(t *testing.T) {
	var loggedOut atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/logout", func(w http.ResponseWriter, r *http.Request) {
		loggedOut.Store(r.Header.Get("Authorization") == "Bearer tok-1")
		w.WriteHeader(http.StatusNoContent)
	})
	storage := session.NewMemoryStorage()
	require.NoError(t, storage.Set(session.UserTokenKey, "tok-1"))
	require.NoError(t, storage.Set(session.UserKey, `{"name":"Ada","role":"USER"}`))
	a, _ := newTestApp(t, mux, storage)

	out, err := execute(t, a, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")
	assert.True(t, loggedOut.Load())

	_, ok := storage.Get(session.UserTokenKey)
	assert.False(t, ok)
	_, ok = storage.Get(session.UserKey)
	assert.False(t, ok)
}

func TestAdminOrderStatusCmd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders/update-status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer admin-1", r.Header.Get("Authorization"))
		assert.Equal(t, "12", r.URL.Query().Get("orderId"))
		assert.Equal(t, "SHIPPED", r.URL.Query().Get("newStatus"))
		writeJSON(w, http.StatusOK, models.Order{ID: 12, Status: models.OrderStatusShipped})
	})
	storage := session.NewMemoryStorage()
	require.NoError(t, storage.Set(session.AdminTokenKey, "admin-1"))
	a, _ := newTestApp(t, mux, storage)

	out, err := execute(t, a, "admin", "orders", "status", "12", "shipped")
	require.NoError(t, err)
	assert.Contains(t, out, "Order 12 is SHIPPED.")

	_, err = execute(t, a, "admin", "orders", "status", "12", "lost")
	assert.ErrorContains(t, err, "unknown order status")
}

func TestCartArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		id      int64
		qty     int
		wantErr bool
	}{
		{"default quantity", []string{"5"}, 5, 1, false},
		{"explicit quantity", []string{"5", "3"}, 5, 3, false},
		{"zero quantity", []string{"5", "0"}, 0, 0, true},
		{"bad id", []string{"x"}, 0, 0, true},
		{"bad quantity", []string{"5", "many"}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, qty, err := cartArgs(tt.args, 1)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.qty, qty)
		})
	}
}

func TestParseSaleProduct(t *testing.T) {
	p, err := parseSaleProduct("42:percentage:15")
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ProductID)
	assert.Equal(t, models.DiscountPercentage, p.DiscountType)
	assert.True(t, p.DiscountValue.Equal(decimal.NewFromInt(15)))

	for _, raw := range []string{"42", "x:fixed:1", "42:fixed:lots"} {
		_, err := parseSaleProduct(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseWhen(t *testing.T) {
	day, err := parseWhen("start", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), day)

	ts, err := parseWhen("end", "2026-03-01T18:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 18, ts.Hour())

	_, err = parseWhen("end", "tomorrow")
	assert.ErrorContains(t, err, "--end")
}

func TestContactCmd(t *testing.T) {
	var got models.ContactMessage
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/contact", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		got.ID = 1
		writeJSON(w, http.StatusCreated, got)
	})
	mux.HandleFunc("GET /api/contact", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer admin-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []models.ContactMessage{{
			ID: 1, Name: "Asha", Email: "asha@example.com", Subject: "Late delivery",
			Message: "Order 12\nhas not arrived.", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		}})
	})
	storage := session.NewMemoryStorage()
	a, _ := newTestApp(t, mux, storage)

	out, err := execute(t, a, "contact", "--name", "Asha", "--email", "asha@example.com",
		"--subject", "Late delivery", "--message", "Order 12 has not arrived.")
	require.NoError(t, err)
	assert.Contains(t, out, "Your message has been sent successfully!")
	assert.Equal(t, "Late delivery", got.Subject)

	_, err = execute(t, a, "admin", "messages")
	require.ErrorIs(t, err, apiclient.ErrNotAuthenticated)

	require.NoError(t, storage.Set(session.AdminTokenKey, "admin-1"))
	out, err = execute(t, a, "admin", "messages")
	require.NoError(t, err)
	assert.Contains(t, out, "Asha <asha@example.com>")
	assert.Contains(t, out, "Order 12 has not arrived.")
}
