package storefront

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/safar/neokart/internal/apiclient"
	"github.com/safar/neokart/internal/models"
	"github.com/safar/neokart/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartWithItem(qty int) models.Cart {
	price := decimal.RequireFromString("19.99")
	return models.Cart{
		ID: 1,
		Items: []models.CartItem{{
			ID:       10,
			Product:  models.Product{ID: 5, Name: "Cable", Price: price},
			Quantity: qty,
			Price:    price,
		}},
		TotalPrice: price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func TestCart_FetchWithoutSessionIsEmpty(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { hits.Add(1) })
	srv := newAPI(t, mux)

	cart := NewCart(userClient(srv, session.NewMemoryStorage()), nil)
	require.NoError(t, cart.Fetch(context.Background()))

	assert.Empty(t, cart.Snapshot().Items)
	assert.True(t, cart.Snapshot().TotalPrice.IsZero())
	assert.Equal(t, int32(0), hits.Load())
}

func TestCart_MutationsReplaceWithServerState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cart/me", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, models.Cart{ID: 1})
	})
	mux.HandleFunc("POST /api/cart/add", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("productId"))
		respond(w, http.StatusOK, cartWithItem(1))
	})
	mux.HandleFunc("PUT /api/cart/update/5", func(w http.ResponseWriter, r *http.Request) {
		// the server caps quantity at available stock
		respond(w, http.StatusOK, cartWithItem(2))
	})
	mux.HandleFunc("DELETE /api/cart/remove/5", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, models.Cart{ID: 1})
	})
	srv := newAPI(t, mux)
	storage := session.NewMemoryStorage()
	require.NoError(t, storage.Set(session.UserTokenKey, "tok"))
	ctx := context.Background()

	cart := NewCart(userClient(srv, storage), nil)
	require.NoError(t, cart.Fetch(ctx))
	assert.Equal(t, int64(1), cart.Snapshot().ID)

	require.NoError(t, cart.Add(ctx, 5, 0))
	assert.Equal(t, 1, cart.Snapshot().ItemCount())

	require.NoError(t, cart.Update(ctx, 5, 99))
	snap := cart.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity, "local state follows the server, not the request")
	assert.True(t, snap.TotalPrice.Equal(decimal.RequireFromString("39.98")))

	require.NoError(t, cart.Remove(ctx, 5))
	assert.Empty(t, cart.Snapshot().Items)
}

func TestCart_FailureLeavesStateUnchanged(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/cart/add", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, cartWithItem(1))
	})
	mux.HandleFunc("DELETE /api/cart/clear", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusInternalServerError, map[string]string{"error": "database unavailable"})
	})
	srv := newAPI(t, mux)
	storage := session.NewMemoryStorage()
	require.NoError(t, storage.Set(session.UserTokenKey, "tok"))
	ctx := context.Background()

	cart := NewCart(userClient(srv, storage), nil)
	require.NoError(t, cart.Add(ctx, 5, 1))
	before := cart.Snapshot()

	err := cart.Clear(ctx)
	require.Error(t, err)
	assert.Equal(t, "database unavailable", apiclient.Message(err))
	assert.Equal(t, before.ItemCount(), cart.Snapshot().ItemCount())
	assert.True(t, before.TotalPrice.Equal(cart.Snapshot().TotalPrice))
}

func TestCart_MutationWithoutSessionFailsFast(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { hits.Add(1) })
	srv := newAPI(t, mux)
	ctx := context.Background()

	cart := NewCart(userClient(srv, session.NewMemoryStorage()), nil)

	assert.ErrorIs(t, cart.Add(ctx, 1, 1), apiclient.ErrNotAuthenticated)
	assert.ErrorIs(t, cart.Update(ctx, 1, 2), apiclient.ErrNotAuthenticated)
	assert.ErrorIs(t, cart.Remove(ctx, 1), apiclient.ErrNotAuthenticated)
	assert.ErrorIs(t, cart.Clear(ctx), apiclient.ErrNotAuthenticated)
	assert.Equal(t, int32(0), hits.Load())
}

func TestCart_SnapshotIsACopy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/cart/add", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, cartWithItem(1))
	})
	srv := newAPI(t, mux)
	storage := session.NewMemoryStorage()
	require.NoError(t, storage.Set(session.UserTokenKey, "tok"))

	cart := NewCart(userClient(srv, storage), nil)
	require.NoError(t, cart.Add(context.Background(), 5, 1))

	snap := cart.Snapshot()
	snap.Items[0].Quantity = 50
	assert.Equal(t, 1, cart.Snapshot().Items[0].Quantity)

	cart.Reset()
	assert.Empty(t, cart.Snapshot().Items)
}
