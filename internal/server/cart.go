package server

import (
	"net/http"
	"strconv"

	"github.com/safar/neokart/internal/store"
)

func (s *Server) handleGetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := store.GetCart(r.Context(), s.db, currentUser(r.Context()).ID)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, cart)
	}
}

func (s *Server) handleAddToCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64)
		if err != nil || productID < 1 {
			s.respondError(w, http.StatusBadRequest, "Invalid productId")
			return
		}
		quantity, ok := s.cartQuantity(w, r)
		if !ok {
			return
		}

		cart, err := store.AddToCart(r.Context(), s.db, currentUser(r.Context()).ID, productID, quantity)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, cart)
	}
}

func (s *Server) handleUpdateCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := s.pathID(w, r, "productId")
		if !ok {
			return
		}
		quantity, ok := s.cartQuantity(w, r)
		if !ok {
			return
		}

		cart, err := store.UpdateCartItem(r.Context(), s.db, currentUser(r.Context()).ID, productID, quantity)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, cart)
	}
}

func (s *Server) cartQuantity(w http.ResponseWriter, r *http.Request) (int, bool) {
	quantity, ok := s.queryInt(w, r, "quantity", 1)
	if !ok {
		return 0, false
	}
	if quantity < 1 {
		s.respondError(w, http.StatusBadRequest, "Quantity must be at least 1")
		return 0, false
	}
	return quantity, true
}

func (s *Server) handleRemoveFromCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := s.pathID(w, r, "productId")
		if !ok {
			return
		}

		cart, err := store.RemoveCartItem(r.Context(), s.db, currentUser(r.Context()).ID, productID)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, cart)
	}
}

func (s *Server) handleClearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := store.ClearCart(r.Context(), s.db, currentUser(r.Context()).ID)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, cart)
	}
}
