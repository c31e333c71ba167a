package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
	"github.com/safar/neokart/internal/store"
)

func validateOrder(req models.OrderRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: order has no items", errBadRequest)
	}
	for _, item := range req.Items {
		if item.ProductID < 1 || item.Quantity < 1 {
			return fmt.Errorf("%w: invalid order line for product %d", errBadRequest, item.ProductID)
		}
	}
	addr := req.ShippingAddress
	if strings.TrimSpace(addr.Name) == "" || strings.TrimSpace(addr.Address) == "" || strings.TrimSpace(addr.City) == "" {
		return fmt.Errorf("%w: shipping name, address and city are required", errBadRequest)
	}
	return nil
}

func (s *Server) handleCreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.OrderRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if err := validateOrder(req); err != nil {
			s.respondErr(w, r, err)
			return
		}

		order, err := store.CreateOrder(r.Context(), s.db, currentUser(r.Context()).ID, req)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusCreated, order)
	}
}

func (s *Server) handleMyOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := store.UserOrders(r.Context(), s.db, currentUser(r.Context()).ID)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, orders)
	}
}

// handleGetOrder lets customers see their own orders and admins any order.
func (s *Server) handleGetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		order, err := store.GetOrder(r.Context(), s.db, id)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		user := currentUser(r.Context())
		if user.Role != models.RoleAdmin && order.UserID != user.ID {
			s.respondErr(w, r, database.ErrOrderNotFound)
			return
		}
		s.respondJSON(w, http.StatusOK, order)
	}
}

func (s *Server) handleCancelOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		_, err := store.CancelOrder(r.Context(), s.db, currentUser(r.Context()).ID, id)
		if err != nil {
			if errors.Is(err, database.ErrOrderNotCancellable) {
				s.respondError(w, http.StatusConflict, "Delivered orders cannot be cancelled")
				return
			}
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "Order cancelled successfully"})
	}
}

func (s *Server) handleAllOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := store.AllOrders(r.Context(), s.db)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, orders)
	}
}

// handleOrdersPage pages through all orders newest first; pass nextCursor
// back as cursor for the following page.
func (s *Server) handleOrdersPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := s.queryInt(w, r, "limit", store.DefaultPageSize)
		if !ok {
			return
		}
		var userID int64
		if raw := r.URL.Query().Get("userId"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "Invalid userId")
				return
			}
			userID = id
		}

		cursor := r.URL.Query().Get("cursor")
		if _, err := store.DecodeCursor(cursor); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid cursor")
			return
		}

		page, err := store.ListOrdersCursor(r.Context(), s.db, userID, cursor, limit)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, page)
	}
}

func (s *Server) handleUpdateOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		id, err := strconv.ParseInt(q.Get("orderId"), 10, 64)
		if err != nil || id < 1 {
			s.respondError(w, http.StatusBadRequest, "Invalid orderId")
			return
		}
		status := strings.ToUpper(strings.TrimSpace(q.Get("newStatus")))
		if !models.ValidOrderStatus(status) {
			s.respondError(w, http.StatusBadRequest, "Invalid newStatus")
			return
		}
		version, err := ifMatchVersion(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid If-Match version")
			return
		}

		order, err := store.UpdateOrderStatus(r.Context(), s.db, id, status, version)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, fmt.Sprintf("Order %d status set to %s", id, status), "")
		s.respondJSON(w, http.StatusOK, order)
	}
}

func (s *Server) handleShipNext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := store.ShipNextOrder(r.Context(), s.db)
		if err != nil {
			if errors.Is(err, database.ErrOrderNotFound) {
				s.respondError(w, http.StatusNotFound, "No orders waiting to ship")
				return
			}
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, fmt.Sprintf("Order %d shipped", order.ID), "")
		s.respondJSON(w, http.StatusOK, order)
	}
}
