package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/safar/neokart/internal/models"
	"github.com/safar/neokart/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const auditLogLimit = 200

var hundredPercent = decimal.NewFromInt(100)

// audit appends a back-office action to the audit log. performedBy
// defaults to the signed-in account. A failed write is logged, not
// surfaced: the action itself already happened.
func (s *Server) audit(r *http.Request, action, performedBy string) {
	if performedBy == "" {
		if user := currentUser(r.Context()); user != nil {
			performedBy = user.Email
		}
	}
	if err := store.RecordAudit(r.Context(), s.db, action, performedBy); err != nil {
		s.logger.Warn("record audit", zap.String("action", action), zap.Error(err))
	}
}

func (s *Server) handleListVariants() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		variants, err := store.ListVariants(r.Context(), s.db, productID)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, variants)
	}
}

func (s *Server) handleAddVariant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		var v models.ProductVariant
		if !s.decodeJSON(w, r, &v) {
			return
		}
		if strings.TrimSpace(v.VariantName) == "" || v.Stock < 0 || v.Price.IsNegative() {
			s.respondError(w, http.StatusBadRequest, "Variant needs a name, a price and non-negative stock")
			return
		}

		created, err := store.AddVariant(r.Context(), s.db, productID, v)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, fmt.Sprintf("Added variant %q to product %d", created.VariantName, productID), "")
		s.respondJSON(w, http.StatusCreated, created)
	}
}

func (s *Server) handleDeleteVariant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		if err := store.DeleteVariant(r.Context(), s.db, id); err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, fmt.Sprintf("Deleted variant %d", id), "")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListCoupons() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coupons, err := store.ListCoupons(r.Context(), s.db)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, coupons)
	}
}

func validateCoupon(c models.Coupon) string {
	switch {
	case strings.TrimSpace(c.Code) == "":
		return "Coupon code is required"
	case !strings.EqualFold(c.DiscountType, models.DiscountPercentage) && !strings.EqualFold(c.DiscountType, models.DiscountFixed):
		return "Discount type must be percentage or fixed"
	case !c.DiscountValue.IsPositive():
		return "Discount value must be positive"
	case strings.EqualFold(c.DiscountType, models.DiscountPercentage) && c.DiscountValue.GreaterThan(hundredPercent):
		return "Percentage discount cannot exceed 100"
	case !c.EndDate.After(c.StartDate):
		return "Coupon must end after it starts"
	case c.UsageLimit < 0:
		return "Usage limit must not be negative"
	}
	return ""
}

func (s *Server) handleCreateCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c models.Coupon
		if !s.decodeJSON(w, r, &c) {
			return
		}
		if msg := validateCoupon(c); msg != "" {
			s.respondError(w, http.StatusBadRequest, msg)
			return
		}

		created, err := store.CreateCoupon(r.Context(), s.db, c)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, "Created coupon "+created.Code, "")
		s.respondJSON(w, http.StatusCreated, created)
	}
}

func (s *Server) handleDeleteCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		if err := store.DeleteCoupon(r.Context(), s.db, id); err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, fmt.Sprintf("Deleted coupon %d", id), "")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleApplyCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ApplyCouponRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Code) == "" || req.TotalAmount.IsNegative() {
			s.respondError(w, http.StatusBadRequest, "A coupon code and a non-negative total are required")
			return
		}

		quote, err := store.ApplyCoupon(r.Context(), s.db, req.Code, req.TotalAmount)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, quote)
	}
}

func (s *Server) handleListFlashSales() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sales, err := store.ListFlashSales(r.Context(), s.db)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, sales)
	}
}

func (s *Server) handleActiveFlashSales() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sales, err := store.ActiveFlashSales(r.Context(), s.db, s.now())
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, sales)
	}
}

func (s *Server) handleCreateFlashSale() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sale models.FlashSale
		if !s.decodeJSON(w, r, &sale) {
			return
		}
		if strings.TrimSpace(sale.Title) == "" || !sale.EndDatetime.After(sale.StartDatetime) {
			s.respondError(w, http.StatusBadRequest, "Flash sale needs a title and must end after it starts")
			return
		}
		for _, p := range sale.Products {
			if !strings.EqualFold(p.DiscountType, models.DiscountPercentage) && !strings.EqualFold(p.DiscountType, models.DiscountFixed) {
				s.respondError(w, http.StatusBadRequest, "Discount type must be percentage or fixed")
				return
			}
		}

		created, err := store.CreateFlashSale(r.Context(), s.db, sale)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, "Created flash sale "+created.Title, "")
		s.respondJSON(w, http.StatusCreated, created)
	}
}

func (s *Server) handleDeleteFlashSale() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		if err := store.DeleteFlashSale(r.Context(), s.db, id); err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, fmt.Sprintf("Deleted flash sale %d", id), "")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.AllUsers(r.Context(), s.db)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, users)
	}
}

func (s *Server) handleUsersPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := s.queryInt(w, r, "page", 1)
		if !ok {
			return
		}
		size, ok := s.queryInt(w, r, "size", store.DefaultPageSize)
		if !ok {
			return
		}

		result, err := store.ListUsers(r.Context(), s.db, page, size)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		user, err := store.GetUser(r.Context(), s.db, id)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, user)
	}
}

func (s *Server) handleSearchUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.SearchUsers(r.Context(), s.db, r.URL.Query().Get("email"))
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, users)
	}
}

func (s *Server) handleToggleUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}
		if id == currentUser(r.Context()).ID {
			s.respondError(w, http.StatusBadRequest, "You cannot disable your own account")
			return
		}

		user, err := store.ToggleUserStatus(r.Context(), s.db, id)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		state := "disabled"
		if user.Enabled {
			state = "enabled"
		}
		s.audit(r, fmt.Sprintf("User %s %s", user.Email, state), "")
		s.respondJSON(w, http.StatusOK, user)
	}
}

func (s *Server) handleAuditLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := store.AuditLogs(r.Context(), s.db, auditLogLimit)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, logs)
	}
}

func (s *Server) handleDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var (
			result interface{}
			err    error
		)
		switch r.PathValue("metric") {
		case "total-products":
			result, err = store.CountProducts(ctx, s.db)
		case "weekly-income":
			result, err = store.WeeklyIncome(ctx, s.db)
		case "monthly-income":
			result, err = store.MonthlyIncome(ctx, s.db)
		case "top-products":
			result, err = store.TopProducts(ctx, s.db, 5)
		case "orders-status":
			result, err = store.OrdersByStatus(ctx, s.db)
		case "low-stock":
			result, err = store.LowStock(ctx, s.db, s.cfg.LowStockThreshold)
		default:
			http.NotFound(w, r)
			return
		}
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, result)
	}
}
