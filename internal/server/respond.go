package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/safar/neokart/internal/database"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode JSON response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps store and database errors to a status code. Anything it
// does not recognise is logged and reported as a 500 without detail.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		s.respondError(w, status, "internal server error")
		return
	}
	s.respondError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrCartItemNotFound),
		errors.Is(err, database.ErrVariantNotFound),
		errors.Is(err, database.ErrCouponNotFound),
		errors.Is(err, database.ErrFlashSaleNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, database.ErrEmailTaken),
		errors.Is(err, database.ErrSKUTaken),
		errors.Is(err, database.ErrOptimisticLockFailed),
		errors.Is(err, database.ErrLockTimeout),
		errors.Is(err, database.ErrOrderNotCancellable):
		return http.StatusConflict
	case errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrCouponInvalid),
		errors.Is(err, database.ErrInvalidOTP),
		errors.Is(err, database.ErrInvalidResetToken),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case database.IsUniqueViolation(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		s.respondError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return n, true
}

// ifMatchVersion reads the expected row version from If-Match; 0 means the
// caller did not ask for an optimistic check.
func ifMatchVersion(r *http.Request) (int, error) {
	raw := r.Header.Get("If-Match")
	if raw == "" {
		return 0, nil
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errBadRequest
	}
	return v, nil
}
