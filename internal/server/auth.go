package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
	"github.com/safar/neokart/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	otpTTL            = 5 * time.Minute
	resetTTL          = 30 * time.Minute
)

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func validateRegistration(req models.RegisterRequest) string {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "Name is required"
	case !strings.Contains(req.Email, "@"):
		return "A valid email is required"
	case len(req.Password) < minPasswordLength:
		return "Password must be at least 6 characters"
	}
	return ""
}

func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req models.RegisterRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if msg := validateRegistration(req); msg != "" {
			s.respondJSON(w, http.StatusBadRequest, models.MessageResponse{Message: msg})
			return
		}

		hash, err := hashPassword(req.Password)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		phone := strings.TrimSpace(req.Phone)
		user, err := store.CreateUser(ctx, s.db, store.NewUser{
			Name:         req.Name,
			Email:        req.Email,
			Phone:        phone,
			PasswordHash: hash,
			Verified:     phone == "",
		})
		if err != nil {
			if errors.Is(err, database.ErrEmailTaken) {
				s.respondJSON(w, http.StatusConflict, models.MessageResponse{Message: "Email already registered"})
				return
			}
			s.respondErr(w, r, err)
			return
		}

		if phone == "" {
			s.respondJSON(w, http.StatusCreated, models.MessageResponse{Success: true, Message: "User registered successfully."})
			return
		}

		if err := s.issueOTP(r, phone); err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.logger.Info("user registered", zap.Int64("user_id", user.ID))
		s.respondJSON(w, http.StatusCreated, models.MessageResponse{
			Success: true,
			Message: "User registered successfully. OTP sent to " + phone,
		})
	}
}

// issueOTP stores a code for phone. There is no SMS gateway: the code is
// written to the log.
func (s *Server) issueOTP(r *http.Request, phone string) error {
	code, err := store.IssueOTP(r.Context(), s.db, phone, otpTTL)
	if err != nil {
		return err
	}
	s.logger.Info("otp issued", zap.String("phone", phone), zap.String("code", code))
	return nil
}

func (s *Server) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req models.LoginRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}

		user, hash, err := store.GetUserCredentials(ctx, s.db, req.Email)
		if err != nil && !errors.Is(err, database.ErrUserNotFound) {
			s.respondErr(w, r, err)
			return
		}

		rejected := func(msg string) {
			s.respondJSON(w, http.StatusOK, models.LoginResponse{Success: false, Message: msg})
		}
		switch {
		case user == nil || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil:
			rejected("Invalid email or password")
			return
		case !user.Verified:
			rejected("OTP verification pending for this account.")
			return
		case !user.Enabled:
			rejected("This account has been disabled.")
			return
		}

		token, err := store.CreateSession(ctx, s.db, user.ID, s.cfg.SessionTTL)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.respondJSON(w, http.StatusOK, models.LoginResponse{
			Success: true,
			Token:   token,
			Name:    user.Name,
			Role:    user.Role,
		})
	}
}

func (s *Server) handleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteSession(r.Context(), s.db, currentToken(r.Context())); err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "Logged out"})
	}
}

func (s *Server) handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, currentUser(r.Context()))
	}
}

func (s *Server) handleUpdateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateProfileRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if req.Email != "" && !strings.Contains(req.Email, "@") {
			s.respondError(w, http.StatusBadRequest, "A valid email is required")
			return
		}

		user, err := store.UpdateProfile(r.Context(), s.db, currentUser(r.Context()).ID, req)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, user)
	}
}

func (s *Server) handleChangePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := currentUser(ctx)

		var req models.ChangePasswordRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if len(req.NewPassword) < minPasswordLength {
			s.respondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
			return
		}

		current, err := store.GetPasswordHash(ctx, s.db, user.ID)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(current), []byte(req.CurrentPassword)) != nil {
			s.respondError(w, http.StatusBadRequest, "Current password is incorrect")
			return
		}

		hash, err := hashPassword(req.NewPassword)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		if err := store.UpdatePassword(ctx, s.db, user.ID, hash); err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "Password changed successfully"})
	}
}

func (s *Server) handleSendOTP() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phone := r.PathValue("phone")

		user, err := store.UserByPhone(r.Context(), s.db, phone)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		if user.Verified {
			s.respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "User already verified. No need to resend OTP."})
			return
		}

		if err := s.issueOTP(r, phone); err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "OTP sent to " + phone})
	}
}

func (s *Server) handleVerifyOTP() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req models.VerifyOTPRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}

		if err := store.ConsumeOTP(ctx, s.db, req.Phone, strings.TrimSpace(req.OTP)); err != nil {
			if errors.Is(err, database.ErrInvalidOTP) {
				s.respondJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "Invalid or expired OTP. Please try again."})
				return
			}
			s.respondErr(w, r, err)
			return
		}
		if _, err := store.MarkPhoneVerified(ctx, s.db, req.Phone); err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "OTP verified successfully. You can now log in."})
	}
}

func (s *Server) handleForgotPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req models.ForgotPasswordRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}

		user, _, err := store.GetUserCredentials(ctx, s.db, req.Email)
		switch {
		case errors.Is(err, database.ErrUserNotFound):
		case err != nil:
			s.respondErr(w, r, err)
			return
		default:
			token, err := store.CreatePasswordReset(ctx, s.db, user.ID, resetTTL)
			if err != nil {
				s.respondErr(w, r, err)
				return
			}
			s.logger.Info("password reset issued", zap.Int64("user_id", user.ID), zap.String("token", token))
		}

		s.respondJSON(w, http.StatusOK, models.MessageResponse{
			Success: true,
			Message: "If the email is registered, a reset link has been sent.",
		})
	}
}

func (s *Server) handleResetPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ResetPasswordRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if len(req.NewPassword) < minPasswordLength {
			s.respondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
			return
		}

		hash, err := hashPassword(req.NewPassword)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		if err := store.ResetPassword(r.Context(), s.db, req.Token, hash); err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "Password reset successfully!"})
	}
}

func (s *Server) handleAdminRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if msg := validateRegistration(req); msg != "" {
			s.respondError(w, http.StatusBadRequest, msg)
			return
		}

		hash, err := hashPassword(req.Password)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		admin, err := store.CreateUser(r.Context(), s.db, store.NewUser{
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			Verified:     true,
		})
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, "Registered admin "+admin.Email, admin.Email)
		s.respondJSON(w, http.StatusCreated, models.MessageResponse{Success: true, Message: "Admin registered successfully"})
	}
}

func (s *Server) handleAdminLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req models.LoginRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}

		admin, hash, err := store.GetUserCredentials(ctx, s.db, req.Email)
		if err != nil && !errors.Is(err, database.ErrUserNotFound) {
			s.respondErr(w, r, err)
			return
		}
		if admin == nil || admin.Role != models.RoleAdmin || !admin.Enabled ||
			bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid email or password")
			return
		}

		token, err := store.CreateSession(ctx, s.db, admin.ID, s.cfg.SessionTTL)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, "Admin logged in", admin.Email)
		s.respondJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}
