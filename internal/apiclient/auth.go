package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/safar/neokart/internal/models"
)

func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.post(ctx, "/user/login", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	if err := c.post(ctx, "/user/register", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendOTP(ctx context.Context, phone string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	if err := c.post(ctx, "/auth/send-otp/"+url.PathEscape(phone), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResendOTP(ctx context.Context, phone string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	if err := c.post(ctx, "/auth/resend-otp/"+url.PathEscape(phone), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) VerifyOTP(ctx context.Context, phone, otp string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	req := models.VerifyOTPRequest{Phone: phone, OTP: otp}
	if err := c.post(ctx, "/auth/verify-otp", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	if err := c.post(ctx, "/auth/forgot-password", nil, models.ForgotPasswordRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	req := models.ResetPasswordRequest{Token: token, NewPassword: newPassword}
	if err := c.post(ctx, "/auth/reset-password", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the session on the server. The local token is left for the
// caller to clear.
func (c *Client) Logout(ctx context.Context) error {
	return c.authed(ctx, http.MethodPost, "/user/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.authed(ctx, http.MethodGet, "/user/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateMe(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	var user models.User
	if err := c.authed(ctx, http.MethodPut, "/user/me", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	req := models.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	if err := c.authed(ctx, http.MethodPut, "/user/change-password", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminLogin returns the admin bearer token. The server may answer with
// {"token": "..."} or with the bare token as a JSON string or plain text.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (string, error) {
	var raw []byte
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.post(ctx, "/auth/admin/login", nil, req, &raw); err != nil {
		return "", err
	}

	token, err := parseToken(raw)
	if err != nil {
		return "", fmt.Errorf("admin login: %w", err)
	}
	return token, nil
}

func parseToken(raw []byte) (string, error) {
	var obj struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Token == "" {
			return "", errEmptyToken
		}
		return obj.Token, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", errEmptyToken
		}
		return s, nil
	}

	s = strings.TrimSpace(string(raw))
	if s == "" || strings.ContainsAny(s, " \n{<") {
		return "", errEmptyToken
	}
	return s, nil
}

func (c *Client) AdminRegister(ctx context.Context, req models.RegisterRequest) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	if err := c.post(ctx, "/auth/admin/register", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
