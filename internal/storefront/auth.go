// Package storefront holds the client-side application state: the signed-in
// user, the admin session, the cart mirror and the debounced product
// fetchers. Each object is built once in main and passed to whatever needs it.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/safar/neokart/internal/apiclient"
	"github.com/safar/neokart/internal/models"
	"github.com/safar/neokart/internal/session"
	"go.uber.org/zap"
)

var ErrLoginRejected = errors.New("login rejected")

// Auth is the end-user session: the bearer token lives in the client's
// session and a copy of the profile is cached under session.UserKey.
type Auth struct {
	client  *apiclient.Client
	storage session.Storage
	logger  *zap.Logger

	mu   sync.RWMutex
	user *models.User
}

func NewAuth(client *apiclient.Client, storage session.Storage, logger *zap.Logger) *Auth {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Auth{client: client, storage: storage, logger: logger}

	if raw, ok := storage.Get(session.UserKey); ok && raw != "" {
		var u models.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			logger.Warn("discard cached user", zap.Error(err))
			_ = storage.Delete(session.UserKey)
		} else {
			a.user = &u
		}
	}
	return a
}

func (a *Auth) LoggedIn() bool {
	return a.client.Session().Active()
}

func (a *Auth) User() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// Restore refreshes the cached profile from /user/me. A rejected token is
// dropped along with the cached profile; a transport failure leaves both.
func (a *Auth) Restore(ctx context.Context) error {
	if !a.LoggedIn() {
		return nil
	}

	user, err := a.client.Me(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrRequestFailed) {
			a.logger.Info("stored session rejected", zap.Error(err))
			a.Logout()
		}
		return fmt.Errorf("restore session: %w", err)
	}

	return a.setUser(user)
}

// Login stores the token only when the server reports success for a USER
// account; admin credentials are rejected here.
func (a *Auth) Login(ctx context.Context, email, password string) error {
	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !resp.Success || resp.Role != models.RoleUser || resp.Token == "" {
		if resp.Message != "" {
			return fmt.Errorf("%w: %s", ErrLoginRejected, resp.Message)
		}
		return ErrLoginRejected
	}

	if err := a.client.Session().SetToken(resp.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return a.setUser(&models.User{Name: resp.Name, Role: resp.Role})
}

func (a *Auth) Register(ctx context.Context, req models.RegisterRequest) (*models.MessageResponse, error) {
	resp, err := a.client.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if !resp.Success {
		return resp, fmt.Errorf("register: %s", resp.Message)
	}
	return resp, nil
}

// VerifyOTP confirms a phone number. When the server answers with a token
// the user is signed in straight away.
func (a *Auth) VerifyOTP(ctx context.Context, phone, otp string) (*models.MessageResponse, error) {
	resp, err := a.client.VerifyOTP(ctx, phone, otp)
	if err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	if resp.Token == "" {
		return resp, nil
	}

	if err := a.client.Session().SetToken(resp.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	if err := a.Restore(ctx); err != nil {
		return resp, err
	}
	return resp, nil
}

func (a *Auth) Logout() {
	if err := a.client.Session().Clear(); err != nil {
		a.logger.Warn("clear user token", zap.Error(err))
	}
	if err := a.storage.Delete(session.UserKey); err != nil {
		a.logger.Warn("clear cached user", zap.Error(err))
	}

	a.mu.Lock()
	a.user = nil
	a.mu.Unlock()
}

func (a *Auth) setUser(u *models.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := a.storage.Set(session.UserKey, string(data)); err != nil {
		return fmt.Errorf("cache user: %w", err)
	}

	a.mu.Lock()
	a.user = u
	a.mu.Unlock()
	return nil
}

// AdminAuth is the back-office session. It has no profile cache; the admin
// client's token is the whole state.
type AdminAuth struct {
	client *apiclient.Client
	logger *zap.Logger
}

func NewAdminAuth(client *apiclient.Client, logger *zap.Logger) *AdminAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminAuth{client: client, logger: logger}
}

func (a *AdminAuth) Active() bool {
	return a.client.Session().Active()
}

func (a *AdminAuth) Login(ctx context.Context, email, password string) error {
	token, err := a.client.AdminLogin(ctx, email, password)
	if err != nil {
		return fmt.Errorf("admin login: %w", err)
	}
	if err := a.client.Session().SetToken(token); err != nil {
		return fmt.Errorf("store admin token: %w", err)
	}
	return nil
}

func (a *AdminAuth) Logout() {
	if err := a.client.Session().Clear(); err != nil {
		a.logger.Warn("clear admin token", zap.Error(err))
	}
}
