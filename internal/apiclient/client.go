// Package apiclient talks to the neokart REST API. A Client is bound to one
// session (end user or admin): it attaches that session's bearer token to
// every request and invalidates it when the server answers 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/safar/neokart/internal/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

type Options struct {
	BaseURL        string
	Storage        session.Storage
	StorageKey     string
	OnUnauthorized func()

	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.Logger
}

type Client struct {
	baseURL string
	session *session.Session
	http    *http.Client
	logger  *zap.Logger
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	storage := opts.Storage
	if storage == nil {
		storage = session.NewMemoryStorage()
	}

	s := session.New(storage, opts.StorageKey, logger)
	s.OnUnauthorized(opts.OnUnauthorized)

	return &Client{
		baseURL: apiRoot(opts.BaseURL),
		session: s,
		http:    httpClient,
		logger:  logger.With(zap.String("session", opts.StorageKey)),
	}
}

// NewUser builds the storefront client bound to the end-user token.
func NewUser(opts Options) *Client {
	opts.StorageKey = session.UserTokenKey
	return New(opts)
}

// NewAdmin builds the back-office client bound to the admin token.
func NewAdmin(opts Options) *Client {
	opts.StorageKey = session.AdminTokenKey
	return New(opts)
}

func apiRoot(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/api") {
		return base
	}
	return base + "/api"
}

func (c *Client) Session() *session.Session { return c.session }

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) requireSession() error {
	if !c.session.Active() {
		return ErrNotAuthenticated
	}
	return nil
}

// get/post/put/del send JSON without a session precondition.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, query, body, out)
}

// authed fails fast with ErrNotAuthenticated when there is no token.
func (c *Client) authed(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	return c.doJSON(ctx, method, path, query, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, query, reader, contentType, out)
}

type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// upload sends a multipart form; it always needs a session.
func (c *Client) upload(ctx context.Context, method, path string, fields map[string]string, files []File, out any) error {
	if err := c.requireSession(); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return fmt.Errorf("create form file %s: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return fmt.Errorf("copy form file %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	return c.send(ctx, method, path, nil, &buf, w.FormDataContentType(), out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			c.logger.Warn("close response body", zap.Error(closeErr))
		}
	}()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		if res.StatusCode == http.StatusUnauthorized {
			c.session.Invalidate()
		}
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: res.StatusCode,
			Message:    errorMessage(data),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if raw, ok := out.(*[]byte); ok {
		*raw = data
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}

	return nil
}

// errorMessage pulls the human-readable reason out of an error body:
// {"error": ...}, {"message": ...}, or plain text.
func errorMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
		return ""
	}

	var text string
	if err := json.Unmarshal(body, &text); err == nil {
		return text
	}

	if bytes.HasPrefix(body, []byte("<")) {
		return ""
	}
	return string(body)
}

func pathID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

var errEmptyToken = errors.New("server returned no token")
