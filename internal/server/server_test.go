package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/safar/neokart/internal/config"
	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	testUser  = &models.User{ID: 7, Name: "Asha", Email: "asha@example.com", Role: models.RoleUser, Enabled: true}
	testAdmin = &models.User{ID: 1, Name: "Root", Email: "root@example.com", Role: models.RoleAdmin, Enabled: true}
)

// fakeSessions knows two tokens and reports every other one as expired.
func fakeSessions(_ context.Context, token string) (*models.User, error) {
	switch token {
	case "user-token":
		return testUser, nil
	case "admin-token":
		return testAdmin, nil
	}
	return nil, database.ErrSessionNotFound
}

func newTestServer(t *testing.T, logger *zap.Logger) http.Handler {
	t.Helper()
	s := New(Options{
		Config:   config.ServerConfig{UploadDir: t.TempDir()},
		Logger:   logger,
		Sessions: fakeSessions,
	})
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, target, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["error"]
}

func TestAuthentication(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/cart/me", "", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/cart/me", "stale", http.StatusUnauthorized},
		{"user on admin route", http.MethodGet, "/api/admin/coupons", "user-token", http.StatusForbidden},
		{"admin on user route", http.MethodGet, "/api/cart/me", "admin-token", http.StatusForbidden},
		{"admin profile", http.MethodGet, "/api/admin", "admin-token", http.StatusOK},
		{"own profile", http.MethodGet, "/api/user/me", "user-token", http.StatusOK},
		{"contact inbox anonymous", http.MethodGet, "/api/contact", "", http.StatusUnauthorized},
		{"contact inbox as user", http.MethodGet, "/api/contact", "user-token", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.token, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestMeReturnsSessionUser(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/user/me", "user-token", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, testUser.Email, got.Email)
	assert.Equal(t, models.RoleUser, got.Role)
}

func TestExpiredSessionMessage(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/orders/my", "stale", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session expired, please log in again", errorBody(t, rec))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRequestValidation(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		name    string
		method  string
		target  string
		token   string
		body    string
		want    int
		message string
	}{
		{"cart bad product", http.MethodPost, "/api/cart/add?productId=abc", "user-token", "", http.StatusBadRequest, "Invalid productId"},
		{"cart zero quantity", http.MethodPost, "/api/cart/add?productId=3&quantity=0", "user-token", "", http.StatusBadRequest, "Quantity must be at least 1"},
		{"cart update bad path", http.MethodPut, "/api/cart/update/x?quantity=2", "user-token", "", http.StatusBadRequest, "Invalid productId"},
		{"order malformed", http.MethodPost, "/api/orders/create", "user-token", "{", http.StatusBadRequest, "Invalid request body"},
		{"order empty", http.MethodPost, "/api/orders/create", "user-token", `{"items":[]}`, http.StatusBadRequest, "bad request: order has no items"},
		{"order bad line", http.MethodPost, "/api/orders/create", "user-token",
			`{"items":[{"productId":1,"quantity":0}],"shippingAddress":{"name":"A","address":"B","city":"C"}}`,
			http.StatusBadRequest, "bad request: invalid order line for product 1"},
		{"order no address", http.MethodPost, "/api/orders/create", "user-token",
			`{"items":[{"productId":1,"quantity":1}]}`,
			http.StatusBadRequest, "bad request: shipping name, address and city are required"},
		{"unknown sort", http.MethodGet, "/api/products/category/phones/android?sortBy=cheapest", "", "", http.StatusBadRequest, "Invalid sortBy"},
		{"bad min price", http.MethodGet, "/api/products/category/phones/all?minPrice=cheap", "", "", http.StatusBadRequest, "Invalid minPrice"},
		{"ratings bad id", http.MethodGet, "/api/products/abc/ratings", "", "", http.StatusBadRequest, "Invalid product id"},
		{"rate out of range", http.MethodPost, "/api/products/4/rate", "user-token", `{"stars":6}`, http.StatusBadRequest, "Stars must be between 1 and 5"},
		{"status unknown", http.MethodPost, "/api/orders/update-status?orderId=1&newStatus=LOST", "admin-token", "", http.StatusBadRequest, "Invalid newStatus"},
		{"status bad version", http.MethodPost, "/api/orders/update-status?orderId=1&newStatus=SHIPPED", "admin-token", "", http.StatusBadRequest, "Invalid If-Match version"},
		{"orders bad cursor", http.MethodGet, "/api/orders/page?cursor=%25%25", "admin-token", "", http.StatusBadRequest, "Invalid cursor"},
		{"coupon percent over 100", http.MethodPost, "/api/admin/coupons", "admin-token",
			`{"code":"X","discountType":"percentage","discountValue":"120","startDate":"2024-01-01T00:00:00Z","endDate":"2024-02-01T00:00:00Z","usageLimit":1}`,
			http.StatusBadRequest, "Percentage discount cannot exceed 100"},
		{"coupon bad type", http.MethodPost, "/api/admin/coupons", "admin-token",
			`{"code":"X","discountType":"bogo","discountValue":"1"}`,
			http.StatusBadRequest, "Discount type must be percentage or fixed"},
		{"flash sale backwards", http.MethodPost, "/api/admin/flash-sales", "admin-token",
			`{"title":"Diwali","startDatetime":"2024-02-01T00:00:00Z","endDatetime":"2024-01-01T00:00:00Z"}`,
			http.StatusBadRequest, "Flash sale needs a title and must end after it starts"},
		{"change password too short", http.MethodPut, "/api/user/change-password", "user-token", `{"currentPassword":"a","newPassword":"b"}`, http.StatusBadRequest, "Password must be at least 6 characters"},
		{"admin register no email", http.MethodPost, "/api/auth/admin/register", "", `{"name":"Root","password":"secret123"}`, http.StatusBadRequest, "A valid email is required"},
		{"contact no subject", http.MethodPost, "/api/contact", "", `{"name":"Asha","email":"asha@example.com","message":"hi"}`, http.StatusBadRequest, "Subject is required"},
		{"contact bad email", http.MethodPost, "/api/contact", "", `{"name":"Asha","email":"asha","subject":"Hi","message":"hi"}`, http.StatusBadRequest, "A valid email is required"},
		{"contact blank message", http.MethodPost, "/api/contact", "", `{"name":"Asha","email":"asha@example.com","subject":"Hi","message":"  "}`, http.StatusBadRequest, "Message is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			if tt.name == "status bad version" {
				req.Header.Set("If-Match", "abc")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.message != "" {
				assert.Equal(t, tt.message, errorBody(t, rec))
			}
		})
	}
}

func TestRegisterValidationUsesMessageField(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/user/register", "", `{"name":"A","email":"a@example.com","password":"123"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body models.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Password must be at least 6 characters", body.Message)
}

func TestValidateContactMessage(t *testing.T) {
	ok := models.ContactMessage{Name: "Asha", Email: "asha@example.com", Subject: "Hi", Message: "Hello"}
	assert.Empty(t, validateContactMessage(ok))

	long := ok
	long.Message = strings.Repeat("ä", maxContactMessageLength)
	assert.Empty(t, validateContactMessage(long))

	long.Message += "!"
	assert.Equal(t, "Message must be at most 5000 characters", validateContactMessage(long))

	anon := ok
	anon.Name = " "
	assert.Equal(t, "Name is required", validateContactMessage(anon))
}

func TestPublicRoutesWithoutDatabase(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/products/search?q=%20", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/products/12/reviews", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/admin/dashboard/revenue-forecast", "admin-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := newTestServer(t, zap.New(core))

	do(t, h, http.MethodGet, "/api/cart/me", "", "")

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/cart/me", fields["path"])
	assert.Equal(t, int64(http.StatusUnauthorized), fields["status"])
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{database.ErrProductNotFound, http.StatusNotFound},
		{fmt.Errorf("get: %w", database.ErrOrderNotFound), http.StatusNotFound},
		{database.ErrSessionNotFound, http.StatusUnauthorized},
		{database.ErrEmailTaken, http.StatusConflict},
		{database.ErrOptimisticLockFailed, http.StatusConflict},
		{fmt.Errorf("max retries (3) exceeded: %w", database.ErrLockTimeout), http.StatusConflict},
		{database.ErrOrderNotCancellable, http.StatusConflict},
		{database.ErrInsufficientStock, http.StatusBadRequest},
		{fmt.Errorf("%w: coupon is inactive", database.ErrCouponInvalid), http.StatusBadRequest},
		{fmt.Errorf("%w: missing", errBadRequest), http.StatusBadRequest},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}

func TestInternalErrorsHideDetail(t *testing.T) {
	s := New(Options{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products/all", nil)

	s.respondErr(rec, req, fmt.Errorf("dial tcp 10.0.0.3:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", errorBody(t, rec))
}

func TestIfMatchVersion(t *testing.T) {
	tests := []struct {
		header  string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"3", 3, false},
		{`"4"`, 4, false},
		{"0", 0, true},
		{"W/abc", 0, true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPut, "/", nil)
		if tt.header != "" {
			req.Header.Set("If-Match", tt.header)
		}
		got, err := ifMatchVersion(req)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		assert.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, bearerToken(req), header)
	}
}

func TestParseBulkCSV(t *testing.T) {
	input := strings.Join([]string{
		"Name,Price,Stock,Category,SubCategory,SKU",
		"Phone X,499.99,10,phones,android,PX-1",
		"Broken,abc,1,phones,,",
		"No Category,10,1,,,",
		"Cable,5,,accessories,,",
	}, "\n")

	rows, err := parseBulkCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.NoError(t, rows[0].err)
	assert.Equal(t, 2, rows[0].line)
	assert.Equal(t, "Phone X", rows[0].input.Name)
	assert.Equal(t, "499.99", rows[0].input.Price.StringFixed(2))
	assert.Equal(t, 10, rows[0].input.Stock)
	assert.Equal(t, "android", rows[0].input.SubCategory)
	assert.Equal(t, "PX-1", rows[0].input.SKU)

	assert.EqualError(t, rows[1].err, "invalid price")
	assert.ErrorIs(t, rows[2].err, errBadRequest)
	assert.NoError(t, rows[3].err)
	assert.Equal(t, 0, rows[3].input.Stock)
}

func TestParseBulkCSVRequiresColumns(t *testing.T) {
	_, err := parseBulkCSV(strings.NewReader("name,stock\nA,1\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBadRequest)
	assert.Contains(t, err.Error(), `"price"`)

	_, err = parseBulkCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, errBadRequest)
}

func TestSaveImages(t *testing.T) {
	dir := t.TempDir()
	s := New(Options{Config: config.ServerConfig{UploadDir: dir}})

	form := multipartForm(t, map[string]string{"front.PNG": "png-bytes", "back.jpg": "jpg-bytes"})
	urls, err := s.saveImages(form.File["images"])
	require.NoError(t, err)
	require.Len(t, urls, 2)

	for _, u := range urls {
		assert.True(t, strings.HasPrefix(u, "/uploads/"), u)
		_, err := os.Stat(filepath.Join(dir, filepath.Base(u)))
		assert.NoError(t, err)
	}

	bad := multipartForm(t, map[string]string{"notes.txt": "hello"})
	_, err = s.saveImages(bad.File["images"])
	assert.ErrorIs(t, err, errBadRequest)
}

func multipartForm(t *testing.T, files map[string]string) *multipart.Form {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm
}
