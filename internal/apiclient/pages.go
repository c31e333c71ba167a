package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/safar/neokart/internal/models"
)

// Page is one page of an offset-paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// CursorPage is one page of a keyset-paginated listing. Pass NextCursor
// back to fetch the following page.
type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

func pageQuery(page, size int) url.Values {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		query.Set("size", strconv.Itoa(size))
	}
	return query
}

func (c *Client) ProductsPage(ctx context.Context, page, size int) (*Page[models.Product], error) {
	var p Page[models.Product]
	if err := c.get(ctx, "/products/page", pageQuery(page, size), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UsersPage(ctx context.Context, page, size int) (*Page[models.User], error) {
	var p Page[models.User]
	if err := c.authed(ctx, http.MethodGet, "/admin/users/page", pageQuery(page, size), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// OrdersPage lists all orders newest first (admin). An empty cursor starts
// from the newest order.
func (c *Client) OrdersPage(ctx context.Context, cursor string, limit int) (*CursorPage[models.Order], error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var p CursorPage[models.Order]
	if err := c.authed(ctx, http.MethodGet, "/orders/page", query, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ShipNextOrder marks the oldest processing order as shipped (admin).
func (c *Client) ShipNextOrder(ctx context.Context) (*models.Order, error) {
	var order models.Order
	if err := c.authed(ctx, http.MethodPost, "/orders/ship-next", nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
