package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
)

func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.authed(ctx, http.MethodPost, "/orders/create", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.authed(ctx, http.MethodGet, "/orders/my", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := c.authed(ctx, http.MethodGet, "/orders/"+pathID(id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CancelOrder(ctx context.Context, id int64) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	if err := c.authed(ctx, http.MethodDelete, "/orders/"+pathID(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AllOrders lists every customer's orders (admin).
func (c *Client) AllOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.authed(ctx, http.MethodGet, "/orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	query := url.Values{
		"orderId":   {pathID(id)},
		"newStatus": {status},
	}
	var order models.Order
	if err := c.authed(ctx, http.MethodPost, "/orders/update-status", query, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) ApplyCoupon(ctx context.Context, code string, total decimal.Decimal) (*models.CouponQuote, error) {
	var quote models.CouponQuote
	req := models.ApplyCouponRequest{Code: code, TotalAmount: total}
	if err := c.authed(ctx, http.MethodPost, "/admin/coupons/apply", nil, req, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}
