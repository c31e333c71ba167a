package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/safar/neokart/internal/models"
)

func (c *Client) GetCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := c.authed(ctx, http.MethodGet, "/cart/me", nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int) (*models.Cart, error) {
	query := url.Values{
		"productId": {pathID(productID)},
		"quantity":  {strconv.Itoa(quantity)},
	}
	var cart models.Cart
	if err := c.authed(ctx, http.MethodPost, "/cart/add", query, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, productID int64, quantity int) (*models.Cart, error) {
	query := url.Values{"quantity": {strconv.Itoa(quantity)}}
	var cart models.Cart
	if err := c.authed(ctx, http.MethodPut, "/cart/update/"+pathID(productID), query, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, productID int64) (*models.Cart, error) {
	var cart models.Cart
	if err := c.authed(ctx, http.MethodDelete, "/cart/remove/"+pathID(productID), nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) ClearCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := c.authed(ctx, http.MethodDelete, "/cart/clear", nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}
