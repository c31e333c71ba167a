package apiclient

import (
	"context"
	"net/http"

	"github.com/safar/neokart/internal/models"
)

// SendContactMessage posts the contact form; no session is needed.
func (c *Client) SendContactMessage(ctx context.Context, msg models.ContactMessage) (*models.ContactMessage, error) {
	var saved models.ContactMessage
	if err := c.post(ctx, "/contact", nil, msg, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) ContactMessages(ctx context.Context) ([]models.ContactMessage, error) {
	var msgs []models.ContactMessage
	if err := c.authed(ctx, http.MethodGet, "/contact", nil, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
