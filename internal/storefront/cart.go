package storefront

import (
	"context"
	"fmt"
	"sync"

	"github.com/safar/neokart/internal/apiclient"
	"github.com/safar/neokart/internal/models"
	"go.uber.org/zap"
)

// Cart mirrors the server-side cart. Every mutation is one request and the
// response replaces the local copy; a failed call leaves it untouched.
type Cart struct {
	client *apiclient.Client
	logger *zap.Logger

	op sync.Mutex // one outstanding cart request at a time

	mu   sync.RWMutex
	cart models.Cart
}

func NewCart(client *apiclient.Client, logger *zap.Logger) *Cart {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cart{client: client, logger: logger}
}

// Snapshot returns a copy safe to read while requests are in flight.
func (c *Cart) Snapshot() models.Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := c.cart
	out.Items = append([]models.CartItem(nil), c.cart.Items...)
	return out
}

// Fetch loads the cart. Without a session the cart is simply empty.
func (c *Cart) Fetch(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()

	if !c.client.Session().Active() {
		c.replace(&models.Cart{})
		return nil
	}

	cart, err := c.client.GetCart(ctx)
	if err != nil {
		c.logger.Debug("fetch cart failed", zap.Error(err))
		return fmt.Errorf("fetch cart: %w", err)
	}
	c.replace(cart)
	return nil
}

func (c *Cart) Add(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	return c.mutate("add to cart", func() (*models.Cart, error) {
		return c.client.AddToCart(ctx, productID, quantity)
	})
}

func (c *Cart) Update(ctx context.Context, productID int64, quantity int) error {
	return c.mutate("update cart item", func() (*models.Cart, error) {
		return c.client.UpdateCartItem(ctx, productID, quantity)
	})
}

func (c *Cart) Remove(ctx context.Context, productID int64) error {
	return c.mutate("remove cart item", func() (*models.Cart, error) {
		return c.client.RemoveCartItem(ctx, productID)
	})
}

func (c *Cart) Clear(ctx context.Context) error {
	return c.mutate("clear cart", func() (*models.Cart, error) {
		return c.client.ClearCart(ctx)
	})
}

// Reset drops the local copy, e.g. on logout.
func (c *Cart) Reset() {
	c.replace(&models.Cart{})
}

func (c *Cart) mutate(op string, call func() (*models.Cart, error)) error {
	c.op.Lock()
	defer c.op.Unlock()

	cart, err := call()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.replace(cart)
	return nil
}

func (c *Cart) replace(cart *models.Cart) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart = *cart
}
