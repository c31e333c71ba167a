package apiclient

import (
	"context"
	"net/http"

	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func (c *Client) TotalProducts(ctx context.Context) (int64, error) {
	var total int64
	if err := c.authed(ctx, http.MethodGet, "/admin/dashboard/total-products", nil, nil, &total); err != nil {
		return 0, err
	}
	return total, nil
}

func (c *Client) WeeklyIncome(ctx context.Context) ([]models.IncomePoint, error) {
	var points []models.IncomePoint
	if err := c.authed(ctx, http.MethodGet, "/admin/dashboard/weekly-income", nil, nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *Client) MonthlyIncome(ctx context.Context) (map[string]decimal.Decimal, error) {
	income := make(map[string]decimal.Decimal)
	if err := c.authed(ctx, http.MethodGet, "/admin/dashboard/monthly-income", nil, nil, &income); err != nil {
		return nil, err
	}
	return income, nil
}

func (c *Client) TopProducts(ctx context.Context) ([]models.TopProduct, error) {
	var top []models.TopProduct
	if err := c.authed(ctx, http.MethodGet, "/admin/dashboard/top-products", nil, nil, &top); err != nil {
		return nil, err
	}
	return top, nil
}

func (c *Client) OrdersByStatus(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	if err := c.authed(ctx, http.MethodGet, "/admin/dashboard/orders-status", nil, nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *Client) LowStock(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.authed(ctx, http.MethodGet, "/admin/dashboard/low-stock", nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Dashboard fetches all dashboard aggregates concurrently; the first
// failure cancels the rest.
func (c *Client) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	var d models.Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.TotalProducts, err = c.TotalProducts(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.WeeklyIncome, err = c.WeeklyIncome(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.MonthlyIncome, err = c.MonthlyIncome(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.TopProducts, err = c.TopProducts(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.OrdersByStatus, err = c.OrdersByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.LowStock, err = c.LowStock(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
