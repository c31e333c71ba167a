package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/safar/neokart/internal/models"
)

func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.get(ctx, "/products/all", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := c.get(ctx, "/products/"+pathID(id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.get(ctx, "/products/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) CategoryTree(ctx context.Context) ([]models.CategoryTree, error) {
	var tree []models.CategoryTree
	if err := c.get(ctx, "/products/categories-with-subcategories", nil, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// ProductsByCategory fetches the whole category; filtering happens client-side.
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	var products []models.Product
	if err := c.get(ctx, "/products/category/"+url.PathEscape(category), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ProductsBySubCategory lets the server filter by price range and order by
// sortBy (rating_desc, price_asc, price_desc, newest). An empty sub selects
// the whole category.
func (c *Client) ProductsBySubCategory(ctx context.Context, category, sub string, r models.PriceRange) ([]models.Product, error) {
	path := "/products/category/" + url.PathEscape(category)
	if sub != "" {
		path += "/" + url.PathEscape(sub)
	}

	query := url.Values{}
	if r.MinPrice != nil {
		query.Set("minPrice", r.MinPrice.String())
	}
	if r.MaxPrice != nil {
		query.Set("maxPrice", r.MaxPrice.String())
	}
	if r.SortBy != "" {
		query.Set("sortBy", r.SortBy)
	}

	var products []models.Product
	if err := c.get(ctx, path, query, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) SearchProducts(ctx context.Context, q string) ([]models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}

	var products []models.Product
	if err := c.get(ctx, "/products/search", url.Values{"q": {q}}, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) RelatedProducts(ctx context.Context, category string, productID int64) ([]models.Product, error) {
	var products []models.Product
	path := "/products/related/" + url.PathEscape(category) + "/" + pathID(productID)
	if err := c.get(ctx, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) ProductRatings(ctx context.Context, productID int64) ([]models.ProductRating, error) {
	var ratings []models.ProductRating
	if err := c.get(ctx, "/products/"+pathID(productID)+"/ratings", nil, &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (c *Client) RateProduct(ctx context.Context, productID int64, req models.RatingRequest) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	if err := c.authed(ctx, http.MethodPost, "/products/"+pathID(productID)+"/rate", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
