package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/safar/neokart/internal/models"
)

func (c *Client) AdminProfile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.authed(ctx, http.MethodGet, "/admin", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateAdminProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	var user models.User
	if err := c.authed(ctx, http.MethodPut, "/admin", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ChangeAdminPassword(ctx context.Context, current, next string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	req := models.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	if err := c.authed(ctx, http.MethodPut, "/admin/change-password", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddProduct creates a product from form fields plus any number of images.
func (c *Client) AddProduct(ctx context.Context, in models.ProductInput, images []File) (*models.Product, error) {
	fields := map[string]string{
		"name":        in.Name,
		"description": in.Description,
		"price":       in.Price.String(),
		"stock":       itoa(in.Stock),
		"sku":         in.SKU,
		"category":    in.Category,
		"subCategory": in.SubCategory,
	}
	for i := range images {
		images[i].Field = "images"
	}

	var product models.Product
	if err := c.upload(ctx, http.MethodPost, "/products/add", fields, images, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	var product models.Product
	if err := c.authed(ctx, http.MethodPut, "/products/update/"+pathID(id), nil, in, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.authed(ctx, http.MethodDelete, "/products/delete/"+pathID(id), nil, nil, nil)
}

// BulkUpload sends a CSV of products (name,description,price,stock,sku,category,subCategory).
func (c *Client) BulkUpload(ctx context.Context, file File) (*models.BulkUploadResult, error) {
	file.Field = "file"
	var result models.BulkUploadResult
	if err := c.upload(ctx, http.MethodPost, "/products/bulk-upload", nil, []File{file}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Variants(ctx context.Context, productID int64) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	if err := c.authed(ctx, http.MethodGet, "/admin/variants/"+pathID(productID), nil, nil, &variants); err != nil {
		return nil, err
	}
	return variants, nil
}

func (c *Client) AddVariant(ctx context.Context, productID int64, v models.ProductVariant) (*models.ProductVariant, error) {
	var created models.ProductVariant
	if err := c.authed(ctx, http.MethodPost, "/admin/variants/"+pathID(productID), nil, v, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteVariant(ctx context.Context, variantID int64) error {
	return c.authed(ctx, http.MethodDelete, "/admin/variants/"+pathID(variantID), nil, nil, nil)
}

func (c *Client) Coupons(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := c.authed(ctx, http.MethodGet, "/admin/coupons", nil, nil, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

func (c *Client) CreateCoupon(ctx context.Context, coupon models.Coupon) (*models.Coupon, error) {
	var created models.Coupon
	if err := c.authed(ctx, http.MethodPost, "/admin/coupons", nil, coupon, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteCoupon(ctx context.Context, id int64) error {
	return c.authed(ctx, http.MethodDelete, "/admin/coupons/"+pathID(id), nil, nil, nil)
}

func (c *Client) FlashSales(ctx context.Context) ([]models.FlashSale, error) {
	var sales []models.FlashSale
	if err := c.authed(ctx, http.MethodGet, "/admin/flash-sales", nil, nil, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// ActiveFlashSales is public: the storefront shows running sales.
func (c *Client) ActiveFlashSales(ctx context.Context) ([]models.FlashSale, error) {
	var sales []models.FlashSale
	if err := c.get(ctx, "/admin/flash-sales/active", nil, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (c *Client) CreateFlashSale(ctx context.Context, sale models.FlashSale) (*models.FlashSale, error) {
	var created models.FlashSale
	if err := c.authed(ctx, http.MethodPost, "/admin/flash-sales", nil, sale, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteFlashSale(ctx context.Context, id int64) error {
	return c.authed(ctx, http.MethodDelete, "/admin/flash-sales/"+pathID(id), nil, nil, nil)
}

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.authed(ctx, http.MethodGet, "/admin/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) User(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := c.authed(ctx, http.MethodGet, "/admin/users/"+pathID(id), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) SearchUsers(ctx context.Context, email string) ([]models.User, error) {
	var users []models.User
	if err := c.authed(ctx, http.MethodGet, "/admin/users/search", url.Values{"email": {email}}, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) ToggleUserStatus(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := c.authed(ctx, http.MethodPut, "/admin/users/"+pathID(id)+"/toggle-status", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) AuditLogs(ctx context.Context) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := c.authed(ctx, http.MethodGet, "/admin/audit", nil, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
