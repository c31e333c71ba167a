package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Verified  bool      `json:"verified"`
	Enabled   bool      `json:"enabled"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type ProductImage struct {
	ID        int64  `json:"id,omitempty"`
	ImageURL  string `json:"imageUrl"`
	IsPrimary bool   `json:"isPrimary"`
}

type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	SKU           string          `json:"sku,omitempty"`
	Category      string          `json:"category"`
	SubCategory   string          `json:"subCategory,omitempty"`
	Images        []ProductImage  `json:"images,omitempty"`
	AverageRating *float64        `json:"averageRating,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Version       int             `json:"version,omitempty"`
}

// PrimaryImage returns the image flagged primary, falling back to the first one.
func (p Product) PrimaryImage() string {
	for _, img := range p.Images {
		if img.IsPrimary {
			return img.ImageURL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].ImageURL
	}
	return ""
}

// Rating is the average rating, with unrated products counting as zero.
func (p Product) Rating() float64 {
	if p.AverageRating == nil {
		return 0
	}
	return *p.AverageRating
}

type CategoryTree struct {
	Category      string   `json:"category"`
	SubCategories []string `json:"subCategories"`
}

type ProductRating struct {
	Username string `json:"username"`
	Stars    int    `json:"stars"`
	Comment  string `json:"comment,omitempty"`
}

type CartItem struct {
	ID       int64           `json:"id"`
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Cart struct {
	ID         int64           `json:"id,omitempty"`
	Items      []CartItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// ItemCount is the number of units across all lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

type ShippingAddress struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId,omitempty"`
	Status          string          `json:"status"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	OrderDate       time.Time       `json:"orderDate"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Version         int             `json:"version,omitempty"`
	Items           []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ID       int64           `json:"id"`
	OrderID  int64           `json:"orderId,omitempty"`
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

const (
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// ValidOrderStatus reports whether s is one of the known order states.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)
