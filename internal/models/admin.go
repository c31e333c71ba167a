package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductVariant struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	VariantName string          `json:"variantName"`
	Color       string          `json:"color,omitempty"`
	Size        string          `json:"size,omitempty"`
	Storage     string          `json:"storage,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	SKU         string          `json:"sku"`
}

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type Coupon struct {
	ID                int64           `json:"id"`
	Code              string          `json:"code"`
	DiscountType      string          `json:"discountType"`
	DiscountValue     decimal.Decimal `json:"discountValue"`
	MinPurchaseAmount decimal.Decimal `json:"minPurchaseAmount"`
	StartDate         time.Time       `json:"startDate"`
	EndDate           time.Time       `json:"endDate"`
	UsageLimit        int             `json:"usageLimit"`
	TimesUsed         int             `json:"timesUsed"`
	Status            bool            `json:"status"`
}

type CouponQuote struct {
	OriginalAmount   decimal.Decimal `json:"originalAmount"`
	DiscountedAmount decimal.Decimal `json:"discountedAmount"`
}

type FlashSaleProduct struct {
	ID            int64           `json:"id,omitempty"`
	ProductID     int64           `json:"productId"`
	ProductName   string          `json:"productName,omitempty"`
	DiscountType  string          `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

type FlashSale struct {
	ID            int64              `json:"id"`
	Title         string             `json:"title"`
	StartDatetime time.Time          `json:"startDatetime"`
	EndDatetime   time.Time          `json:"endDatetime"`
	Status        bool               `json:"status"`
	Products      []FlashSaleProduct `json:"products"`
}

// ActiveAt reports whether the sale is enabled and t falls inside its window.
func (f FlashSale) ActiveAt(t time.Time) bool {
	return f.Status && !t.Before(f.StartDatetime) && !t.After(f.EndDatetime)
}

type AuditLog struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performedBy"`
	Timestamp   time.Time `json:"timestamp"`
}

type IncomePoint struct {
	Date  string          `json:"date"`
	Sales decimal.Decimal `json:"sales"`
}

type TopProduct struct {
	ProductName   string `json:"productName"`
	TotalQuantity int64  `json:"totalQuantity"`
}

// Dashboard bundles the admin dashboard aggregates.
type Dashboard struct {
	TotalProducts  int64                      `json:"totalProducts"`
	WeeklyIncome   []IncomePoint              `json:"weeklyIncome"`
	MonthlyIncome  map[string]decimal.Decimal `json:"monthlyIncome"`
	TopProducts    []TopProduct               `json:"topProducts"`
	OrdersByStatus map[string]int64           `json:"ordersByStatus"`
	LowStock       []Product                  `json:"lowStock"`
}
