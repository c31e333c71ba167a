// Package catalog derives the visible product list of a category page from
// the fetched products and the page's filter, sort, and paging state.
package catalog

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
)

const (
	PageSize = 12

	AllSubCategories = "All"
)

// DefaultPriceCeiling lets every realistic price through.
var DefaultPriceCeiling = decimal.NewFromInt(1000000)

// RatingThresholds are the selectable "N stars & above" options.
var RatingThresholds = []int{4, 3, 2, 1}

type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortLowToHigh SortKey = "lowToHigh"
	SortHighToLow SortKey = "highToLow"
	SortNewest    SortKey = "newest"
	SortNameAZ    SortKey = "nameAZ"
	SortNameZA    SortKey = "nameZA"
)

var sortKeys = []SortKey{SortRelevance, SortLowToHigh, SortHighToLow, SortNewest, SortNameAZ, SortNameZA}

func SortKeys() []SortKey {
	return slices.Clone(sortKeys)
}

// ParseSortKey accepts the canonical keys plus the dashed spellings used by
// older category pages ("low-to-high", "name-az", ...). Empty means relevance.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "relevance":
		return SortRelevance, nil
	case "lowtohigh", "low-to-high", "price_asc":
		return SortLowToHigh, nil
	case "hightolow", "high-to-low", "price_desc":
		return SortHighToLow, nil
	case "newest":
		return SortNewest, nil
	case "nameaz", "name-az":
		return SortNameAZ, nil
	case "nameza", "name-za":
		return SortNameZA, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

type Filter struct {
	PriceCeiling decimal.Decimal
	Ratings      []int
	SubCategory  string
}

func DefaultFilter() Filter {
	return Filter{
		PriceCeiling: DefaultPriceCeiling,
		SubCategory:  AllSubCategories,
	}
}

// Matches reports whether p passes every criterion of f. Rating thresholds
// are OR'ed: a product passes when its floored rating reaches any of them.
func (f Filter) Matches(p models.Product) bool {
	if len(f.Ratings) > 0 {
		stars := int(math.Floor(p.Rating()))
		ok := false
		for _, r := range f.Ratings {
			if stars >= r {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if f.SubCategory != "" && f.SubCategory != AllSubCategories && p.SubCategory != f.SubCategory {
		return false
	}

	return p.Price.LessThanOrEqual(f.PriceCeiling)
}

// Apply filters and sorts products into a new slice; the input is untouched.
func Apply(products []models.Product, f Filter, key SortKey) []models.Product {
	result := make([]models.Product, 0, len(products))
	for _, p := range products {
		if f.Matches(p) {
			result = append(result, p)
		}
	}

	switch key {
	case SortLowToHigh:
		slices.SortStableFunc(result, func(a, b models.Product) int {
			return a.Price.Cmp(b.Price)
		})
	case SortHighToLow:
		slices.SortStableFunc(result, func(a, b models.Product) int {
			return b.Price.Cmp(a.Price)
		})
	case SortNewest:
		slices.SortStableFunc(result, func(a, b models.Product) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case SortNameAZ:
		slices.SortStableFunc(result, func(a, b models.Product) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	case SortNameZA:
		slices.SortStableFunc(result, func(a, b models.Product) int {
			return strings.Compare(strings.ToLower(b.Name), strings.ToLower(a.Name))
		})
	}

	return result
}

func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	return pages
}

// Paginate returns the 1-based page of items. It does not clamp: pages
// outside [1, PageCount] come back empty.
func Paginate(items []models.Product, page, pageSize int) []models.Product {
	if page < 1 || page > PageCount(len(items), pageSize) {
		return nil
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}

// ClampPage pins page into [1, pageCount], or 1 when there are no pages.
func ClampPage(page, pageCount int) int {
	if pageCount < 1 || page < 1 {
		return 1
	}
	if page > pageCount {
		return pageCount
	}
	return page
}

// SubCategories lists the distinct non-empty sub-categories in fetch order.
func SubCategories(products []models.Product) []string {
	seen := make(map[string]bool)
	var subs []string
	for _, p := range products {
		if p.SubCategory == "" || seen[p.SubCategory] {
			continue
		}
		seen[p.SubCategory] = true
		subs = append(subs, p.SubCategory)
	}
	return subs
}
