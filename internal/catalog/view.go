package catalog

import (
	"slices"

	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
)

// View holds the state of one category page. Every change to products,
// filter, or sort recomputes the derived list and returns to page 1; SetPage
// only moves the window.
type View struct {
	products []models.Product
	filter   Filter
	sort     SortKey
	page     int
	pageSize int

	derived []models.Product
}

func NewView(pageSize int) *View {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	v := &View{
		filter:   DefaultFilter(),
		sort:     SortRelevance,
		page:     1,
		pageSize: pageSize,
	}
	v.recompute()
	return v
}

// Load replaces the products with a freshly fetched category and resets
// filter, sort, and page.
func (v *View) Load(products []models.Product) {
	v.products = slices.Clone(products)
	v.filter = DefaultFilter()
	v.sort = SortRelevance
	v.recompute()
}

// SetProducts swaps the source list but keeps the current filter and sort.
func (v *View) SetProducts(products []models.Product) {
	v.products = slices.Clone(products)
	v.recompute()
}

func (v *View) SetPriceCeiling(ceiling decimal.Decimal) {
	v.filter.PriceCeiling = ceiling
	v.recompute()
}

func (v *View) SetRatings(ratings []int) {
	v.filter.Ratings = slices.Clone(ratings)
	v.recompute()
}

// ToggleRating adds the threshold when absent and removes it when present.
func (v *View) ToggleRating(r int) {
	if i := slices.Index(v.filter.Ratings, r); i >= 0 {
		v.filter.Ratings = slices.Delete(slices.Clone(v.filter.Ratings), i, i+1)
	} else {
		v.filter.Ratings = append(slices.Clone(v.filter.Ratings), r)
	}
	v.recompute()
}

func (v *View) SetSubCategory(sub string) {
	if sub == "" {
		sub = AllSubCategories
	}
	v.filter.SubCategory = sub
	v.recompute()
}

func (v *View) SetSort(key SortKey) {
	v.sort = key
	v.recompute()
}

// SetPage moves to page, clamped into [1, PageCount].
func (v *View) SetPage(page int) {
	v.page = ClampPage(page, v.PageCount())
}

func (v *View) recompute() {
	v.derived = Apply(v.products, v.filter, v.sort)
	v.page = 1
}

func (v *View) Filter() Filter {
	f := v.filter
	f.Ratings = slices.Clone(f.Ratings)
	return f
}

func (v *View) Sort() SortKey { return v.sort }
func (v *View) Page() int     { return v.page }
func (v *View) PageSize() int { return v.pageSize }

// Results is the full filtered and sorted list before paging.
func (v *View) Results() []models.Product {
	return slices.Clone(v.derived)
}

func (v *View) ResultCount() int {
	return len(v.derived)
}

func (v *View) PageCount() int {
	return PageCount(len(v.derived), v.pageSize)
}

// Visible is the current page of results.
func (v *View) Visible() []models.Product {
	return slices.Clone(Paginate(v.derived, v.page, v.pageSize))
}

// Empty reports whether nothing matches, which renders as "no products match".
func (v *View) Empty() bool {
	return len(v.derived) == 0
}

// SubCategories lists the sub-categories present in the loaded products,
// regardless of the current filter.
func (v *View) SubCategories() []string {
	return SubCategories(v.products)
}
