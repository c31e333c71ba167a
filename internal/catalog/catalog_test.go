package catalog

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rating(r float64) *float64 { return &r }

func product(id int64, price int64, r *float64) models.Product {
	return models.Product{
		ID:            id,
		Name:          "product",
		Price:         decimal.NewFromInt(price),
		AverageRating: r,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
	}
}

func ids(products []models.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func randomProducts(rng *rand.Rand, n int) []models.Product {
	products := make([]models.Product, n)
	for i := range products {
		var r *float64
		if rng.Intn(5) > 0 {
			r = rating(math.Round(rng.Float64()*50) / 10)
		}
		p := product(int64(i+1), int64(rng.Intn(500)), r)
		p.CreatedAt = time.Unix(int64(rng.Intn(1_000_000)), 0)
		products[i] = p
	}
	return products
}

func TestApply_emptyFilterKeepsFetchOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		products := randomProducts(rng, rng.Intn(40))
		got := Apply(products, DefaultFilter(), SortRelevance)
		if diff := cmp.Diff(ids(products), ids(got)); diff != "" {
			t.Fatalf("relevance reordered products (-want +got):\n%s", diff)
		}
	}
}

func TestApply_priceCeilingPartitions(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		products := randomProducts(rng, 30)
		ceiling := decimal.NewFromInt(int64(rng.Intn(500)))
		f := DefaultFilter()
		f.PriceCeiling = ceiling

		got := Apply(products, f, SortRelevance)
		kept := make(map[int64]bool)
		for _, p := range got {
			kept[p.ID] = true
			assert.True(t, p.Price.LessThanOrEqual(ceiling), "product %d above ceiling", p.ID)
		}
		for _, p := range products {
			if !kept[p.ID] {
				assert.True(t, p.Price.GreaterThan(ceiling), "product %d wrongly excluded", p.ID)
			}
		}
	}
}

func TestApply_ratingThresholdsAreOred(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		products := randomProducts(rng, 30)
		var thresholds []int
		for _, r := range RatingThresholds {
			if rng.Intn(2) == 0 {
				thresholds = append(thresholds, r)
			}
		}
		if len(thresholds) == 0 {
			thresholds = []int{4}
		}
		f := DefaultFilter()
		f.Ratings = thresholds

		got := Apply(products, f, SortRelevance)
		kept := make(map[int64]bool)
		for _, p := range got {
			kept[p.ID] = true
			stars := int(math.Floor(p.Rating()))
			matched := false
			for _, r := range thresholds {
				if stars >= r {
					matched = true
				}
			}
			assert.True(t, matched, "product %d (%d stars) matches no threshold in %v", p.ID, stars, thresholds)
		}
		for _, p := range products {
			if kept[p.ID] {
				continue
			}
			stars := int(math.Floor(p.Rating()))
			for _, r := range thresholds {
				assert.Less(t, stars, r, "product %d excluded but reaches threshold %d", p.ID, r)
			}
		}
	}
}

func TestApply_multipleThresholdsEqualTheLowest(t *testing.T) {
	products := randomProducts(rand.New(rand.NewSource(4)), 40)

	both := DefaultFilter()
	both.Ratings = []int{3, 4}
	lowest := DefaultFilter()
	lowest.Ratings = []int{3}

	assert.Equal(t, ids(Apply(products, lowest, SortRelevance)), ids(Apply(products, both, SortRelevance)))
}

func TestApply_priceSortsAreMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 20; i++ {
		products := randomProducts(rng, 25)

		asc := Apply(products, DefaultFilter(), SortLowToHigh)
		for j := 1; j < len(asc); j++ {
			require.True(t, asc[j-1].Price.LessThanOrEqual(asc[j].Price), "lowToHigh not ascending at %d", j)
		}

		desc := Apply(products, DefaultFilter(), SortHighToLow)
		for j := 1; j < len(desc); j++ {
			require.True(t, desc[j-1].Price.GreaterThanOrEqual(desc[j].Price), "highToLow not descending at %d", j)
		}
	}
}

func TestApply_newestFirst(t *testing.T) {
	products := randomProducts(rand.New(rand.NewSource(6)), 25)
	got := Apply(products, DefaultFilter(), SortNewest)
	for j := 1; j < len(got); j++ {
		require.False(t, got[j].CreatedAt.After(got[j-1].CreatedAt), "newest not descending at %d", j)
	}
}

func TestApply_byName(t *testing.T) {
	products := []models.Product{
		{ID: 1, Name: "banana"},
		{ID: 2, Name: "Apple"},
		{ID: 3, Name: "cherry"},
	}
	assert.Equal(t, []int64{2, 1, 3}, ids(Apply(products, DefaultFilter(), SortNameAZ)))
	assert.Equal(t, []int64{3, 1, 2}, ids(Apply(products, DefaultFilter(), SortNameZA)))
}

func TestApply_doesNotMutateInput(t *testing.T) {
	products := []models.Product{product(1, 30, nil), product(2, 10, nil), product(3, 20, nil)}
	_ = Apply(products, DefaultFilter(), SortLowToHigh)
	assert.Equal(t, []int64{1, 2, 3}, ids(products))
}

func TestApply_example(t *testing.T) {
	products := []models.Product{
		product(1, 100, rating(4.6)),
		product(2, 50, rating(3.1)),
		product(3, 200, rating(4.9)),
	}
	f := Filter{PriceCeiling: decimal.NewFromInt(150), Ratings: []int{4}}

	got := Apply(products, f, SortLowToHigh)

	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.True(t, got[0].Price.Equal(decimal.NewFromInt(100)))
}

func TestApply_subCategory(t *testing.T) {
	products := []models.Product{
		{ID: 1, SubCategory: "HP"},
		{ID: 2, SubCategory: "Dell"},
		{ID: 3},
		{ID: 4, SubCategory: "HP"},
	}
	f := DefaultFilter()
	f.SubCategory = "HP"
	assert.Equal(t, []int64{1, 4}, ids(Apply(products, f, SortRelevance)))

	f.SubCategory = AllSubCategories
	assert.Len(t, Apply(products, f, SortRelevance), 4)

	assert.Equal(t, []string{"HP", "Dell"}, SubCategories(products))
}

func TestApply_emptyInput(t *testing.T) {
	assert.Empty(t, Apply(nil, DefaultFilter(), SortNewest))
	assert.Equal(t, 0, PageCount(0, PageSize))
}

func TestPaginate_concatenationReproducesResults(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 30; i++ {
		products := randomProducts(rng, rng.Intn(60))
		f := DefaultFilter()
		f.PriceCeiling = decimal.NewFromInt(int64(rng.Intn(500)))
		results := Apply(products, f, SortHighToLow)

		pages := PageCount(len(results), PageSize)
		want := (len(results) + PageSize - 1) / PageSize
		require.Equal(t, want, pages)

		var joined []models.Product
		for page := 1; page <= pages; page++ {
			chunk := Paginate(results, page, PageSize)
			require.NotEmpty(t, chunk, "page %d of %d is empty", page, pages)
			require.LessOrEqual(t, len(chunk), PageSize)
			joined = append(joined, chunk...)
		}
		if diff := cmp.Diff(ids(results), ids(joined)); diff != "" {
			t.Fatalf("pages do not reproduce results (-want +got):\n%s", diff)
		}
	}
}

func TestPaginate_outOfRange(t *testing.T) {
	products := randomProducts(rand.New(rand.NewSource(8)), 5)
	assert.Empty(t, Paginate(products, 0, PageSize))
	assert.Empty(t, Paginate(products, 2, PageSize))
	assert.Empty(t, Paginate(products, -3, PageSize))
	assert.Empty(t, Paginate(products, 1, 0))
	assert.Empty(t, Paginate(products, math.MaxInt, PageSize))
	assert.Empty(t, Paginate(products, math.MaxInt/PageSize+2, PageSize))
	assert.Empty(t, Paginate(nil, 1, PageSize))
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		page, count, want int
	}{
		{page: 1, count: 0, want: 1},
		{page: 0, count: 3, want: 1},
		{page: 2, count: 3, want: 2},
		{page: 9, count: 3, want: 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampPage(tt.page, tt.count), "ClampPage(%d, %d)", tt.page, tt.count)
	}
}

func TestParseSortKey(t *testing.T) {
	for in, want := range map[string]SortKey{
		"":            SortRelevance,
		"lowToHigh":   SortLowToHigh,
		"high-to-low": SortHighToLow,
		"newest":      SortNewest,
		"name-za":     SortNameZA,
	} {
		got, err := ParseSortKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSortKey("cheapest")
	assert.Error(t, err)
}
