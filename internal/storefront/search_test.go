package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	block   map[string]chan struct{}
	started chan string
}

func (f *fakeSearcher) SearchProducts(ctx context.Context, q string) ([]models.Product, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.block[q]
	f.mu.Unlock()

	if f.started != nil {
		f.started <- q
	}
	if gate != nil {
		<-gate
	}
	if q == "fail" {
		return nil, errors.New("search unavailable")
	}
	return []models.Product{{Name: q}}, nil
}

func (f *fakeSearcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func TestSuggestions_BurstCollapsesToOneRequest(t *testing.T) {
	searcher := &fakeSearcher{}
	s := NewSuggestions(searcher, 30*time.Millisecond, nil)
	defer s.Close()

	for _, q := range []string{"p", "ph", "pho", "phon", "phone"} {
		s.Type(q)
	}
	s.Wait()

	assert.Equal(t, []string{"phone"}, searcher.calls())
	assert.Equal(t, "phone", s.Latest().Products[0].Name)
	assert.Equal(t, "phone", s.Query())
}

func TestSuggestions_StaleResponseIsDropped(t *testing.T) {
	release := make(chan struct{})
	searcher := &fakeSearcher{
		block:   map[string]chan struct{}{"lap": release},
		started: make(chan string, 2),
	}
	s := NewSuggestions(searcher, time.Millisecond, nil)
	defer s.Close()

	var mu sync.Mutex
	var got []string
	s.OnResult(func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range r.Products {
			got = append(got, p.Name)
		}
	})

	s.Type("lap")
	require.Equal(t, "lap", <-searcher.started)

	s.Type("laptop")
	require.Equal(t, "laptop", <-searcher.started)
	require.Eventually(t, func() bool {
		return len(s.Latest().Products) == 1
	}, time.Second, 5*time.Millisecond)

	close(release)
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"laptop"}, got)
	assert.Equal(t, "laptop", s.Latest().Products[0].Name)
}

func TestSuggestions_EmptyQueryClearsWithoutRequest(t *testing.T) {
	searcher := &fakeSearcher{}
	s := NewSuggestions(searcher, time.Millisecond, nil)
	defer s.Close()

	s.Type("tv")
	s.Wait()
	require.Len(t, s.Latest().Products, 1)

	s.Type("   ")
	assert.Empty(t, s.Latest().Products)
	assert.NoError(t, s.Latest().Err)
	assert.Equal(t, []string{"tv"}, searcher.calls())
}

func TestSuggestions_ErrorIsPublished(t *testing.T) {
	s := NewSuggestions(&fakeSearcher{}, time.Millisecond, nil)
	defer s.Close()

	s.Type("fail")
	s.Wait()

	assert.EqualError(t, s.Latest().Err, "search unavailable")
	assert.Empty(t, s.Latest().Products)
}

type listingCall struct {
	category string
	sub      string
	rng      models.PriceRange
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls []listingCall
}

func (f *fakeFetcher) ProductsBySubCategory(ctx context.Context, category, sub string, r models.PriceRange) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, listingCall{category, sub, r})
	return []models.Product{{Category: category, SubCategory: sub}}, nil
}

func (f *fakeFetcher) snapshot() []listingCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]listingCall(nil), f.calls...)
}

func TestListing_PriceChangesAreDebounced(t *testing.T) {
	fetcher := &fakeFetcher{}
	l := NewListing(fetcher, 30*time.Millisecond, nil)
	defer l.Close()

	l.Open("laptops", "gaming")
	l.Wait()

	for _, max := range []int64{900, 1200, 1500} {
		hi := decimal.NewFromInt(max)
		l.SetPriceRange(nil, &hi)
	}
	l.Wait()

	calls := fetcher.snapshot()
	require.Len(t, calls, 2)
	assert.Nil(t, calls[0].rng.MaxPrice)
	require.NotNil(t, calls[1].rng.MaxPrice)
	assert.True(t, calls[1].rng.MaxPrice.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "gaming", l.Latest().Products[0].SubCategory)
}

func TestListing_SortSupersedesPendingPriceFetch(t *testing.T) {
	fetcher := &fakeFetcher{}
	l := NewListing(fetcher, 50*time.Millisecond, nil)
	defer l.Close()

	var tags []uint64
	var mu sync.Mutex
	l.OnResult(func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		tags = append(tags, r.Tag)
	})

	lo := decimal.NewFromInt(100)
	l.SetPriceRange(&lo, nil)
	l.SetSort("price_desc")
	l.Wait()

	calls := fetcher.snapshot()
	require.NotEmpty(t, calls)
	first := calls[0]
	assert.Equal(t, "price_desc", first.rng.SortBy)
	require.NotNil(t, first.rng.MinPrice, "sort fetch carries the current price bounds")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{2}, tags)
}

func TestListing_OpenResetsBounds(t *testing.T) {
	fetcher := &fakeFetcher{}
	l := NewListing(fetcher, time.Millisecond, nil)
	defer l.Close()

	l.Open("phones", "")
	hi := decimal.NewFromInt(500)
	l.SetPriceRange(nil, &hi)
	l.Wait()
	l.SetSort("newest")
	l.Wait()

	l.Open("tvs", "oled")
	l.Wait()

	calls := fetcher.snapshot()
	last := calls[len(calls)-1]
	assert.Equal(t, "tvs", last.category)
	assert.Equal(t, models.PriceRange{}, last.rng)
}
