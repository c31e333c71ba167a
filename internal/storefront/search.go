package storefront

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/safar/neokart/internal/inflight"
	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductSearcher interface {
	SearchProducts(ctx context.Context, q string) ([]models.Product, error)
}

type SubCategoryFetcher interface {
	ProductsBySubCategory(ctx context.Context, category, sub string, r models.PriceRange) ([]models.Product, error)
}

// Result is what a debounced fetcher publishes. Tag identifies the request
// that produced it.
type Result struct {
	Tag      uint64
	Products []models.Product
	Err      error
}

// Suggestions fetches search suggestions as the user types. Keystrokes within
// the debounce window collapse into one request, and a response that arrives
// after a newer request was issued is discarded.
type Suggestions struct {
	searcher ProductSearcher
	logger   *zap.Logger
	debounce *inflight.Debouncer
	seq      inflight.Sequencer

	mu       sync.RWMutex
	query    string
	latest   Result
	onResult func(Result)
}

func NewSuggestions(searcher ProductSearcher, delay time.Duration, logger *zap.Logger) *Suggestions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suggestions{
		searcher: searcher,
		logger:   logger,
		debounce: inflight.NewDebouncer(delay),
	}
}

// OnResult registers fn to receive every accepted result.
func (s *Suggestions) OnResult(fn func(Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResult = fn
}

func (s *Suggestions) Type(query string) {
	query = strings.TrimSpace(query)
	tag := s.seq.Next()

	s.mu.Lock()
	s.query = query
	s.mu.Unlock()

	if query == "" {
		s.publish(Result{Tag: tag})
		return
	}

	s.debounce.Trigger(func(ctx context.Context) {
		products, err := s.searcher.SearchProducts(ctx, query)
		if !s.seq.IsLatest(tag) {
			s.logger.Debug("drop stale suggestions", zap.String("query", query), zap.Uint64("tag", tag))
			return
		}
		s.publish(Result{Tag: tag, Products: products, Err: err})
	})
}

func (s *Suggestions) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

func (s *Suggestions) Latest() Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Wait blocks until the pending request, if any, has finished.
func (s *Suggestions) Wait() { s.debounce.Flush() }

func (s *Suggestions) Close() { s.debounce.Stop() }

func (s *Suggestions) publish(r Result) {
	s.mu.Lock()
	if r.Tag < s.latest.Tag {
		s.mu.Unlock()
		return
	}
	s.latest = r
	fn := s.onResult
	s.mu.Unlock()

	if fn != nil {
		fn(r)
	}
}

// Listing is the server-filtered sub-category page: price bounds are
// debounced, category and sort changes are fetched at once. Like
// Suggestions, only the newest response is kept.
type Listing struct {
	fetcher SubCategoryFetcher
	logger  *zap.Logger
	price   *inflight.Debouncer
	now     *inflight.Debouncer
	seq     inflight.Sequencer

	mu       sync.RWMutex
	category string
	sub      string
	rng      models.PriceRange
	latest   Result
	onResult func(Result)
}

func NewListing(fetcher SubCategoryFetcher, priceDelay time.Duration, logger *zap.Logger) *Listing {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listing{
		fetcher: fetcher,
		logger:  logger,
		price:   inflight.NewDebouncer(priceDelay),
		now:     inflight.NewDebouncer(0),
	}
}

func (l *Listing) OnResult(fn func(Result)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onResult = fn
}

// Open switches to a category and sub-category, clearing price bounds and
// sort.
func (l *Listing) Open(category, sub string) {
	l.mu.Lock()
	l.category, l.sub = category, sub
	l.rng = models.PriceRange{}
	l.mu.Unlock()

	l.fetch(l.now)
}

func (l *Listing) SetSort(sortBy string) {
	l.mu.Lock()
	l.rng.SortBy = sortBy
	l.mu.Unlock()

	l.fetch(l.now)
}

// SetPriceRange updates either bound; nil leaves that side open.
func (l *Listing) SetPriceRange(minPrice, maxPrice *decimal.Decimal) {
	l.mu.Lock()
	l.rng.MinPrice, l.rng.MaxPrice = minPrice, maxPrice
	l.mu.Unlock()

	l.fetch(l.price)
}

func (l *Listing) Latest() Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.latest
}

func (l *Listing) Wait() {
	l.price.Flush()
	l.now.Flush()
}

func (l *Listing) Close() {
	l.price.Stop()
	l.now.Stop()
}

func (l *Listing) fetch(d *inflight.Debouncer) {
	tag := l.seq.Next()

	l.mu.RLock()
	category, sub, rng := l.category, l.sub, l.rng
	l.mu.RUnlock()

	d.Trigger(func(ctx context.Context) {
		products, err := l.fetcher.ProductsBySubCategory(ctx, category, sub, rng)
		if !l.seq.IsLatest(tag) {
			l.logger.Debug("drop stale listing", zap.String("category", category), zap.Uint64("tag", tag))
			return
		}

		l.mu.Lock()
		if tag < l.latest.Tag {
			l.mu.Unlock()
			return
		}
		r := Result{Tag: tag, Products: products, Err: err}
		l.latest = r
		fn := l.onResult
		l.mu.Unlock()

		if fn != nil {
			fn(r)
		}
	})
}
