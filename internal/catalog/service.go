package catalog

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront-service/internal/domain"
	"storefront-service/internal/upstream"
)

// Source is the upstream data the catalog is built from.
type Source interface {
	FetchProducts(ctx context.Context, params upstream.ListParams) ([]domain.Product, error)
	FetchProduct(ctx context.Context, id int64) (*domain.Product, error)
	FetchCategories(ctx context.Context) ([]string, error)
}

// PageView is everything the product list screen needs.
type PageView struct {
	Products   []domain.Product
	Total      int
	Categories []string
}

// Service runs the fetch-all then query pipeline. The upstream API cannot filter by
// price or title, so the whole catalog is fetched and queried in memory.
type Service struct {
	source Source
	ttl    time.Duration
	logger *log.Logger
	now    func() time.Time

	seq Sequencer

	mu        sync.RWMutex
	cached    []domain.Product
	fetchedAt time.Time
	hasCache  bool
}

// NewService creates a Service. A ttl of zero disables caching of the full catalog.
func NewService(source Source, ttl time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Page fetches the catalog and the category list concurrently and queries the catalog.
// Upstream failures surface as an empty catalog or an empty category list; only
// cancellation of ctx is returned as an error.
func (s *Service) Page(ctx context.Context, params domain.FilterParams) (PageView, error) {
	var (
		products   []domain.Product
		categories []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products = s.All(gctx)
		return gctx.Err()
	})
	g.Go(func() error {
		categories = s.Categories(gctx)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return PageView{}, err
	}

	res := Query(products, params)
	return PageView{
		Products:   res.Page,
		Total:      res.Total,
		Categories: categories,
	}, nil
}

// All returns the full, unfiltered catalog, from cache when it is fresh.
func (s *Service) All(ctx context.Context) []domain.Product {
	if products, ok := s.fresh(); ok {
		return products
	}

	ticket := s.seq.Next()
	products, err := s.source.FetchProducts(ctx, upstream.ListParams{Limit: domain.NoLimit})
	if err != nil {
		s.logger.Printf("ERROR: fetching full catalog failed: %v", err)
		if stale, ok := s.stale(); ok {
			s.logger.Printf("WARN: serving stale catalog of %d products", len(stale))
			return stale
		}
		return []domain.Product{}
	}

	s.store(ticket, products)
	return products
}

// Product looks up a single product. The boolean is false when the product does not
// exist or the lookup failed.
func (s *Service) Product(ctx context.Context, id int64) (*domain.Product, bool) {
	product, err := s.source.FetchProduct(ctx, id)
	if err != nil {
		if !errors.Is(err, upstream.ErrNotFound) {
			s.logger.Printf("ERROR: product %d lookup failed: %v", id, err)
		}
		return nil, false
	}
	return product, true
}

// Categories returns the category names with the synthetic "all" first,
// or an empty list when the upstream is unavailable.
func (s *Service) Categories(ctx context.Context) []string {
	categories, err := s.source.FetchCategories(ctx)
	if err != nil {
		s.logger.Printf("ERROR: fetching categories failed: %v", err)
		return []string{}
	}
	return append([]string{domain.CategoryAll}, categories...)
}

func (s *Service) fresh() ([]domain.Product, bool) {
	if s.ttl <= 0 {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasCache || s.now().Sub(s.fetchedAt) >= s.ttl {
		return nil, false
	}
	return s.cached, true
}

func (s *Service) stale() ([]domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached, s.hasCache
}

// store keeps a fetch result only when no newer fetch was issued in the meantime.
func (s *Service) store(ticket uint64, products []domain.Product) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.IsLatest(ticket) {
		s.logger.Printf("INFO: discarding catalog fetch #%d, a newer fetch is in flight", ticket)
		return
	}
	s.cached = products
	s.fetchedAt = s.now()
	s.hasCache = true
}
