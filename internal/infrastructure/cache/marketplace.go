// Package cache keeps short-lived copies of marketplace responses.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ketracker/backend/internal/domain"
)

// defaultFetchTimeout bounds a shared upstream fetch once no caller's deadline applies
const defaultFetchTimeout = 2 * time.Minute

// CachedMarketplace wraps a MarketplaceClient, caching product details and
// reviews for ttl and collapsing concurrent fetches of the same product.
// Search pages and week orders always go upstream. Errors are never cached.
// Cached values are shared between callers and must not be modified.
type CachedMarketplace struct {
	next         domain.MarketplaceClient
	ttl          time.Duration
	fetchTimeout time.Duration
	details      *MemoryCache[*domain.ProductDetail]
	reviews      *MemoryCache[[]domain.ReviewRecord]
	group        singleflight.Group
}

// NewCachedMarketplace wraps next with a cache whose entries live for ttl.
func NewCachedMarketplace(next domain.MarketplaceClient, ttl time.Duration) *CachedMarketplace {
	return &CachedMarketplace{
		next:         next,
		ttl:          ttl,
		fetchTimeout: defaultFetchTimeout,
		details:      NewMemoryCache[*domain.ProductDetail](),
		reviews:      NewMemoryCache[[]domain.ReviewRecord](),
	}
}

// Run purges expired entries until ctx is cancelled.
func (m *CachedMarketplace) Run(ctx context.Context, interval time.Duration) {
	go m.details.Run(ctx, interval)
	m.reviews.Run(ctx, interval)
}

// shared runs fetch once per key for all concurrent callers. The fetch is detached
// from the first caller's cancellation; each caller stops waiting when its own ctx ends.
func (m *CachedMarketplace) shared(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error) {
	ch := m.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.fetchTimeout)
		defer cancel()
		return fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, ctx.Err())
	}
}

// FetchProductDetail returns the cached detail or fetches it once for all waiting callers.
func (m *CachedMarketplace) FetchProductDetail(ctx context.Context, productID int64) (*domain.ProductDetail, error) {
	key := strconv.FormatInt(productID, 10)
	if d, ok := m.details.Get(key); ok {
		return d, nil
	}

	v, err := m.shared(ctx, "detail:"+key, func(ctx context.Context) (any, error) {
		if d, ok := m.details.Get(key); ok {
			return d, nil
		}
		d, err := m.next.FetchProductDetail(ctx, productID)
		if err != nil {
			return nil, err
		}
		m.details.Set(key, d, m.ttl)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ProductDetail), nil
}

// FetchReviews returns the cached reviews or fetches them once for all waiting callers.
func (m *CachedMarketplace) FetchReviews(ctx context.Context, productID int64) ([]domain.ReviewRecord, error) {
	key := strconv.FormatInt(productID, 10)
	if r, ok := m.reviews.Get(key); ok {
		return r, nil
	}

	v, err := m.shared(ctx, "reviews:"+key, func(ctx context.Context) (any, error) {
		if r, ok := m.reviews.Get(key); ok {
			return r, nil
		}
		r, err := m.next.FetchReviews(ctx, productID)
		if err != nil {
			return nil, err
		}
		m.reviews.Set(key, r, m.ttl)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.ReviewRecord), nil
}

// FetchSearchPage always goes upstream.
func (m *CachedMarketplace) FetchSearchPage(ctx context.Context, query string, offset, limit int) (*domain.SearchPage, error) {
	return m.next.FetchSearchPage(ctx, query, offset, limit)
}

// FetchWeekOrders always goes upstream.
func (m *CachedMarketplace) FetchWeekOrders(ctx context.Context, productID int64) (int, error) {
	return m.next.FetchWeekOrders(ctx, productID)
}
