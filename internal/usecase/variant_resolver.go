package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/ketracker/backend/internal/domain"
)

// Package-level compiled regex patterns for link parsing
var (
	productIDRegex = regexp.MustCompile(`(\d{5,})(?:\?|$)`)
	variantIDRegex = regexp.MustCompile(`sku[Ii]d=(\d+)`)
)

// ParseProductID extracts the product id from a product link.
func ParseProductID(link string) (int64, error) {
	m := productIDRegex.FindStringSubmatch(link)
	if m == nil {
		return 0, domain.ErrMalformedLink
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMalformedLink, err)
	}
	return id, nil
}

// ParseVariantID extracts the optional skuId query parameter from a product link.
func ParseVariantID(link string) (int64, bool) {
	m := variantIDRegex.FindStringSubmatch(link)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// variantLookup is the product detail narrowed down to one SKU
type variantLookup struct {
	productID int64
	detail    *domain.ProductDetail
	sku       domain.Sku
	key       domain.VariantKey
}

// VariantResolver locates a tracked variant and gathers its search rank and rating
type VariantResolver struct {
	client  domain.MarketplaceClient
	scanner *CatalogScanner
	logger  *slog.Logger
	now     func() time.Time
}

// NewVariantResolver creates a resolver over the marketplace client and catalog scanner.
func NewVariantResolver(client domain.MarketplaceClient, scanner *CatalogScanner, logger *slog.Logger) *VariantResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &VariantResolver{
		client:  client,
		scanner: scanner,
		logger:  logger,
		now:     time.Now,
	}
}

// lookup runs the link, detail and variant steps.
func (r *VariantResolver) lookup(ctx context.Context, link string) (*variantLookup, error) {
	productID, err := ParseProductID(link)
	if err != nil {
		return nil, &domain.ResolveError{Stage: "link", Link: link, Err: err}
	}
	variantID, hasVariant := ParseVariantID(link)

	detail, err := r.client.FetchProductDetail(ctx, productID)
	if err != nil {
		return nil, &domain.ResolveError{Stage: "detail", Link: link, Err: err}
	}

	sku, ok := selectSku(detail.SkuList, variantID, hasVariant)
	if !ok {
		return nil, &domain.ResolveError{
			Stage: "variant",
			Link:  link,
			Err:   fmt.Errorf("%w: sku %d of product %d", domain.ErrVariantNotFound, variantID, productID),
		}
	}

	key, err := BuildVariantKey(detail, sku)
	if err != nil {
		return nil, &domain.ResolveError{Stage: "variant", Link: link, Err: err}
	}

	return &variantLookup{productID: productID, detail: detail, sku: sku, key: key}, nil
}

// selectSku picks the SKU with id, or the first one when no id was given.
func selectSku(skus []domain.Sku, id int64, hasID bool) (domain.Sku, bool) {
	for _, sku := range skus {
		if !hasID || sku.ID == id {
			return sku, true
		}
	}
	return domain.Sku{}, false
}

// Inspect resolves only the product detail and variant of link: stock and price are
// filled, search position and rating are left empty.
func (r *VariantResolver) Inspect(ctx context.Context, link string) (*domain.ResolvedVariant, error) {
	l, err := r.lookup(ctx, link)
	if err != nil {
		return nil, err
	}
	return r.baseVariant(l), nil
}

// Resolve runs every resolution step for target. Any failure returns a
// *domain.ResolveError and no partial data.
func (r *VariantResolver) Resolve(ctx context.Context, target domain.TrackedTarget) (*domain.ResolvedVariant, error) {
	l, err := r.lookup(ctx, target.Link)
	if err != nil {
		return nil, err
	}
	result := r.baseVariant(l)

	entries, total, err := r.scanner.Scan(ctx, target.Query)
	if err != nil {
		return nil, &domain.ResolveError{Stage: "search", Link: target.Link, Err: err}
	}
	result.TotalCount = total
	for _, entry := range entries {
		if entry.ProductID != result.ProductID {
			continue
		}
		ok, err := MatchVariant(l.key, entry.Characteristics)
		if err != nil {
			return nil, &domain.ResolveError{Stage: "search", Link: target.Link, Err: err}
		}
		if ok {
			result.SearchPosition = entry.Rank
			result.Orders = entry.OrdersQuantity
			break
		}
	}

	reviews, err := r.client.FetchReviews(ctx, result.ProductID)
	if err != nil {
		return nil, &domain.ResolveError{Stage: "reviews", Link: target.Link, Err: err}
	}
	result.Rating, result.ReviewCount, err = variantRating(l.key, reviews)
	if err != nil {
		return nil, &domain.ResolveError{Stage: "reviews", Link: target.Link, Err: err}
	}

	weekOrders, err := r.client.FetchWeekOrders(ctx, result.ProductID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &domain.ResolveError{Stage: "orders", Link: target.Link, Err: fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, ctxErr)}
		}
		r.logger.Debug("week orders unavailable", "product_id", result.ProductID, "error", err)
	} else {
		result.WeekOrders = weekOrders
	}

	return result, nil
}

func (r *VariantResolver) baseVariant(l *variantLookup) *domain.ResolvedVariant {
	return &domain.ResolvedVariant{
		ProductID:      l.productID,
		VariantID:      l.sku.ID,
		Title:          l.detail.Title,
		Shop:           l.detail.Seller.Title,
		Characteristic: l.key.Description(),
		Stock:          l.sku.AvailableAmount,
		Price:          l.sku.PurchasePrice,
		Orders:         l.detail.OrdersAmount,
		SearchPosition: domain.NotRanked,
		ResolvedAt:     r.now(),
	}
}

// asTimeout converts a context deadline into ErrUpstreamTimeout.
func asTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrUpstreamTimeout) {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	return err
}
