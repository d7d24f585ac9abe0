package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ketracker/backend/internal/domain"
)

const defaultWebBaseURL = "https://kazanexpress.ru"

// RatingService builds per-variant rating tables for a product
type RatingService struct {
	client     domain.MarketplaceClient
	scanner    *CatalogScanner
	webBaseURL string
	logger     *slog.Logger
}

// NewRatingService creates a rating service. Links in results point at webBaseURL.
func NewRatingService(client domain.MarketplaceClient, scanner *CatalogScanner, webBaseURL string, logger *slog.Logger) *RatingService {
	if webBaseURL == "" {
		webBaseURL = defaultWebBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RatingService{
		client:     client,
		scanner:    scanner,
		webBaseURL: strings.TrimRight(webBaseURL, "/"),
		logger:     logger,
	}
}

// SkuRatings returns the rating of every variant of the product behind link, one item
// per (variant, search card) pair. The product's cards are found by searching its title.
func (s *RatingService) SkuRatings(ctx context.Context, link string) (*domain.SkuRatings, error) {
	productID, err := ParseProductID(link)
	if err != nil {
		return nil, &domain.ResolveError{Stage: "link", Link: link, Err: err}
	}

	detail, err := s.client.FetchProductDetail(ctx, productID)
	if err != nil {
		return nil, &domain.ResolveError{Stage: "detail", Link: link, Err: err}
	}

	entries, _, err := s.scanner.Scan(ctx, detail.Title)
	if err != nil && !errors.Is(err, domain.ErrNoSearchResults) {
		return nil, &domain.ResolveError{Stage: "search", Link: link, Err: err}
	}
	cards := make([]domain.CatalogEntry, 0, 8)
	for _, e := range entries {
		if e.ProductID == productID {
			cards = append(cards, e)
		}
	}

	reviews, err := s.client.FetchReviews(ctx, productID)
	if err != nil {
		return nil, &domain.ResolveError{Stage: "reviews", Link: link, Err: err}
	}

	result := &domain.SkuRatings{
		ProductID: productID,
		Title:     detail.Title,
		Link:      fmt.Sprintf("%s/product/%d", s.webBaseURL, productID),
		Rating:    detail.Rating,
		Shop:      detail.Seller.Title,
		ShopLink:  fmt.Sprintf("%s/%s", s.webBaseURL, detail.Seller.Link),
		Items:     []domain.SkuRatingsItem{},
	}

	for _, sku := range detail.SkuList {
		key, err := BuildVariantKey(detail, sku)
		if err != nil {
			return nil, &domain.ResolveError{Stage: "variant", Link: link, Err: err}
		}
		rating, count, err := variantRating(key, reviews)
		if err != nil {
			return nil, &domain.ResolveError{Stage: "reviews", Link: link, Err: err}
		}

		for _, card := range cards {
			ok, err := MatchVariant(key, card.Characteristics)
			if err != nil {
				return nil, &domain.ResolveError{Stage: "search", Link: link, Err: err}
			}
			if !ok {
				continue
			}
			result.Items = append(result.Items, domain.SkuRatingsItem{
				Characteristic: strings.Join(card.ValueTitles, " "),
				Rating:         rating,
				VariantID:      sku.ID,
				Orders:         card.OrdersQuantity,
				Reviews:        count,
			})
		}
	}

	s.logger.Debug("sku ratings built", "product_id", productID, "cards", len(cards), "items", len(result.Items))
	return result, nil
}
