package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ketracker/backend/internal/domain"
)

// SearchPageSize is the number of cards requested per search page
const SearchPageSize = 100

const defaultExtraSearchPages = 3

// SearchPager fetches one page of full-text search results
type SearchPager interface {
	FetchSearchPage(ctx context.Context, query string, offset, limit int) (*domain.SearchPage, error)
}

// CatalogScanner paginates a search query to completion
type CatalogScanner struct {
	pager      SearchPager
	extraPages int
	logger     *slog.Logger
}

// NewCatalogScanner creates a scanner that requests at most extraPages pages beyond
// those needed to cover the declared total. A negative extraPages selects the default.
func NewCatalogScanner(pager SearchPager, extraPages int, logger *slog.Logger) *CatalogScanner {
	if extraPages < 0 {
		extraPages = defaultExtraSearchPages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogScanner{pager: pager, extraPages: extraPages, logger: logger}
}

// pageLimit is the number of pages a scan of total cards may request
func (s *CatalogScanner) pageLimit(total int) int {
	pages := total / SearchPageSize
	if total%SearchPageSize != 0 {
		pages++
	}
	return max(pages, 1) + s.extraPages
}

// Scan returns every card for query in page order with 1-based ranks, and the total
// declared by the first page.
//
// The total is frozen from the first page. A card id seen on an earlier page is skipped
// and takes no rank. An empty later page ends the scan early, since the catalog shrank.
func (s *CatalogScanner) Scan(ctx context.Context, query string) ([]domain.CatalogEntry, int, error) {
	first, err := s.pager.FetchSearchPage(ctx, query, 0, SearchPageSize)
	if err != nil {
		return nil, 0, err
	}
	if len(first.Cards) == 0 {
		return nil, 0, fmt.Errorf("%w: %q", domain.ErrNoSearchResults, query)
	}

	total := max(first.Total, 0)
	limit := s.pageLimit(total)
	// sized by what arrived, never by the declared total
	entries := make([]domain.CatalogEntry, 0, len(first.Cards))
	seen := make(map[int64]struct{}, len(first.Cards))

	appendPage := func(cards []domain.CatalogCard) {
		for _, card := range cards {
			if _, dup := seen[card.ID]; dup {
				continue
			}
			seen[card.ID] = struct{}{}
			entries = append(entries, domain.CatalogEntry{
				CatalogCard: card,
				Rank:        len(entries) + 1,
				Total:       total,
			})
		}
	}
	appendPage(first.Cards)

	pages := 1
	for offset := SearchPageSize; len(entries) < total; offset += SearchPageSize {
		if pages >= limit {
			return nil, 0, fmt.Errorf("%w: %q has %d of %d cards after %d pages",
				domain.ErrScanDidNotConverge, query, len(entries), total, pages)
		}

		page, err := s.pager.FetchSearchPage(ctx, query, offset, SearchPageSize)
		if err != nil {
			return nil, 0, err
		}
		pages++

		if len(page.Cards) == 0 {
			s.logger.Warn("catalog shrank during scan",
				"query", query, "declared_total", total, "scanned", len(entries))
			break
		}
		if page.Total != total {
			s.logger.Debug("declared total drifted during scan",
				"query", query, "first_total", total, "page_total", page.Total)
		}
		appendPage(page.Cards)
	}

	return entries, total, nil
}
