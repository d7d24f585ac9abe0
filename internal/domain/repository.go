package domain

import "context"

// MarketplaceClient defines the interface for reading the marketplace API
type MarketplaceClient interface {
	FetchProductDetail(ctx context.Context, productID int64) (*ProductDetail, error)
	FetchSearchPage(ctx context.Context, query string, offset, limit int) (*SearchPage, error)
	FetchReviews(ctx context.Context, productID int64) ([]ReviewRecord, error)
	FetchWeekOrders(ctx context.Context, productID int64) (int, error)
}

// ObservationStore keeps the last seen state per variant for the process lifetime.
// Both record methods are atomic update-or-insert operations returning the prior value.
type ObservationStore interface {
	RecordStock(ctx context.Context, ref VariantRef, stock int) (prev int, existed bool)
	RecordObservation(ctx context.Context, obs Observation) (prev Observation, existed bool)
}

// Notifier delivers human-readable messages to operators
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Journal appends structured rows to a log sheet
type Journal interface {
	AppendRow(ctx context.Context, kind JournalKind, row []string) error
	Rows(ctx context.Context, kind JournalKind, limit int) ([]JournalRow, error)
}

// TargetSource lists the tracked targets
type TargetSource interface {
	Targets(ctx context.Context) ([]TrackedTarget, error)
}
