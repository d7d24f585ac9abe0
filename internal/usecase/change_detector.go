package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ketracker/backend/internal/domain"
)

// JournalTimeLayout is the timestamp format of the first field of every journal row
const JournalTimeLayout = "02.01.2006 15:04"

// CheckKind names the check a resolution failure happened in
type CheckKind string

const (
	CheckStock CheckKind = "stock"
	CheckPrice CheckKind = "price"
)

// ChangeDetector turns successive observations of a variant into de-duplicated alerts
type ChangeDetector struct {
	store    domain.ObservationStore
	notifier domain.Notifier
	journal  domain.Journal
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewChangeDetector creates a detector. Row timestamps are rendered in loc (UTC when nil).
func NewChangeDetector(
	store domain.ObservationStore,
	notifier domain.Notifier,
	journal domain.Journal,
	loc *time.Location,
	logger *slog.Logger,
) *ChangeDetector {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeDetector{
		store:    store,
		notifier: notifier,
		journal:  journal,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// CheckStock alerts when the variant's stock is at or below the target's minimum and
// differs from the level last alerted for it. It reports whether an alert was emitted.
// Stock rising above the minimum emits nothing.
func (d *ChangeDetector) CheckStock(ctx context.Context, target domain.TrackedTarget, v *domain.ResolvedVariant) bool {
	if v.Stock == domain.StockUnknown || v.Stock > target.MinStock {
		return false
	}

	prev, existed := d.store.RecordStock(ctx, v.Ref(), v.Stock)
	if existed && prev == v.Stock {
		return false
	}

	text := fmt.Sprintf("📉 Stock reached the minimum in shop %s%s\n%s %s\n%d <= %d pcs\n%s",
		v.Shop, groupSuffix(target.Group), v.Title, v.Characteristic, v.Stock, target.MinStock, target.Link)
	row := []string{
		d.timestamp(),
		target.Name,
		target.Query,
		target.Group,
		v.Shop,
		target.Link,
		strconv.FormatInt(v.VariantID, 10),
		strconv.Itoa(v.Stock),
		formatPrice(v.Price),
	}
	d.emit(ctx, domain.JournalStock, text, row)
	return true
}

// CheckPrice records the variant as the latest observation and alerts when its price
// differs from the previous one. The first sighting only sets a baseline.
func (d *ChangeDetector) CheckPrice(ctx context.Context, target domain.TrackedTarget, v *domain.ResolvedVariant) bool {
	prev, existed := d.store.RecordObservation(ctx, v.Observation())
	if !existed || prev.Price == v.Price {
		return false
	}

	text := fmt.Sprintf("💸 Price changed in shop %s%s\n%s %s\nRating: %.2f (%d reviews)\nOrders: %d\nStock: %d\nPrice: %s ₽ => %s ₽\n%s",
		v.Shop, groupSuffix(target.Group), v.Title, v.Characteristic, v.Rating, v.ReviewCount,
		v.Orders, v.Stock, formatPrice(prev.Price), formatPrice(v.Price), target.Link)
	row := []string{
		d.timestamp(),
		target.Name,
		target.Query,
		target.Group,
		v.Shop,
		target.Link,
		strconv.FormatInt(v.VariantID, 10),
		formatPrice(prev.Price),
		formatPrice(v.Price),
	}
	d.emit(ctx, domain.JournalPrice, text, row)
	return true
}

// ReportFailure tells operators a target could not be resolved. Not-found failures and
// contract violations get distinct messages; transient failures are only logged and
// picked up again by the next cycle. The observation store is never touched.
func (d *ChangeDetector) ReportFailure(ctx context.Context, check CheckKind, target domain.TrackedTarget, err error) bool {
	var text string
	switch {
	case domain.IsNotFound(err):
		if check == CheckStock {
			text = fmt.Sprintf("❌ Could not determine the stock of %s\nLink: %s", target.Name, target.Link)
		} else {
			text = fmt.Sprintf("❌ Could not find %s\nLink: %s", target.Name, target.Link)
		}
	case domain.IsContractViolation(err):
		text = fmt.Sprintf("⚠️ Marketplace data for %s could not be matched reliably: %v\nLink: %s",
			target.Name, err, target.Link)
	default:
		d.logger.Warn("resolution failed, retrying next cycle",
			"check", check, "target", target.Name, "link", target.Link, "error", err)
		return false
	}

	d.logger.Info("resolution failed", "check", check, "target", target.Name, "error", err)
	if nerr := d.notifier.Notify(ctx, text); nerr != nil {
		d.logger.Error("notify failed", "check", check, "error", nerr)
	}
	return true
}

func (d *ChangeDetector) emit(ctx context.Context, kind domain.JournalKind, text string, row []string) {
	d.logger.Info("change detected", "journal", kind, "fields", row)
	if err := d.notifier.Notify(ctx, text); err != nil {
		d.logger.Error("notify failed", "journal", kind, "error", err)
	}
	if err := d.journal.AppendRow(ctx, kind, row); err != nil {
		d.logger.Error("journal append failed", "journal", kind, "error", err)
	}
}

func (d *ChangeDetector) timestamp() string {
	return d.now().In(d.location).Format(JournalTimeLayout)
}

func groupSuffix(group string) string {
	if group == "" {
		return ""
	}
	return " [" + group + "]"
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
