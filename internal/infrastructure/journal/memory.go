// Package journal stores the rows appended to the stock, price and report log sheets.
package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ketracker/backend/internal/domain"
)

const defaultCapacity = 1000

// MemoryJournal keeps the newest rows of each kind in memory, oldest first
type MemoryJournal struct {
	mu       sync.RWMutex
	rows     map[domain.JournalKind][]domain.JournalRow
	capacity int
	now      func() time.Time
}

// NewMemoryJournal creates a journal holding up to capacity rows per kind.
func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryJournal{
		rows:     make(map[domain.JournalKind][]domain.JournalRow),
		capacity: capacity,
		now:      time.Now,
	}
}

// AppendRow appends row to the kind's sheet, dropping the oldest row when full.
func (j *MemoryJournal) AppendRow(ctx context.Context, kind domain.JournalKind, row []string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownJournal, kind)
	}
	fields := make([]string, len(row))
	copy(fields, row)

	j.mu.Lock()
	defer j.mu.Unlock()

	rows := append(j.rows[kind], domain.JournalRow{Kind: kind, Fields: fields, AppendedAt: j.now()})
	if len(rows) > j.capacity {
		rows = rows[len(rows)-j.capacity:]
	}
	j.rows[kind] = rows
	return nil
}

// Rows returns up to limit of the newest rows of kind, oldest first. limit <= 0 means all.
func (j *MemoryJournal) Rows(ctx context.Context, kind domain.JournalKind, limit int) ([]domain.JournalRow, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownJournal, kind)
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	rows := j.rows[kind]
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	out := make([]domain.JournalRow, len(rows))
	copy(out, rows)
	return out, nil
}
