package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketracker/backend/internal/domain"
)

type trackerFixture struct {
	market   *mockMarketplace
	store    *mockStore
	notifier *recordingNotifier
	journal  *recordingJournal
	svc      *TrackerService
}

func newTrackerFixture(workers int) *trackerFixture {
	m, resolver := newResolverFixture()
	store := newMockStore()
	notifier := &recordingNotifier{}
	journal := newRecordingJournal()
	detector := NewChangeDetector(store, notifier, journal, time.UTC, nil)

	svc := NewTrackerService(resolver, detector, journal, TrackerServiceConfig{
		Workers:     workers,
		CallTimeout: time.Second,
	}, nil)
	return &trackerFixture{market: m, store: store, notifier: notifier, journal: journal, svc: svc}
}

func trackedTargets() []domain.TrackedTarget {
	return []domain.TrackedTarget{
		{Name: "red m", Query: "t-shirt", Link: fixtureLink(skuRedM), Group: "my", MinStock: 5},
		{Name: "ghost", Query: "t-shirt", Link: "https://kazanexpress.ru/product/ghost-777777", Group: "my", MinStock: 5},
		{Name: "red l", Query: "t-shirt", Link: fixtureLink(skuRedL), Group: "competitor", MinStock: 5},
		{Name: "blue m", Query: "t-shirt", Link: fixtureLink(skuBlueM), Group: "competitor", MinStock: 5},
	}
}

func TestNewTrackerService_Defaults(t *testing.T) {
	svc := NewTrackerService(nil, nil, nil, TrackerServiceConfig{}, nil)
	if svc.workers != 4 {
		t.Errorf("workers = %d, want 4", svc.workers)
	}
	if svc.callTimeout != 2*time.Minute {
		t.Errorf("callTimeout = %v, want 2m", svc.callTimeout)
	}
	if svc.location != time.UTC {
		t.Errorf("location = %v, want UTC", svc.location)
	}
}

func TestTrackerService_RunBatchRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("one result per target in order with failures isolated", func(t *testing.T) {
		f := newTrackerFixture(2)
		targets := trackedTargets()

		run := f.svc.RunBatchRefresh(ctx, targets)

		require.Len(t, run.Results, len(targets))
		assert.NotEmpty(t, run.RunID)
		for i, r := range run.Results {
			assert.Equal(t, targets[i].Name, r.Target.Name)
		}
		assert.NotNil(t, run.Results[0].Variant)
		assert.Nil(t, run.Results[1].Variant)
		assert.ErrorIs(t, run.Results[1].Err, domain.ErrProductNotFound)
		assert.NotEmpty(t, run.Results[1].Error)
		assert.Equal(t, int64(skuRedL), run.Results[2].Variant.VariantID)
		assert.Equal(t, int64(skuBlueM), run.Results[3].Variant.VariantID)
		assert.False(t, run.FinishedAt.Before(run.StartedAt))
	})

	t.Run("works with a single worker", func(t *testing.T) {
		f := newTrackerFixture(1)
		run := f.svc.RunBatchRefresh(ctx, trackedTargets())
		assert.Len(t, run.Results, 4)
	})

	t.Run("deadline becomes an upstream timeout", func(t *testing.T) {
		f := newTrackerFixture(2)
		expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()

		run := f.svc.RunBatchRefresh(expired, trackedTargets()[:1])
		require.Len(t, run.Results, 1)
		assert.ErrorIs(t, run.Results[0].Err, domain.ErrUpstreamTimeout)
	})

	t.Run("empty target list", func(t *testing.T) {
		f := newTrackerFixture(2)
		run := f.svc.RunBatchRefresh(ctx, nil)
		assert.Empty(t, run.Results)
	})
}

// gatedMarketplace records the peak number of concurrent detail fetches and
// panics on one product
type gatedMarketplace struct {
	*mockMarketplace
	inFlight  atomic.Int32
	peak      atomic.Int32
	panicOnID int64
}

func (g *gatedMarketplace) FetchProductDetail(ctx context.Context, productID int64) (*domain.ProductDetail, error) {
	if productID == g.panicOnID {
		panic("decoder exploded")
	}
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return g.mockMarketplace.FetchProductDetail(ctx, productID)
}

func newGatedTracker(workers int, panicOnID int64) (*gatedMarketplace, *TrackerService) {
	base, _ := newResolverFixture()
	g := &gatedMarketplace{mockMarketplace: base, panicOnID: panicOnID}
	resolver := NewVariantResolver(g, NewCatalogScanner(g, 5, nil), nil)
	detector := NewChangeDetector(newMockStore(), &recordingNotifier{}, newRecordingJournal(), time.UTC, nil)
	svc := NewTrackerService(resolver, detector, newRecordingJournal(), TrackerServiceConfig{
		Workers:     workers,
		CallTimeout: time.Second,
	}, nil)
	return g, svc
}

func manyTargets(n int) []domain.TrackedTarget {
	targets := make([]domain.TrackedTarget, 0, n)
	for i := 0; i < n; i++ {
		targets = append(targets, domain.TrackedTarget{
			Name: fmt.Sprintf("target %d", i), Query: "t-shirt", Link: fixtureLink(skuRedM), Group: "my",
		})
	}
	return targets
}

func TestTrackerService_WorkerPool(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent fetches never exceed the worker count", func(t *testing.T) {
		g, svc := newGatedTracker(3, 0)

		run := svc.RunBatchRefresh(ctx, manyTargets(10))

		require.Len(t, run.Results, 10)
		for _, r := range run.Results {
			require.NoError(t, r.Err, r.Target.Name)
		}
		assert.LessOrEqual(t, g.peak.Load(), int32(3))
		assert.Positive(t, g.peak.Load())
	})

	t.Run("a panicking target leaves the others intact", func(t *testing.T) {
		_, svc := newGatedTracker(2, 777777)
		targets := manyTargets(10)
		targets[4].Link = "https://kazanexpress.ru/product/ghost-777777"

		run := svc.RunBatchRefresh(ctx, targets)

		require.Len(t, run.Results, 10)
		for i, r := range run.Results {
			assert.Equal(t, targets[i].Name, r.Target.Name)
			if i == 4 {
				assert.ErrorIs(t, r.Err, errTaskPanicked)
				assert.Nil(t, r.Variant)
				continue
			}
			require.NoError(t, r.Err, r.Target.Name)
			assert.Equal(t, int64(skuRedM), r.Variant.VariantID)
		}
	})
}

func TestTrackerService_RefreshReport(t *testing.T) {
	f := newTrackerFixture(3)
	f.svc.RefreshReport(context.Background(), trackedTargets())

	rows := f.journal.get(domain.JournalReport)
	require.Len(t, rows, 4)

	redM := rows[0]
	assert.Equal(t, "red m", redM[1])
	assert.Equal(t, "Red M", redM[6])
	assert.Equal(t, "3", redM[15], "search position")
	assert.Equal(t, "4", redM[16], "declared total")

	ghost := rows[1]
	assert.Equal(t, "ghost", ghost[1])
	assert.Equal(t, notFoundMarker, ghost[len(ghost)-1])

	blueM := rows[3]
	assert.Equal(t, "2", blueM[15], "blue m matches the Color=Blue card")
}

func TestTrackerService_RunStockCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("alerts low stock and unresolved targets", func(t *testing.T) {
		f := newTrackerFixture(2)

		run := f.svc.RunStockCheck(ctx, trackedTargets())

		// red l (3) and blue m (0) are low; ghost is not found
		assert.Equal(t, 3, run.Notifications)
		assert.Equal(t, 4, run.Targets)
		assert.Equal(t, 3, f.notifier.count())
		assert.Len(t, f.journal.get(domain.JournalStock), 2)
		assert.Zero(t, f.market.searchCalls, "stock check needs no search")
	})

	t.Run("repeated check does not re-alert", func(t *testing.T) {
		f := newTrackerFixture(2)
		targets := trackedTargets()
		targets = append(targets[:1], targets[2:]...)

		f.svc.RunStockCheck(ctx, targets)
		run := f.svc.RunStockCheck(ctx, targets)
		assert.Zero(t, run.Notifications)
	})
}

func TestTrackerService_RunChangeCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("price change alerts on the second cycle", func(t *testing.T) {
		f := newTrackerFixture(2)
		targets := trackedTargets()[:1]

		first := f.svc.RunChangeCheck(ctx, targets)
		assert.Zero(t, first.Notifications)

		detail := fixtureDetail()
		detail.SkuList[0].PurchasePrice = 80
		f.market.details[fixtureProductID] = detail

		second := f.svc.RunChangeCheck(ctx, targets)
		assert.Equal(t, 1, second.Notifications)
		rows := f.journal.get(domain.JournalPrice)
		require.Len(t, rows, 1)
		assert.Equal(t, []string{"100", "80"}, rows[0][7:])
	})

	t.Run("not found leaves the stored observation untouched", func(t *testing.T) {
		f := newTrackerFixture(2)
		targets := trackedTargets()[:1]
		ref := domain.VariantRef{ProductID: fixtureProductID, VariantID: skuRedM}

		f.svc.RunChangeCheck(ctx, targets)
		before, ok := f.store.lastObservation(ctx, ref)
		require.True(t, ok)

		f.market.detailErr[fixtureProductID] = fmt.Errorf("%w: gone", domain.ErrProductNotFound)
		run := f.svc.RunChangeCheck(ctx, targets)

		assert.Equal(t, 1, run.Notifications)
		assert.Contains(t, f.notifier.messages[0], "Could not find red m")
		after, _ := f.store.lastObservation(ctx, ref)
		assert.Equal(t, before, after)
	})

	t.Run("transient failure sends nothing", func(t *testing.T) {
		f := newTrackerFixture(2)
		f.market.reviewsErr = domain.ErrUpstream

		run := f.svc.RunChangeCheck(ctx, trackedTargets()[:1])
		assert.Zero(t, run.Notifications)
		assert.Empty(t, f.store.observations)
	})
}

func TestReportRow_FailureMarker(t *testing.T) {
	target := domain.TrackedTarget{Name: "x", Link: "l"}

	notFound := reportRow("stamp", domain.BatchResult{Target: target, Err: domain.ErrVariantNotFound})
	assert.Equal(t, notFoundMarker, notFound[len(notFound)-1])

	transient := reportRow("stamp", domain.BatchResult{Target: target, Err: domain.ErrUpstream})
	assert.Equal(t, "error", transient[len(transient)-1])
}
