package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/ketracker/backend/internal/domain"
)

// mockMarketplace is a hand-written domain.MarketplaceClient
type mockMarketplace struct {
	mu sync.Mutex

	details   map[int64]*domain.ProductDetail
	detailErr map[int64]error

	// pages[query] is served in order; page i answers offset i*SearchPageSize
	pages     map[string][]domain.SearchPage
	searchErr error

	reviews    map[int64][]domain.ReviewRecord
	reviewsErr error

	weekOrders    map[int64]int
	weekOrdersErr error

	detailCalls int
	searchCalls int
}

func newMockMarketplace() *mockMarketplace {
	return &mockMarketplace{
		details:    make(map[int64]*domain.ProductDetail),
		detailErr:  make(map[int64]error),
		pages:      make(map[string][]domain.SearchPage),
		reviews:    make(map[int64][]domain.ReviewRecord),
		weekOrders: make(map[int64]int),
	}
}

func (m *mockMarketplace) FetchProductDetail(ctx context.Context, productID int64) (*domain.ProductDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detailCalls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.detailErr[productID]; ok {
		return nil, err
	}
	d, ok := m.details[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %d", domain.ErrProductNotFound, productID)
	}
	cp := *d
	return &cp, nil
}

func (m *mockMarketplace) FetchSearchPage(ctx context.Context, query string, offset, limit int) (*domain.SearchPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++

	if m.searchErr != nil {
		return nil, m.searchErr
	}
	pages := m.pages[query]
	i := offset / SearchPageSize
	if i >= len(pages) {
		total := 0
		if len(pages) > 0 {
			total = pages[0].Total
		}
		return &domain.SearchPage{Total: total}, nil
	}
	p := pages[i]
	return &p, nil
}

func (m *mockMarketplace) FetchReviews(ctx context.Context, productID int64) ([]domain.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reviewsErr != nil {
		return nil, m.reviewsErr
	}
	return m.reviews[productID], nil
}

func (m *mockMarketplace) FetchWeekOrders(ctx context.Context, productID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.weekOrdersErr != nil {
		return 0, m.weekOrdersErr
	}
	return m.weekOrders[productID], nil
}

// mockStore is a map-backed domain.ObservationStore
type mockStore struct {
	mu           sync.Mutex
	stock        map[domain.VariantRef]int
	observations map[domain.VariantRef]domain.Observation
}

func newMockStore() *mockStore {
	return &mockStore{
		stock:        make(map[domain.VariantRef]int),
		observations: make(map[domain.VariantRef]domain.Observation),
	}
}

func (s *mockStore) RecordStock(ctx context.Context, ref domain.VariantRef, stock int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.stock[ref]
	s.stock[ref] = stock
	return prev, ok
}

func (s *mockStore) lastStock(ctx context.Context, ref domain.VariantRef) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.stock[ref]
	return v, ok
}

func (s *mockStore) RecordObservation(ctx context.Context, obs domain.Observation) (domain.Observation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.observations[obs.Ref()]
	s.observations[obs.Ref()] = obs
	return prev, ok
}

func (s *mockStore) lastObservation(ctx context.Context, ref domain.VariantRef) (domain.Observation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.observations[ref]
	return v, ok
}

// recordingNotifier keeps every message
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

// recordingJournal keeps every appended row by kind
type recordingJournal struct {
	mu   sync.Mutex
	rows map[domain.JournalKind][][]string
	err  error
}

func newRecordingJournal() *recordingJournal {
	return &recordingJournal{rows: make(map[domain.JournalKind][][]string)}
}

func (j *recordingJournal) AppendRow(ctx context.Context, kind domain.JournalKind, row []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.rows[kind] = append(j.rows[kind], row)
	return nil
}

func (j *recordingJournal) Rows(ctx context.Context, kind domain.JournalKind, limit int) ([]domain.JournalRow, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.JournalRow
	for _, r := range j.rows[kind] {
		out = append(out, domain.JournalRow{Kind: kind, Fields: r})
	}
	return out, nil
}

func (j *recordingJournal) get(kind domain.JournalKind) [][]string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rows[kind]
}

// Fixture: product 123456 with Color {Red, Blue} x Size {M, L}.
const (
	fixtureProductID = 123456
	attrColor        = 10
	attrSize         = 20
	valRed           = 101
	valBlue          = 102
	valM             = 201
	valL             = 202

	skuRedM  = 1001
	skuRedL  = 1002
	skuBlueM = 1003
)

func fixtureDetail() *domain.ProductDetail {
	return &domain.ProductDetail{
		ID:           fixtureProductID,
		Title:        "Cotton T-shirt",
		Rating:       4.7,
		OrdersAmount: 500,
		Characteristics: []domain.ProductCharacteristic{
			{ID: attrColor, Title: "Color", Values: []domain.ProductCharacteristicValue{
				{ID: valRed, Title: "Red"}, {ID: valBlue, Title: "Blue"},
			}},
			{ID: attrSize, Title: "Size", Values: []domain.ProductCharacteristicValue{
				{ID: valM, Title: "M"}, {ID: valL, Title: "L"},
			}},
		},
		SkuList: []domain.Sku{
			{ID: skuRedM, AvailableAmount: 10, PurchasePrice: 100, Characteristics: []domain.SkuCharacteristic{{CharIndex: 0, ValueIndex: 0}, {CharIndex: 1, ValueIndex: 0}}},
			{ID: skuRedL, AvailableAmount: 3, PurchasePrice: 110, Characteristics: []domain.SkuCharacteristic{{CharIndex: 0, ValueIndex: 0}, {CharIndex: 1, ValueIndex: 1}}},
			{ID: skuBlueM, AvailableAmount: 0, PurchasePrice: 100, Characteristics: []domain.SkuCharacteristic{{CharIndex: 0, ValueIndex: 1}, {CharIndex: 1, ValueIndex: 0}}},
		},
		Seller: domain.Seller{ID: 7, Title: "Best Shop", Link: "bestshop"},
	}
}

func fixtureLink(sku int64) string {
	return fmt.Sprintf("https://kazanexpress.ru/product/cotton-t-shirt-%d?skuId=%d", fixtureProductID, sku)
}

// card builds a search card with id-encoded characteristics
func card(id, productID int64, orders int, refs ...domain.CharacteristicRef) domain.CatalogCard {
	titles := make([]string, 0, len(refs))
	for _, r := range refs {
		titles = append(titles, fmt.Sprintf("v%d", r.ValueID))
	}
	return domain.CatalogCard{ID: id, ProductID: productID, OrdersQuantity: orders, Characteristics: refs, ValueTitles: titles}
}

// cards builds n filler cards of other products starting at id
func cards(startID int64, n int) []domain.CatalogCard {
	out := make([]domain.CatalogCard, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.CatalogCard{ID: startID + int64(i), ProductID: 900000 + startID + int64(i)})
	}
	return out
}
