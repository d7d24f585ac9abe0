package domain

import "time"

// NotRanked is the search position of a variant absent from the catalog scan
const NotRanked = 0

// StockUnknown marks an observation whose stock level was not reported
const StockUnknown = -1

// TrackedTarget is one monitoring unit
type TrackedTarget struct {
	Name     string `json:"name" mapstructure:"name" validate:"required"`
	Query    string `json:"query" mapstructure:"query" validate:"required"`
	Link     string `json:"link" mapstructure:"link" validate:"required"`
	Group    string `json:"group,omitempty" mapstructure:"group"`
	MinStock int    `json:"minStock" mapstructure:"min_stock" validate:"gte=0"`
}

// VariantRef identifies one variant of one product
type VariantRef struct {
	ProductID int64 `json:"productId"`
	VariantID int64 `json:"skuId"`
}

// ResolvedVariant is everything learned about one tracked variant in one resolution
type ResolvedVariant struct {
	ProductID      int64     `json:"productId"`
	VariantID      int64     `json:"skuId"`
	Title          string    `json:"title"`
	Shop           string    `json:"shop"`
	Characteristic string    `json:"characteristic"`
	Stock          int       `json:"stock"`
	Price          float64   `json:"price"`
	Rating         float64   `json:"rating"`
	ReviewCount    int       `json:"reviewCount"`
	Orders         int       `json:"orders"`
	WeekOrders     int       `json:"weekOrders"`
	SearchPosition int       `json:"searchPosition"` // NotRanked when absent from the scan
	TotalCount     int       `json:"totalCount"`
	ResolvedAt     time.Time `json:"resolvedAt"`
}

// Ref returns the key the variant is observed under.
func (v *ResolvedVariant) Ref() VariantRef {
	return VariantRef{ProductID: v.ProductID, VariantID: v.VariantID}
}

// Observation returns the snapshot to remember about the variant.
func (v *ResolvedVariant) Observation() Observation {
	return Observation{
		ProductID:  v.ProductID,
		VariantID:  v.VariantID,
		Stock:      v.Stock,
		Price:      v.Price,
		Rating:     v.Rating,
		ObservedAt: v.ResolvedAt,
	}
}

// Observation is the last known state of one variant
type Observation struct {
	ProductID  int64     `json:"productId"`
	VariantID  int64     `json:"skuId"`
	Stock      int       `json:"stock"` // StockUnknown when not reported
	Price      float64   `json:"price"`
	Rating     float64   `json:"rating"`
	ObservedAt time.Time `json:"observedAt"`
}

// Ref returns the observation key.
func (o Observation) Ref() VariantRef {
	return VariantRef{ProductID: o.ProductID, VariantID: o.VariantID}
}

// BatchResult is the outcome of resolving one target of a batch
type BatchResult struct {
	Target  TrackedTarget    `json:"target"`
	Variant *ResolvedVariant `json:"variant,omitempty"`
	Err     error            `json:"-"`
	Error   string           `json:"error,omitempty"`
}

// SkuRatings is the per-variant rating table of one product
type SkuRatings struct {
	ProductID int64            `json:"productId"`
	Title     string           `json:"title"`
	Link      string           `json:"link"`
	Rating    float64          `json:"rating"`
	Shop      string           `json:"shop"`
	ShopLink  string           `json:"shopLink"`
	Items     []SkuRatingsItem `json:"items"`
}

// SkuRatingsItem is one row of a SkuRatings table
type SkuRatingsItem struct {
	Characteristic string  `json:"characteristic"`
	Rating         float64 `json:"rating"`
	VariantID      int64   `json:"skuId"`
	Orders         int     `json:"orders"`
	Reviews        int     `json:"reviews"`
}

// JournalKind names one of the append-only log sheets
type JournalKind string

const (
	JournalStock  JournalKind = "stock"
	JournalPrice  JournalKind = "price"
	JournalReport JournalKind = "report"
)

// Valid reports whether k is a known journal kind.
func (k JournalKind) Valid() bool {
	switch k {
	case JournalStock, JournalPrice, JournalReport:
		return true
	}
	return false
}

// JournalRow is one appended row
type JournalRow struct {
	Kind       JournalKind `json:"kind"`
	Fields     []string    `json:"fields"`
	AppendedAt time.Time   `json:"appendedAt"`
}

// BatchRun is the outcome of one batch refresh; Results follow the order of the targets
type BatchRun struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Results    []BatchResult `json:"results"`
}

// CheckRun is the outcome of one stock or change check
type CheckRun struct {
	RunID         string `json:"runId"`
	Targets       int    `json:"targets"`
	Notifications int    `json:"notifications"`
}
