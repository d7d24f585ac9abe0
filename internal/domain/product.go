package domain

// ProductDetail is the product document returned by the marketplace detail endpoint
type ProductDetail struct {
	ID              int64                   `json:"id"`
	Title           string                  `json:"title"`
	Rating          float64                 `json:"rating"`
	OrdersAmount    int                     `json:"ordersAmount"`
	Characteristics []ProductCharacteristic `json:"characteristics"`
	SkuList         []Sku                   `json:"skuList"`
	Seller          Seller                  `json:"seller"`
}

// ProductCharacteristic is one attribute a product varies by, with its possible values
type ProductCharacteristic struct {
	ID     int64                        `json:"id"`
	Title  string                       `json:"title"`
	Values []ProductCharacteristicValue `json:"values"`
}

// ProductCharacteristicValue is one value of a product characteristic
type ProductCharacteristicValue struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// Sku is one purchasable variant; its characteristics are index pairs into ProductDetail.Characteristics
type Sku struct {
	ID              int64               `json:"id"`
	Characteristics []SkuCharacteristic `json:"characteristics"`
	AvailableAmount int                 `json:"availableAmount"`
	FullPrice       float64             `json:"fullPrice"`
	PurchasePrice   float64             `json:"purchasePrice"`
}

// SkuCharacteristic points at a characteristic and one of its values by index
type SkuCharacteristic struct {
	CharIndex  int `json:"charIndex"`
	ValueIndex int `json:"valueIndex"`
}

// Seller is the shop selling the product
type Seller struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

// CatalogCard is one card of a search results page
type CatalogCard struct {
	ID               int64               `json:"id"`
	ProductID        int64               `json:"productId"`
	Title            string              `json:"title"`
	Rating           float64             `json:"rating"`
	OrdersQuantity   int                 `json:"ordersQuantity"`
	FeedbackQuantity int                 `json:"feedbackQuantity"`
	MinSellPrice     float64             `json:"minSellPrice"`
	MinFullPrice     float64             `json:"minFullPrice"`
	Characteristics  []CharacteristicRef `json:"characteristics"` // id-encoded
	ValueTitles      []string            `json:"valueTitles"`
}

// SearchPage is one page of search results with the total declared by the endpoint
type SearchPage struct {
	Cards []CatalogCard `json:"cards"`
	Total int           `json:"total"`
}

// CatalogEntry is a card placed in the complete, deduplicated result list of one query
type CatalogEntry struct {
	CatalogCard
	Rank  int `json:"rank"`  // 1-based
	Total int `json:"total"` // declared total at scan time
}

// ReviewRecord is one customer review left against a variant
type ReviewRecord struct {
	ID              int64               `json:"id"`
	Rating          int                 `json:"rating"`
	Characteristics []CharacteristicRef `json:"characteristics"` // title-encoded
}
