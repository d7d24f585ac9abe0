package kazanexpress

// Raw API response types (internal)

type productResponse struct {
	Payload *struct {
		Data *rawProduct `json:"data"`
	} `json:"payload"`
	Errors []rawError `json:"errors"`
}

type rawError struct {
	Message       string `json:"message"`
	DetailMessage string `json:"detailMessage"`
}

type rawProduct struct {
	ID              int64               `json:"id"`
	Title           string              `json:"title"`
	Rating          float64             `json:"rating"`
	OrdersAmount    int                 `json:"ordersAmount"`
	Characteristics []rawCharacteristic `json:"characteristics"`
	SkuList         []rawSku            `json:"skuList"`
	Seller          rawSeller           `json:"seller"`
}

type rawCharacteristic struct {
	ID     int64                    `json:"id"`
	Title  string                   `json:"title"`
	Values []rawCharacteristicValue `json:"values"`
}

type rawCharacteristicValue struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Value string `json:"value"`
}

type rawSku struct {
	ID              int64                  `json:"id"`
	Characteristics []rawSkuCharacteristic `json:"characteristics"`
	AvailableAmount *int                   `json:"availableAmount"`
	FullPrice       *float64               `json:"fullPrice"`
	PurchasePrice   float64                `json:"purchasePrice"`
}

type rawSkuCharacteristic struct {
	CharIndex  int `json:"charIndex"`
	ValueIndex int `json:"valueIndex"`
}

type rawSeller struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

type reviewsResponse struct {
	Payload []rawReview `json:"payload"`
}

type rawReview struct {
	ReviewID        int64                     `json:"reviewId"`
	ProductID       int64                     `json:"productId"`
	Rating          int                       `json:"rating"`
	Characteristics []rawReviewCharacteristic `json:"characteristics"`
}

type rawReviewCharacteristic struct {
	Characteristic      string `json:"characteristic"`
	CharacteristicValue string `json:"characteristicValue"`
}

type rawAction struct {
	Text string `json:"text"`
}

type searchRequest struct {
	OperationName string          `json:"operationName"`
	Variables     searchVariables `json:"variables"`
	Query         string          `json:"query"`
}

type searchVariables struct {
	QueryInput searchQueryInput `json:"queryInput"`
}

type searchQueryInput struct {
	Text              string           `json:"text"`
	ShowAdultContent  string           `json:"showAdultContent"`
	CorrectQuery      bool             `json:"correctQuery"`
	GetFastCategories bool             `json:"getFastCategories"`
	GetPromotionItems bool             `json:"getPromotionItems"`
	Filters           []any            `json:"filters"`
	Sort              string           `json:"sort"`
	Pagination        searchPagination `json:"pagination"`
}

type searchPagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type searchResponse struct {
	Data *struct {
		MakeSearch *struct {
			Items []struct {
				CatalogCard rawCatalogCard `json:"catalogCard"`
			} `json:"items"`
			Total int `json:"total"`
		} `json:"makeSearch"`
	} `json:"data"`
	Errors []rawError `json:"errors"`
}

type rawCatalogCard struct {
	ID                   int64                   `json:"id"`
	ProductID            int64                   `json:"productId"`
	Title                string                  `json:"title"`
	Rating               float64                 `json:"rating"`
	OrdersQuantity       int                     `json:"ordersQuantity"`
	FeedbackQuantity     int                     `json:"feedbackQuantity"`
	MinSellPrice         float64                 `json:"minSellPrice"`
	MinFullPrice         float64                 `json:"minFullPrice"`
	CharacteristicValues []rawCardCharacteristic `json:"characteristicValues"`
}

type rawCardCharacteristic struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Characteristic struct {
		ID int64 `json:"id"`
	} `json:"characteristic"`
}

const searchQuery = `query getMakeSearch($queryInput:MakeSearchQueryInput!) {
  makeSearch(query:$queryInput) {
    items { catalogCard { ...SkuGroupCardFragment } }
    total
  }
}
fragment SkuGroupCardFragment on SkuGroupCard {
  ...DefaultCardFragment
  characteristicValues { title id characteristic { id } }
}
fragment DefaultCardFragment on CatalogCard {
  feedbackQuantity id minFullPrice minSellPrice ordersQuantity productId rating title
}`

func newSearchRequest(text string, offset, limit int) searchRequest {
	return searchRequest{
		OperationName: "getMakeSearch",
		Variables: searchVariables{QueryInput: searchQueryInput{
			Text:              text,
			ShowAdultContent:  "NONE",
			CorrectQuery:      true,
			GetFastCategories: true,
			GetPromotionItems: true,
			Filters:           []any{},
			Sort:              "BY_RELEVANCE_DESC",
			Pagination:        searchPagination{Offset: offset, Limit: limit},
		}},
		Query: searchQuery,
	}
}
