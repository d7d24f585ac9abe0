package kazanexpress

import (
	"strconv"
	"strings"

	"github.com/ketracker/backend/internal/domain"
)

// weekOrdersMarker is the tail of the "N bought this week" action text
const weekOrdersMarker = "на этой неделе"

// mapProduct converts the API product document to our domain ProductDetail model
func mapProduct(raw *rawProduct) domain.ProductDetail {
	detail := domain.ProductDetail{
		ID:              raw.ID,
		Title:           raw.Title,
		Rating:          raw.Rating,
		OrdersAmount:    raw.OrdersAmount,
		Characteristics: make([]domain.ProductCharacteristic, 0, len(raw.Characteristics)),
		SkuList:         make([]domain.Sku, 0, len(raw.SkuList)),
		Seller: domain.Seller{
			ID:    raw.Seller.ID,
			Title: raw.Seller.Title,
			Link:  raw.Seller.Link,
		},
	}

	for _, ch := range raw.Characteristics {
		values := make([]domain.ProductCharacteristicValue, 0, len(ch.Values))
		for _, v := range ch.Values {
			values = append(values, domain.ProductCharacteristicValue{ID: v.ID, Title: v.Title, Value: v.Value})
		}
		detail.Characteristics = append(detail.Characteristics, domain.ProductCharacteristic{
			ID:     ch.ID,
			Title:  ch.Title,
			Values: values,
		})
	}

	for _, s := range raw.SkuList {
		sku := domain.Sku{
			ID:              s.ID,
			Characteristics: make([]domain.SkuCharacteristic, 0, len(s.Characteristics)),
			AvailableAmount: domain.StockUnknown,
			PurchasePrice:   s.PurchasePrice,
		}
		if s.AvailableAmount != nil {
			sku.AvailableAmount = *s.AvailableAmount
		}
		if s.FullPrice != nil {
			sku.FullPrice = *s.FullPrice
		}
		for _, sc := range s.Characteristics {
			sku.Characteristics = append(sku.Characteristics, domain.SkuCharacteristic{
				CharIndex:  sc.CharIndex,
				ValueIndex: sc.ValueIndex,
			})
		}
		detail.SkuList = append(detail.SkuList, sku)
	}

	return detail
}

// mapCard converts a search card; its characteristics are id-encoded
func mapCard(raw rawCatalogCard) domain.CatalogCard {
	card := domain.CatalogCard{
		ID:               raw.ID,
		ProductID:        raw.ProductID,
		Title:            raw.Title,
		Rating:           raw.Rating,
		OrdersQuantity:   raw.OrdersQuantity,
		FeedbackQuantity: raw.FeedbackQuantity,
		MinSellPrice:     raw.MinSellPrice,
		MinFullPrice:     raw.MinFullPrice,
		Characteristics:  make([]domain.CharacteristicRef, 0, len(raw.CharacteristicValues)),
		ValueTitles:      make([]string, 0, len(raw.CharacteristicValues)),
	}
	for _, cv := range raw.CharacteristicValues {
		card.Characteristics = append(card.Characteristics, domain.RefByID(cv.Characteristic.ID, cv.ID))
		card.ValueTitles = append(card.ValueTitles, cv.Title)
	}
	return card
}

// mapReview converts a review; its characteristics are title-encoded
func mapReview(raw rawReview) domain.ReviewRecord {
	review := domain.ReviewRecord{
		ID:              raw.ReviewID,
		Rating:          raw.Rating,
		Characteristics: make([]domain.CharacteristicRef, 0, len(raw.Characteristics)),
	}
	for _, rc := range raw.Characteristics {
		review.Characteristics = append(review.Characteristics, domain.RefByTitle(rc.Characteristic, rc.CharacteristicValue))
	}
	return review
}

// parseWeekOrders reads N from an action text like "12 человек купили на этой неделе".
// Any other action text means no weekly orders badge.
func parseWeekOrders(text string) int {
	if !strings.Contains(text, weekOrdersMarker) {
		return 0
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return n
}
