package usecase

import (
	"fmt"
	"math"

	"github.com/ketracker/backend/internal/domain"
)

// BuildVariantKey resolves the SKU's index pairs against the product's characteristic
// definitions. Both encodings of every characteristic come from the same definition
// entry, so they cannot disagree.
func BuildVariantKey(detail *domain.ProductDetail, sku domain.Sku) (domain.VariantKey, error) {
	chars := make([]domain.Characteristic, 0, len(sku.Characteristics))
	for _, sc := range sku.Characteristics {
		if sc.CharIndex < 0 || sc.CharIndex >= len(detail.Characteristics) {
			return domain.VariantKey{}, fmt.Errorf("%w: sku %d characteristic index %d out of range",
				domain.ErrMalformedDetail, sku.ID, sc.CharIndex)
		}
		attr := detail.Characteristics[sc.CharIndex]
		if sc.ValueIndex < 0 || sc.ValueIndex >= len(attr.Values) {
			return domain.VariantKey{}, fmt.Errorf("%w: sku %d value index %d out of range for %q",
				domain.ErrMalformedDetail, sku.ID, sc.ValueIndex, attr.Title)
		}
		value := attr.Values[sc.ValueIndex]
		chars = append(chars, domain.Characteristic{
			AttributeID:    attr.ID,
			ValueID:        value.ID,
			AttributeTitle: attr.Title,
			ValueTitle:     value.Title,
		})
	}
	return domain.NewVariantKey(chars), nil
}

// MatchVariant reports whether every reference in candidates names a characteristic of key.
// Extra characteristics of key are ignored and an empty candidate set always matches.
// All references must share one known encoding, otherwise ErrEncodingMismatch is returned.
func MatchVariant(key domain.VariantKey, candidates []domain.CharacteristicRef) (bool, error) {
	if len(candidates) == 0 {
		return true, nil
	}

	enc := candidates[0].Encoding
	if enc != domain.EncodingByID && enc != domain.EncodingByTitle {
		return false, fmt.Errorf("%w: %s", domain.ErrEncodingMismatch, enc)
	}
	for _, c := range candidates[1:] {
		if c.Encoding != enc {
			return false, fmt.Errorf("%w: %s mixed with %s", domain.ErrEncodingMismatch, enc, c.Encoding)
		}
	}

	for _, c := range candidates {
		if !key.Contains(c) {
			return false, nil
		}
	}
	return true, nil
}

// variantRating averages the ratings of reviews left against key, rounded to 2 places.
// It returns 0 when there are none.
func variantRating(key domain.VariantKey, reviews []domain.ReviewRecord) (float64, int, error) {
	sum, count := 0, 0
	for _, r := range reviews {
		ok, err := MatchVariant(key, r.Characteristics)
		if err != nil {
			return 0, 0, fmt.Errorf("review %d: %w", r.ID, err)
		}
		if ok {
			sum += r.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return roundRating(float64(sum) / float64(count)), count, nil
}

func roundRating(v float64) float64 {
	return math.Round(v*100) / 100
}
