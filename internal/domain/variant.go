package domain

import "strings"

// Encoding tells which addressing scheme a characteristic reference uses.
type Encoding int

const (
	// EncodingUnknown is the zero value and never matches.
	EncodingUnknown Encoding = iota
	// EncodingByID addresses a characteristic by (attribute id, value id), as search cards do.
	EncodingByID
	// EncodingByTitle addresses a characteristic by (attribute title, value title), as reviews do.
	EncodingByTitle
)

func (e Encoding) String() string {
	switch e {
	case EncodingByID:
		return "by-id"
	case EncodingByTitle:
		return "by-title"
	default:
		return "unknown"
	}
}

// Characteristic is one attribute=value pair of a variant, addressable both ways.
type Characteristic struct {
	AttributeID    int64  `json:"attributeId"`
	ValueID        int64  `json:"valueId"`
	AttributeTitle string `json:"attribute"`
	ValueTitle     string `json:"value"`
}

// CharacteristicRef is one entry of a candidate set produced by an upstream endpoint.
// Only the fields of its Encoding are meaningful.
type CharacteristicRef struct {
	Encoding       Encoding `json:"encoding"`
	AttributeID    int64    `json:"attributeId,omitempty"`
	ValueID        int64    `json:"valueId,omitempty"`
	AttributeTitle string   `json:"attribute,omitempty"`
	ValueTitle     string   `json:"value,omitempty"`
}

// RefByID builds an id-encoded reference.
func RefByID(attributeID, valueID int64) CharacteristicRef {
	return CharacteristicRef{Encoding: EncodingByID, AttributeID: attributeID, ValueID: valueID}
}

// RefByTitle builds a title-encoded reference.
func RefByTitle(attribute, value string) CharacteristicRef {
	return CharacteristicRef{Encoding: EncodingByTitle, AttributeTitle: attribute, ValueTitle: value}
}

// VariantKey is the characteristic set distinguishing one SKU from its siblings.
// It is immutable once built.
type VariantKey struct {
	chars []Characteristic
}

// NewVariantKey copies chars into a new key.
func NewVariantKey(chars []Characteristic) VariantKey {
	cp := make([]Characteristic, len(chars))
	copy(cp, chars)
	return VariantKey{chars: cp}
}

// Characteristics returns a copy of the key's characteristics in detail order.
func (k VariantKey) Characteristics() []Characteristic {
	cp := make([]Characteristic, len(k.chars))
	copy(cp, k.chars)
	return cp
}

// Len returns the number of characteristics.
func (k VariantKey) Len() int {
	return len(k.chars)
}

// Contains reports whether ref names one of the key's characteristics under ref's encoding.
func (k VariantKey) Contains(ref CharacteristicRef) bool {
	for _, c := range k.chars {
		switch ref.Encoding {
		case EncodingByID:
			if c.AttributeID == ref.AttributeID && c.ValueID == ref.ValueID {
				return true
			}
		case EncodingByTitle:
			if c.AttributeTitle == ref.AttributeTitle && c.ValueTitle == ref.ValueTitle {
				return true
			}
		}
	}
	return false
}

// Description joins the value titles, e.g. "Red M".
func (k VariantKey) Description() string {
	parts := make([]string, 0, len(k.chars))
	for _, c := range k.chars {
		parts = append(parts, c.ValueTitle)
	}
	return strings.Join(parts, " ")
}
