package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLink is returned when no product id can be parsed from a link
	ErrMalformedLink = errors.New("no product id found in link")

	// ErrProductNotFound is returned when the marketplace reports an error payload for a product
	ErrProductNotFound = errors.New("product not found")

	// ErrVariantNotFound is returned when no SKU of the product matches the requested id
	ErrVariantNotFound = errors.New("variant not found")

	// ErrNoSearchResults is returned when the first search page for a query is empty
	ErrNoSearchResults = errors.New("search returned no results")

	// ErrScanDidNotConverge is returned when a catalog scan exceeds the page cap
	ErrScanDidNotConverge = errors.New("catalog scan did not converge")

	// ErrEncodingMismatch is returned when a candidate characteristic set mixes encodings
	// or uses none of the known ones
	ErrEncodingMismatch = errors.New("characteristic encoding mismatch")

	// ErrMalformedDetail is returned when a product detail references characteristics it does not define
	ErrMalformedDetail = errors.New("malformed product detail")

	// ErrUpstreamTimeout is returned when a marketplace call exceeds its deadline
	ErrUpstreamTimeout = errors.New("marketplace request timed out")

	// ErrUpstream is returned when a marketplace request fails
	ErrUpstream = errors.New("marketplace request failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnknownJournal is returned for an unknown journal kind
	ErrUnknownJournal = errors.New("unknown journal kind")
)

// IsNotFound reports whether err means the tracked product or variant could not be located.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMalformedLink) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrVariantNotFound) ||
		errors.Is(err, ErrNoSearchResults)
}

// IsContractViolation reports whether err means an upstream response broke the
// assumptions the matching logic relies on.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrEncodingMismatch) ||
		errors.Is(err, ErrScanDidNotConverge) ||
		errors.Is(err, ErrMalformedDetail)
}

// IsTransient reports whether err should simply be retried on the next cycle.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout) || errors.Is(err, ErrUpstream)
}

// ResolveError wraps a resolution failure with the stage it happened at.
type ResolveError struct {
	Stage string // "link", "detail", "variant", "search", "reviews", "orders"
	Link  string
	Err   error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s [%s]: %v", e.Stage, e.Link, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
