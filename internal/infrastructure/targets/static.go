// Package targets supplies the list of tracked variants.
package targets

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ketracker/backend/internal/domain"
)

// StaticSource serves a fixed, validated target list loaded from configuration
type StaticSource struct {
	targets []domain.TrackedTarget
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks a single target, naming the offending fields in the error.
func Validate(t domain.TrackedTarget) error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s %s", fe.Field(), friendlyMessage(fe)))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, strings.Join(fields, ", "))
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "is invalid"
	}
}

// ValidateAll checks every target and that names are unique.
func ValidateAll(list []domain.TrackedTarget) error {
	seen := make(map[string]struct{}, len(list))
	for i, t := range list {
		if err := Validate(t); err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("%w: duplicate target name %q", domain.ErrInvalidRequest, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// NewStaticSource validates list and wraps it as a TargetSource.
func NewStaticSource(list []domain.TrackedTarget) (*StaticSource, error) {
	if err := ValidateAll(list); err != nil {
		return nil, err
	}
	cp := make([]domain.TrackedTarget, len(list))
	copy(cp, list)
	return &StaticSource{targets: cp}, nil
}

// Targets returns a copy of the configured targets.
func (s *StaticSource) Targets(ctx context.Context) ([]domain.TrackedTarget, error) {
	out := make([]domain.TrackedTarget, len(s.targets))
	copy(out, s.targets)
	return out, nil
}

// Group returns the targets belonging to group, in configuration order.
func (s *StaticSource) Group(group string) []domain.TrackedTarget {
	var out []domain.TrackedTarget
	for _, t := range s.targets {
		if t.Group == group {
			out = append(out, t)
		}
	}
	return out
}

// Groups returns the distinct group names in first-seen order.
func (s *StaticSource) Groups() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range s.targets {
		if _, ok := seen[t.Group]; ok {
			continue
		}
		seen[t.Group] = struct{}{}
		out = append(out, t.Group)
	}
	return out
}
