package store

import (
	"fmt"
	"strings"

	"github.com/pkordes/tabinico/internal/domain"
)

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}
	return nil
}

func validateDuration(days int) error {
	if days < 1 {
		return fmt.Errorf("%w: duration must be at least 1 day", domain.ErrValidation)
	}
	return nil
}

func validateMembers(members []string) error {
	for _, m := range members {
		if err := required("member name", m); err != nil {
			return err
		}
	}
	return nil
}

func validateNewTrip(in domain.NewTrip) error {
	if err := required("title", in.Title); err != nil {
		return err
	}
	if len(in.Members) == 0 {
		return fmt.Errorf("%w: at least one member is required", domain.ErrValidation)
	}
	return validateMembers(in.Members)
}

// validatePatch checks the trip-level fields a settings form can change.
func validatePatch(p domain.TripPatch) error {
	t := p.Apply(domain.Trip{})
	if p.Has(domain.FieldTitle) {
		if err := required("title", t.Title); err != nil {
			return err
		}
	}
	if p.Has(domain.FieldMembers) {
		if err := validateMembers(t.Members); err != nil {
			return err
		}
	}
	if p.Has(domain.FieldDuration) {
		if err := validateDuration(t.Duration); err != nil {
			return err
		}
	}
	return nil
}
