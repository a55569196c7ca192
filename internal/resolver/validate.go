package resolver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
)

// Validation bounds for structural attributes.
const (
	MinConstructionYear = 1900
	MaxAreaSqm          = 999
	UAVTCodeLength      = 10
	OldPolicyLength     = 8
)

// ValidationError is a client-side, field-scoped validation failure.
// It blocks submission locally and is never the result of a network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidateConstructionYear accepts years from 1900 through the current year.
func ValidateConstructionYear(year int) error {
	current := time.Now().Year()
	if year < MinConstructionYear || year > current {
		return &ValidationError{
			Field:  "constructionYear",
			Reason: fmt.Sprintf("must be between %d and %d", MinConstructionYear, current),
		}
	}
	return nil
}

// ValidateArea accepts positive integers of at most three digits.
func ValidateArea(area int) error {
	if area <= 0 || area > MaxAreaSqm {
		return &ValidationError{
			Field:  "areaSqm",
			Reason: "must be a positive integer of at most 3 digits",
		}
	}
	return nil
}

// ParseFloorNumber parses a floor number from user input. A bare sign or
// any non-integer input is rejected.
func ParseFloorNumber(input string) (int, error) {
	trimmed := strings.TrimSpace(input)
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, &ValidationError{Field: "floorNumber", Reason: "must be an integer"}
	}
	return n, nil
}

// ValidateFloorNumber checks the floor number against the building's
// floor-count bucket. Basements down to -5 are accepted for any bucket;
// the ceiling depends on the bucket. Changing the bucket after entry means
// the existing value runs through this again.
func ValidateFloorNumber(floor int, bucket models.FloorCountRange) error {
	max := bucket.MaxFloor()
	if floor < models.MinFloorNumber || floor > max {
		return &ValidationError{
			Field:  "floorNumber",
			Reason: fmt.Sprintf("must be between %d and %d", models.MinFloorNumber, max),
		}
	}
	return nil
}

// ValidateUAVTCode checks the fixed-length numeric shape of a UAVT code.
// Length mismatches fail before any network call.
func ValidateUAVTCode(code string) error {
	if !isFixedDigits(code, UAVTCodeLength) {
		return &ValidationError{
			Field:  "uavtCode",
			Reason: fmt.Sprintf("must be exactly %d digits", UAVTCodeLength),
		}
	}
	return nil
}

// ValidateOldPolicyNumber checks the fixed-length numeric shape of an old
// policy number. Length mismatches fail before any network call.
func ValidateOldPolicyNumber(number string) error {
	if !isFixedDigits(number, OldPolicyLength) {
		return &ValidationError{
			Field:  "oldPolicyNumber",
			Reason: fmt.Sprintf("must be exactly %d digits", OldPolicyLength),
		}
	}
	return nil
}

// ValidateStructural runs the full structural rule set. Only the New and
// Renewal strategies carry structural input; Existing submits a bare
// property selection.
func ValidateStructural(attrs models.StructuralAttributes) error {
	if err := ValidateConstructionYear(attrs.ConstructionYear); err != nil {
		return err
	}
	if err := ValidateArea(attrs.AreaSqm); err != nil {
		return err
	}
	return ValidateFloorNumber(attrs.FloorNumber, attrs.FloorCountRange)
}

func isFixedDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
