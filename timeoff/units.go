package timeoff

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// UNIT CONVERSION - hours are canonical, 1 day = 8 hours
// =============================================================================

var (
	two         = decimal.NewFromInt(2)
	hoursPerDay = decimal.NewFromInt(generic.HoursPerDay)
)

// DaysToHours is exact.
func DaysToHours(days int64) decimal.Decimal {
	return decimal.NewFromInt(days).Mul(hoursPerDay)
}

// HoursToDays truncates toward zero. Display only; balance math stays in hours.
func HoursToDays(hours decimal.Decimal) int64 {
	return hours.Div(hoursPerDay).Truncate(0).IntPart()
}

// ValidateRequestHours checks a stored request amount: a positive multiple of 0.5.
func ValidateRequestHours(h decimal.Decimal) error {
	if err := validateGranularity(h); err != nil {
		return err
	}
	if !h.IsPositive() {
		return fmt.Errorf("%w: got %s hours", generic.ErrNonPositiveQuantity, h)
	}
	return nil
}

// ValidateAdjustmentHours checks a manual adjustment; negative is allowed.
func ValidateAdjustmentHours(h decimal.Decimal) error {
	return validateGranularity(h)
}

func validateGranularity(h decimal.Decimal) error {
	doubled := h.Mul(two)
	if !doubled.Equal(doubled.Truncate(0)) {
		return &generic.GranularityError{Value: h}
	}
	return nil
}

// ParseHours reads a human-entered hour quantity such as "7.5".
func ParseHours(s string) (decimal.Decimal, error) {
	h, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid hour quantity %q: %w", s, err)
	}
	return h, nil
}
