/*
Package generic provides the domain-agnostic value types of the leave engine.

PURPOSE:
  Everything in here is free of leave-specific rules. The timeoff package
  builds tenure, entitlement, expiry and the request lifecycle on top of
  these primitives.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 14 days, 112 hours)
  - Unit: days or hours; hours is the canonical unit for balance math

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so half-hour quantities never drift
  2. Explicit units: an Amount always says whether it is days or hours
  3. No truncation in arithmetic; truncation happens only for display

USAGE:
  base := generic.NewAmountFromInt(14, generic.UnitDays)
  hours := base.InHours() // 112 hours

SEE ALSO:
  - time.go: Date, the calendar-day type used across the engine
  - period.go: Inclusive date ranges
  - errors.go: Error taxonomy
  - audit.go: Append-only audit events
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays  Unit = "days"
	UnitHours Unit = "hours"
)

// HoursPerDay is the fixed day length used for every day/hour conversion.
const HoursPerDay = 8

var hoursPerDay = decimal.NewFromInt(HoursPerDay)

func NewAmount(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

func NewAmountFromInt(value int64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(value), Unit: unit}
}

func Hours(value decimal.Decimal) Amount { return Amount{Value: value, Unit: UnitHours} }

// ParseUnit accepts "days"/"hours" (and the singular forms).
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "days", "day":
		return UnitDays, nil
	case "hours", "hour", "":
		return UnitHours, nil
	default:
		return "", fmt.Errorf("unknown unit %q", s)
	}
}

// InHours converts the amount to hours. Day amounts are multiplied exactly.
func (a Amount) InHours() Amount {
	if a.Unit == UnitDays {
		return Amount{Value: a.Value.Mul(hoursPerDay), Unit: UnitHours}
	}
	return Amount{Value: a.Value, Unit: UnitHours}
}

func (a Amount) Zero() Amount              { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Unit == b.Unit && a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

func (a Amount) String() string {
	return a.Value.String() + " " + string(a.Unit)
}
