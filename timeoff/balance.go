/*
balance.go - Remaining balance per category

KEY INSIGHT:
  Balance is a pure function of current request state. It is always a full
  re-aggregation over the employee's requests, never an incrementally
  maintained counter, so edits, late approvals and retroactive cancellations
  are reflected correctly and idempotently.

FORMULA (hours):
  remaining = max(entitlement + adjustment - consumed, 0)
  consumed  = sum of hours of requests with status approved AND not deleted

EXAMPLE:
  entitlement 120h, adjustment -16h, approved 40h -> remaining 64h

SEE ALSO:
  - lifecycle.go: Request.CountsTowardBalance
  - service.go: reads all requests of one employee in one transaction
*/
package timeoff

import (
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// ComputeBalance returns max(entitlementHours + adjustmentHours - approvedSum, 0).
func ComputeBalance(entitlementHours, adjustmentHours, approvedSum decimal.Decimal) decimal.Decimal {
	raw := entitlementHours.Add(adjustmentHours).Sub(approvedSum)
	if raw.IsNegative() {
		return decimal.Zero
	}
	return raw
}

// ConsumedHours sums the hours of the requests in category that count
// toward balance.
func ConsumedHours(requests []Request, category Category) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range requests {
		if r.Category == category && r.CountsTowardBalance() {
			sum = sum.Add(r.Hours)
		}
	}
	return sum
}

// Balance is the aggregated view of one category for one employee.
type Balance struct {
	Category    Category
	Entitlement generic.Amount // hours
	Adjustment  generic.Amount // hours, signed
	Consumed    generic.Amount // hours
	Remaining   generic.Amount // hours, never negative
}

// Aggregate recomputes the balance from scratch over requests.
func Aggregate(category Category, entitlement generic.Amount, adjustment decimal.Decimal, requests []Request) Balance {
	ent := entitlement.InHours()
	consumed := ConsumedHours(requests, category)
	return Balance{
		Category:    category,
		Entitlement: ent,
		Adjustment:  generic.Hours(adjustment),
		Consumed:    generic.Hours(consumed),
		Remaining:   generic.Hours(ComputeBalance(ent.Value, adjustment, consumed)),
	}
}

// Overdrawn reports consumption beyond entitlement plus adjustment, which the
// clamped Remaining hides. The shortfall is in hours.
func (b Balance) Overdrawn() (shortfall decimal.Decimal, overdrawn bool) {
	raw := b.Entitlement.Value.Add(b.Adjustment.Value).Sub(b.Consumed.Value)
	if raw.IsNegative() {
		return raw.Neg(), true
	}
	return decimal.Zero, false
}

// RemainingDays is the remaining balance in whole days, for display.
func (b Balance) RemainingDays() int64 {
	return HoursToDays(b.Remaining.Value)
}
