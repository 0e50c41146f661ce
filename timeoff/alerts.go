package timeoff

import (
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// EXPIRY ALERTS - "N days until your leave expires"
// =============================================================================

// ExpiryAlert warns that unused entitlement is about to lapse.
type ExpiryAlert struct {
	EmployeeID   string
	EmployeeName string
	Category     Category
	Remaining    generic.Amount // hours
	Grant        generic.Date
	Expiry       generic.Date // final expiry, after carryover
	DaysLeft     int
}

// AlertGrantDate picks the grant the alert is computed for: the employee's
// explicit grant date, the current anniversary cycle, or the calendar grant
// whose carryover ends this year.
func AlertGrantDate(e Employee, p Policy, today generic.Date) generic.Date {
	if e.GrantDate != nil && !e.GrantDate.IsZero() {
		return *e.GrantDate
	}
	if p.Kind == PolicyAnniversary {
		return CurrentGrantDate(e.HireDate, today)
	}
	return calendarGrantDate(e.HireDate, today)
}

// DeriveAlert returns an alert when b still has hours left and its final
// expiry falls within the policy's alert window. Suspended and inactive
// employees never alert.
func DeriveAlert(e Employee, b Balance, p Policy, today generic.Date) (ExpiryAlert, bool) {
	if e.Suspended || !e.IsActive(today) {
		return ExpiryAlert{}, false
	}
	if !b.Remaining.IsPositive() {
		return ExpiryAlert{}, false
	}

	grant := AlertGrantDate(e, p, today)
	days, ok := DaysUntilExpiry(&grant, p, today)
	if !ok || days < 0 || days > p.AlertWindowDays {
		return ExpiryAlert{}, false
	}

	return ExpiryAlert{
		EmployeeID:   e.ID,
		EmployeeName: e.Name,
		Category:     b.Category,
		Remaining:    b.Remaining,
		Grant:        grant,
		Expiry:       ComputeExpiry(grant, p).Final,
		DaysLeft:     days,
	}, true
}
