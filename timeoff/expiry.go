/*
expiry.go - Grant-cycle boundaries and anniversary helpers

CALENDAR POLICY:
  grant 2025-04-10 -> first expiry 2025-12-31, final expiry 2026-12-31

ANNIVERSARY POLICY:
  first expiry = (grant + 12 months) - 1 day
  final expiry = first expiry when CarryoverMonths = 0,
                 (grant + 12 + CarryoverMonths months) - 1 day otherwise

MONTH-LENGTH ANOMALIES:
  Month addition clamps the day to the end of the target month. When that
  clamping happens the grant's anniversary day does not exist, so the cycle
  runs through the last day of the target month:

    grant 2024-02-29 -> first expiry 2025-02-28
    grant 2024-01-31, carryover 1 -> final expiry 2025-02-28
    grant 2023-03-01 -> first expiry 2024-02-29
*/
package timeoff

import (
	"time"

	"github.com/warp/leave-engine/generic"
)

// Expiry holds the boundaries of one grant cycle.
type Expiry struct {
	Grant generic.Date
	First generic.Date // end of the grant cycle
	Final generic.Date // end of carryover; equal to First without carryover
}

// Window is the span during which the granted entitlement is usable.
func (e Expiry) Window() generic.Period {
	return generic.Period{Start: e.Grant, End: e.Final}
}

// ComputeExpiry returns the expiry dates for entitlement granted on grant.
func ComputeExpiry(grant generic.Date, p Policy) Expiry {
	if p.Kind == PolicyCalendar {
		return Expiry{
			Grant: grant,
			First: generic.EndOfYear(grant.Year()),
			Final: generic.EndOfYear(grant.Year() + 1),
		}
	}
	first := cycleEnd(grant, 12)
	final := first
	if p.CarryoverMonths > 0 {
		final = cycleEnd(grant, 12+p.CarryoverMonths)
	}
	return Expiry{Grant: grant, First: first, Final: final}
}

// cycleEnd is the last day of an n-month cycle starting on grant.
func cycleEnd(grant generic.Date, months int) generic.Date {
	anniversary := grant.AddMonthsClamped(months)
	if anniversary.Day() < grant.Day() {
		return anniversary
	}
	return anniversary.AddDays(-1)
}

// DaysUntilExpiry is finalExpiry - today in whole days. It is negative once
// expired; ok is false when there is no grant date.
func DaysUntilExpiry(grant *generic.Date, p Policy, today generic.Date) (days int, ok bool) {
	if grant == nil || grant.IsZero() {
		return 0, false
	}
	exp := ComputeExpiry(*grant, p)
	return generic.DaysBetween(today, exp.Final), true
}

// NextAnniversary returns the first anniversary of hire on or after today.
// A Feb 29 hire date falls on Feb 28 in non-leap years. Before the hire
// date the answer is the hire date itself.
func NextAnniversary(hire, today generic.Date) generic.Date {
	candidate := anniversaryIn(hire, today.Year())
	if candidate.Before(today) {
		candidate = anniversaryIn(hire, today.Year()+1)
	}
	if candidate.Before(hire) {
		return hire
	}
	return candidate
}

// CurrentGrantDate returns the start of the grant cycle running on today:
// the most recent grant anniversary of hire on or before today, or hire
// itself while the first year is still running.
//
// A Feb 29 hire is granted on Mar 1 in non-leap years, the day tenure
// completes. The previous cycle ends on Feb 28, so consecutive cycles
// neither overlap nor leave a gap.
func CurrentGrantDate(hire, today generic.Date) generic.Date {
	if today.Before(hire) {
		return hire
	}
	candidate := grantAnniversaryIn(hire, today.Year())
	if candidate.After(today) {
		candidate = grantAnniversaryIn(hire, today.Year()-1)
	}
	if candidate.Before(hire) {
		return hire
	}
	return candidate
}

func anniversaryIn(hire generic.Date, year int) generic.Date {
	day := hire.Day()
	if hire.IsLeapDay() && !generic.IsLeapYear(year) {
		day = 28
	}
	return generic.NewDate(year, hire.Month(), day)
}

func grantAnniversaryIn(hire generic.Date, year int) generic.Date {
	if hire.IsLeapDay() && !generic.IsLeapYear(year) {
		return generic.NewDate(year, time.March, 1)
	}
	return generic.NewDate(year, hire.Month(), hire.Day())
}

// calendarGrantDate is the grant whose carryover ends this Dec 31: Jan 1 of
// last year, or the hire date for employees hired since then.
func calendarGrantDate(hire, today generic.Date) generic.Date {
	grant := generic.NewDate(today.Year()-1, time.January, 1)
	if hire.After(grant) {
		return hire
	}
	return grant
}
