package timeoff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

func annualBalance(hours string) timeoff.Balance {
	return timeoff.Balance{
		Category:  timeoff.CategoryAnnual,
		Remaining: generic.Hours(h(hours)),
	}
}

func TestDeriveAlert_AnniversaryWithinWindow(t *testing.T) {
	// GIVEN: Hired 2022-05-01; the current cycle started 2024-05-01 and
	// ends 2025-04-30
	e := timeoff.Employee{ID: "emp-1", Name: "Ada", HireDate: d("2022-05-01"), Active: true}
	p := anniversaryPolicy(0)

	// WHEN: Checking on 2025-03-10 with 40h left
	alert, ok := timeoff.DeriveAlert(e, annualBalance("40"), p, d("2025-03-10"))

	// THEN: The alert counts down to the end of the cycle
	require.True(t, ok)
	assert.Equal(t, "emp-1", alert.EmployeeID)
	assert.Equal(t, "Ada", alert.EmployeeName)
	assert.Equal(t, timeoff.CategoryAnnual, alert.Category)
	assert.Equal(t, d("2024-05-01"), alert.Grant)
	assert.Equal(t, d("2025-04-30"), alert.Expiry)
	assert.Equal(t, 51, alert.DaysLeft)
	assert.True(t, alert.Remaining.Value.Equal(h("40")))
}

func TestDeriveAlert_NoAlert(t *testing.T) {
	base := timeoff.Employee{ID: "emp-1", HireDate: d("2022-05-01"), Active: true}
	today := d("2025-03-10")

	suspended := base
	suspended.Suspended = true
	inactive := base
	inactive.Active = false
	separated := base
	separated.EndDate = datePtr("2025-02-01")

	narrow := anniversaryPolicy(0)
	narrow.AlertWindowDays = 30

	tests := []struct {
		name    string
		e       timeoff.Employee
		balance string
		policy  timeoff.Policy
	}{
		{"nothing left", base, "0", anniversaryPolicy(0)},
		{"expiry outside window", base, "40", narrow},
		{"suspended", suspended, "40", anniversaryPolicy(0)},
		{"inactive", inactive, "40", anniversaryPolicy(0)},
		{"separated", separated, "40", anniversaryPolicy(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := timeoff.DeriveAlert(tt.e, annualBalance(tt.balance), tt.policy, today)
			assert.False(t, ok)
		})
	}
}

func TestDeriveAlert_ExpiredGrantNeverAlerts(t *testing.T) {
	// GIVEN: An explicit grant whose cycle ended 2023-12-31
	e := timeoff.Employee{ID: "emp-1", HireDate: d("2020-01-01"), GrantDate: datePtr("2023-01-01"), Active: true}

	_, ok := timeoff.DeriveAlert(e, annualBalance("40"), anniversaryPolicy(0), d("2024-01-05"))
	assert.False(t, ok)
}

func TestDeriveAlert_WindowBoundaries(t *testing.T) {
	e := timeoff.Employee{ID: "emp-1", HireDate: d("2020-01-01"), GrantDate: datePtr("2024-04-10"), Active: true}
	p := anniversaryPolicy(0) // final expiry 2025-04-09

	alert, ok := timeoff.DeriveAlert(e, annualBalance("8"), p, d("2025-04-09"))
	require.True(t, ok, "expiry day itself")
	assert.Equal(t, 0, alert.DaysLeft)

	alert, ok = timeoff.DeriveAlert(e, annualBalance("8"), p, d("2025-02-08"))
	require.True(t, ok, "exactly the window")
	assert.Equal(t, 60, alert.DaysLeft)

	_, ok = timeoff.DeriveAlert(e, annualBalance("8"), p, d("2025-02-07"))
	assert.False(t, ok, "one day outside the window")
}

func TestDeriveAlert_Calendar(t *testing.T) {
	p := calendarPolicy()
	today := d("2025-11-15")

	// GIVEN: A long-serving employee; last year's grant carries over to this Dec 31
	veteran := timeoff.Employee{ID: "emp-1", HireDate: d("2020-01-01"), Active: true}
	alert, ok := timeoff.DeriveAlert(veteran, annualBalance("16"), p, today)
	require.True(t, ok)
	assert.Equal(t, d("2024-01-01"), alert.Grant)
	assert.Equal(t, d("2025-12-31"), alert.Expiry)
	assert.Equal(t, 46, alert.DaysLeft)

	// GIVEN: Someone hired mid last year; their grant starts on the hire date
	recent := timeoff.Employee{ID: "emp-2", HireDate: d("2024-07-01"), Active: true}
	assert.Equal(t, d("2024-07-01"), timeoff.AlertGrantDate(recent, p, today))

	// GIVEN: Someone hired this year; their carryover runs to next Dec 31
	fresh := timeoff.Employee{ID: "emp-3", HireDate: d("2025-02-01"), Active: true}
	_, ok = timeoff.DeriveAlert(fresh, annualBalance("16"), p, today)
	assert.False(t, ok)
}

func TestAlertGrantDate_ExplicitGrantWins(t *testing.T) {
	e := timeoff.Employee{HireDate: d("2020-06-15"), GrantDate: datePtr("2025-01-01")}

	assert.Equal(t, d("2025-01-01"), timeoff.AlertGrantDate(e, anniversaryPolicy(0), d("2025-03-10")))
	assert.Equal(t, d("2025-01-01"), timeoff.AlertGrantDate(e, calendarPolicy(), d("2025-03-10")))
}
