package timeoff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) generic.Date { return generic.MustParseDate(s) }

func datePtr(s string) *generic.Date {
	v := d(s)
	return &v
}

// =============================================================================
// TENURE
// =============================================================================

func TestComputeTenure(t *testing.T) {
	tests := []struct {
		name      string
		hire, ref string
		want      timeoff.Tenure
	}{
		{"three years four months", "2021-06-15", "2024-10-20", timeoff.Tenure{Years: 3, Months: 4}},
		{"day before monthly mark borrows a month", "2021-06-15", "2024-10-14", timeoff.Tenure{Years: 3, Months: 3}},
		{"month borrow crosses into year borrow", "2021-11-20", "2024-02-10", timeoff.Tenure{Years: 2, Months: 2}},
		{"hire day", "2024-03-01", "2024-03-01", timeoff.Tenure{}},
		{"exactly one year", "2023-05-10", "2024-05-10", timeoff.Tenure{Years: 1}},
		{"jan 31 hire on leap feb end", "2024-01-31", "2024-02-29", timeoff.Tenure{Years: 0, Months: 0}},
		{"jan 31 hire on mar 31", "2024-01-31", "2024-03-31", timeoff.Tenure{Years: 0, Months: 2}},
		{"leap-day hire a common year later", "2020-02-29", "2021-02-28", timeoff.Tenure{Years: 0, Months: 11}},
		{"leap-day hire on mar 1", "2020-02-29", "2021-03-01", timeoff.Tenure{Years: 1, Months: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timeoff.ComputeTenure(d(tt.hire), d(tt.ref))
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.Months, 0)
			assert.LessOrEqual(t, got.Months, 11)
		})
	}
}

func TestTenure_TotalMonthsAndLess(t *testing.T) {
	a := timeoff.Tenure{Years: 3, Months: 4}
	b := timeoff.Tenure{Years: 3, Months: 5}
	c := timeoff.Tenure{Years: 4, Months: 0}

	assert.Equal(t, 40, a.TotalMonths())
	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.False(t, a.Less(a))
}

func TestEmployee_TenureReference(t *testing.T) {
	// GIVEN: An employee who separated on 2024-06-30
	e := timeoff.Employee{HireDate: d("2020-01-15"), EndDate: datePtr("2024-06-30"), Active: true}

	// WHEN: Measuring tenure after separation
	// THEN: Tenure stops at the separation date
	assert.Equal(t, d("2024-06-30"), e.TenureReference(d("2025-03-01")))
	assert.Equal(t, timeoff.Tenure{Years: 4, Months: 5}, e.TenureAt(d("2025-03-01")))

	// Before separation, today is the reference.
	assert.Equal(t, d("2024-05-01"), e.TenureReference(d("2024-05-01")))
	assert.True(t, e.IsActive(d("2024-06-30")))
	assert.False(t, e.IsActive(d("2024-07-01")))
}
