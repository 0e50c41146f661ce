package generic_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
)

var fixedNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// =============================================================================
// DATE ARITHMETIC
// =============================================================================

func TestDate_AddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		months int
		want   string
	}{
		{"plain month", "2025-03-10", 1, "2025-04-10"},
		{"jan 31 into leap feb", "2024-01-31", 1, "2024-02-29"},
		{"jan 31 into common feb", "2023-01-31", 1, "2023-02-28"},
		{"across year end", "2025-11-15", 3, "2026-02-15"},
		{"negative into leap feb", "2024-03-31", -1, "2024-02-29"},
		{"negative across year", "2024-01-15", -13, "2022-12-15"},
		{"leap day plus a year", "2024-02-29", 12, "2025-02-28"},
		{"leap day plus four years", "2024-02-29", 48, "2028-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := generic.MustParseDate(tt.start).AddMonthsClamped(tt.months)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestDate_AddYearsClamped_LeapDay(t *testing.T) {
	// GIVEN: A Feb 29 date
	// WHEN: Adding one year
	// THEN: The result is clamped to Feb 28

	leap := generic.NewDate(2024, time.February, 29)
	assert.Equal(t, "2025-02-28", leap.AddYearsClamped(1).String())
	assert.Equal(t, "2023-02-28", leap.AddYearsClamped(-1).String())
}

func TestDaysBetween(t *testing.T) {
	a := generic.MustParseDate("2024-02-28")
	b := generic.MustParseDate("2024-03-01")

	assert.Equal(t, 2, generic.DaysBetween(a, b), "leap year has Feb 29 in between")
	assert.Equal(t, -2, generic.DaysBetween(b, a))
	assert.Equal(t, 0, generic.DaysBetween(a, a))
	assert.Equal(t, 365, generic.DaysBetween(generic.StartOfYear(2025), generic.StartOfYear(2026)))
}

func TestIsLeapYear(t *testing.T) {
	assert.True(t, generic.IsLeapYear(2024))
	assert.True(t, generic.IsLeapYear(2000))
	assert.False(t, generic.IsLeapYear(1900))
	assert.False(t, generic.IsLeapYear(2025))
	assert.Equal(t, 29, generic.DaysInMonth(2024, time.February))
	assert.Equal(t, 28, generic.DaysInMonth(2025, time.February))
}

func TestDateOf_DropsClock(t *testing.T) {
	ts := time.Date(2025, time.June, 3, 23, 59, 0, 0, time.UTC)
	d := generic.DateOf(ts)

	assert.Equal(t, "2025-06-03", d.String())
	assert.True(t, d.Equal(generic.NewDate(2025, time.June, 3)))
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := generic.ParseDate("2025-13-01")
	assert.Error(t, err)

	_, err = generic.ParseDate("03/10/2025")
	assert.Error(t, err)
}

// =============================================================================
// JSON
// =============================================================================

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Hire generic.Date  `json:"hire"`
		End  *generic.Date `json:"end"`
		Zero generic.Date  `json:"zero"`
	}

	// GIVEN: A payload with a set, a nil and a zero date
	in := payload{Hire: generic.NewDate(2024, time.February, 29)}

	// WHEN: Marshaling
	b, err := json.Marshal(in)
	require.NoError(t, err)

	// THEN: Zero dates are null, set dates are YYYY-MM-DD
	assert.JSONEq(t, `{"hire":"2024-02-29","end":null,"zero":null}`, string(b))

	var out payload
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, out.Hire.Equal(in.Hire))
	assert.Nil(t, out.End)
	assert.True(t, out.Zero.IsZero())
}

func TestDate_UnmarshalJSON_Invalid(t *testing.T) {
	var d generic.Date
	assert.Error(t, json.Unmarshal([]byte(`"not-a-date"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20250101`), &d))
}

// =============================================================================
// CLOCK
// =============================================================================

func TestFixedClock_Today(t *testing.T) {
	clock := generic.FixedClock(time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC))

	assert.Equal(t, "2025-03-10", clock.Today().String())
}
