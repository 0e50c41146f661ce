package timeoff

import "github.com/warp/leave-engine/generic"

// Tenure is elapsed employment as whole years plus remainder months (0-11).
type Tenure struct {
	Years  int
	Months int
}

// ComputeTenure measures tenure from hire to reference. A month is only
// complete once the reference day-of-month reaches the hire day-of-month.
// Dates are caller-validated; there are no error conditions.
func ComputeTenure(hire, reference generic.Date) Tenure {
	years := reference.Year() - hire.Year()
	months := int(reference.Month()) - int(hire.Month())
	if reference.Day() < hire.Day() {
		months--
	}
	if months < 0 {
		years--
		months += 12
	}
	return Tenure{Years: years, Months: months}
}

func (t Tenure) TotalMonths() int { return t.Years*12 + t.Months }

// Less orders tenures lexicographically on (Years, Months).
func (t Tenure) Less(other Tenure) bool {
	if t.Years != other.Years {
		return t.Years < other.Years
	}
	return t.Months < other.Months
}
