/*
entitlement.go - Statutory entitlement tiers and per-category allowances

The annual category follows a tenure-based statutory table; every other
category is a tenure-independent allowance taken from policy.

STATUTORY TIERS (total months = years*12 + months):
  suspended      -> 0 (overrides every tier)
  < 6            -> 0
  6 - 11         -> 3
  12 - 23        -> 7
  24 - 35        -> 10
  36 - 59        -> 14
  60 - 119       -> 15
  >= 120         -> 15 + (years - 9), capped at 30

EXAMPLE:
  tenure := timeoff.ComputeTenure(hire, today)  // (3, 4)
  ent := timeoff.ComputeEntitlement(tenure, false, policy.Allowances)
  ent.Annual  // 14
*/
package timeoff

// statutoryTier grants Days once tenure reaches FromMonths.
type statutoryTier struct {
	FromMonths int
	Days       int
}

// Ordered by FromMonths; the last tier that applies wins.
var statutoryTiers = []statutoryTier{
	{FromMonths: 0, Days: 0},
	{FromMonths: 6, Days: 3},
	{FromMonths: 12, Days: 7},
	{FromMonths: 24, Days: 10},
	{FromMonths: 36, Days: 14},
	{FromMonths: 60, Days: 15},
}

const (
	longServiceMonths = 120
	longServiceBase   = 15
	statutoryCapDays  = 30
)

// StatutoryAnnualDays returns the annual leave entitlement in whole days.
func StatutoryAnnualDays(t Tenure, suspended bool) int {
	if suspended {
		return 0
	}
	total := t.TotalMonths()
	if total >= longServiceMonths {
		days := longServiceBase + (t.Years - 9)
		if days > statutoryCapDays {
			return statutoryCapDays
		}
		return days
	}
	days := 0
	for _, tier := range statutoryTiers {
		if total >= tier.FromMonths {
			days = tier.Days
		}
	}
	return days
}

// Allowances are the tenure-independent day counts for secondary categories.
// They vary by jurisdiction, so they come from policy rather than code.
type Allowances struct {
	SickDays     int              `yaml:"sick_days"`
	PersonalDays int              `yaml:"personal_days"`
	MarriageDays int              `yaml:"marriage_days"` // granted once
	Extra        map[Category]int `yaml:"extra,omitempty"`
}

// DefaultAllowances: sick 30/year, personal 14/year, marriage 8 once.
func DefaultAllowances() Allowances {
	return Allowances{SickDays: 30, PersonalDays: 14, MarriageDays: 8}
}

// Entitlement holds per-category entitlement in whole days.
type Entitlement struct {
	Annual   int
	Sick     int
	Personal int
	Marriage int
	Extra    map[Category]int
}

// ComputeEntitlement maps tenure and policy allowances to entitlement days.
func ComputeEntitlement(t Tenure, suspended bool, a Allowances) Entitlement {
	ent := Entitlement{
		Annual:   StatutoryAnnualDays(t, suspended),
		Sick:     a.SickDays,
		Personal: a.PersonalDays,
		Marriage: a.MarriageDays,
	}
	if len(a.Extra) > 0 {
		ent.Extra = make(map[Category]int, len(a.Extra))
		for c, d := range a.Extra {
			ent.Extra[c] = d
		}
	}
	return ent
}

// Days returns the entitlement for one category; unknown categories get 0.
func (e Entitlement) Days(c Category) int {
	switch c {
	case CategoryAnnual:
		return e.Annual
	case CategorySick:
		return e.Sick
	case CategoryPersonal:
		return e.Personal
	case CategoryMarriage:
		return e.Marriage
	default:
		return e.Extra[c]
	}
}
