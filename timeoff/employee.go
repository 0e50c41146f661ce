package timeoff

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// Employee is the subset of the employee record the engine reads.
type Employee struct {
	ID         string
	Name       string
	Department string
	HireDate   generic.Date
	EndDate    *generic.Date // set on separation
	Active     bool
	Suspended  bool // on unpaid leave; statutory entitlement is zero

	// GrantDate overrides the hire-date-derived grant cycle for expiry.
	GrantDate *generic.Date

	// EntitlementBase overrides the computed entitlement per category.
	// Either unit is accepted; balance math converts to hours.
	EntitlementBase map[Category]generic.Amount

	// Adjustments are signed manual deltas in hours, layered on entitlement.
	Adjustments map[Category]decimal.Decimal

	// Payroll attributes carried on the record; the engine never reads them.
	JobLevel          string
	SalaryGrade       string
	BaseSalary        decimal.Decimal
	PositionAllowance decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the employee counts as employed on today.
func (e Employee) IsActive(today generic.Date) bool {
	if !e.Active {
		return false
	}
	return e.EndDate == nil || e.EndDate.AfterOrEqual(today)
}

// TenureReference is the date tenure is measured to: the separation date
// once it has passed, today otherwise.
func (e Employee) TenureReference(today generic.Date) generic.Date {
	if e.EndDate != nil && e.EndDate.Before(today) {
		return *e.EndDate
	}
	return today
}

// TenureAt computes the employee's tenure as of today.
func (e Employee) TenureAt(today generic.Date) Tenure {
	return ComputeTenure(e.HireDate, e.TenureReference(today))
}

// Adjustment returns the manual delta for a category (zero when unset).
func (e Employee) Adjustment(c Category) decimal.Decimal {
	if adj, ok := e.Adjustments[c]; ok {
		return adj
	}
	return decimal.Zero
}

// EntitlementHours resolves the category's entitlement base in hours: the
// per-employee override when present, the computed rule otherwise.
func (e Employee) EntitlementHours(c Category, computed Entitlement) generic.Amount {
	if base, ok := e.EntitlementBase[c]; ok {
		return base.InHours()
	}
	return generic.Hours(DaysToHours(int64(computed.Days(c))))
}

// Snapshot is the audit view of the employee.
func (e Employee) Snapshot() generic.Snapshot {
	s := generic.Snapshot{
		"id":         e.ID,
		"name":       e.Name,
		"department": e.Department,
		"hire_date":  e.HireDate.String(),
		"active":     e.Active,
		"suspended":  e.Suspended,
	}
	if e.JobLevel != "" {
		s["job_level"] = e.JobLevel
	}
	if e.SalaryGrade != "" {
		s["salary_grade"] = e.SalaryGrade
	}
	if !e.BaseSalary.IsZero() {
		s["base_salary"] = e.BaseSalary.String()
	}
	if !e.PositionAllowance.IsZero() {
		s["position_allowance"] = e.PositionAllowance.String()
	}
	if e.EndDate != nil {
		s["end_date"] = e.EndDate.String()
	}
	if e.GrantDate != nil {
		s["grant_date"] = e.GrantDate.String()
	}
	if len(e.EntitlementBase) > 0 {
		base := make(map[string]string, len(e.EntitlementBase))
		for c, v := range e.EntitlementBase {
			base[string(c)] = v.Value.String() + " " + string(v.Unit)
		}
		s["entitlement_base"] = base
	}
	if len(e.Adjustments) > 0 {
		adj := make(map[string]string, len(e.Adjustments))
		for c, v := range e.Adjustments {
			adj[string(c)] = v.String()
		}
		s["adjustments"] = adj
	}
	return s
}

// Clone copies the maps so callers can mutate the result independently.
func (e Employee) Clone() Employee {
	out := e
	if e.EntitlementBase != nil {
		out.EntitlementBase = make(map[Category]generic.Amount, len(e.EntitlementBase))
		for k, v := range e.EntitlementBase {
			out.EntitlementBase[k] = v
		}
	}
	if e.Adjustments != nil {
		out.Adjustments = make(map[Category]decimal.Decimal, len(e.Adjustments))
		for k, v := range e.Adjustments {
			out.Adjustments[k] = v
		}
	}
	return out
}
