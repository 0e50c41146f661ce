package timeoff

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// InsuranceAuditTable is the subject table recorded on insurance audit events.
const InsuranceAuditTable = "insurances"

// AuditInsuranceSet tags an insurance upsert.
const AuditInsuranceSet = "insurance_set"

// Insurance is an employee's monthly social-insurance contribution record.
// Amounts are currency, never hours. Retirement is the employer's 6% pension
// contribution; CompanyTotal is derived from the employer lines when left zero.
type Insurance struct {
	EmployeeID string

	PersonalLabour decimal.Decimal
	PersonalHealth decimal.Decimal
	CompanyLabour  decimal.Decimal
	CompanyHealth  decimal.Decimal
	Retirement     decimal.Decimal
	Occupational   decimal.Decimal
	CompanyTotal   decimal.Decimal

	Note      string
	UpdatedAt time.Time
}

// CompanyShare sums the employer-side contributions.
func (i Insurance) CompanyShare() decimal.Decimal {
	return i.CompanyLabour.Add(i.CompanyHealth).Add(i.Retirement).Add(i.Occupational)
}

// PersonalShare sums the employee-side contributions.
func (i Insurance) PersonalShare() decimal.Decimal {
	return i.PersonalLabour.Add(i.PersonalHealth)
}

func (i Insurance) amounts() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"personal_labour":  i.PersonalLabour,
		"personal_health":  i.PersonalHealth,
		"company_labour":   i.CompanyLabour,
		"company_health":   i.CompanyHealth,
		"retirement6":      i.Retirement,
		"occupational_ins": i.Occupational,
		"total_company":    i.CompanyTotal,
	}
}

// Validate rejects a missing employee id and negative amounts.
func (i Insurance) Validate() error {
	if strings.TrimSpace(i.EmployeeID) == "" {
		return fmt.Errorf("%w: empty employee id", generic.ErrInvalidInsurance)
	}
	for name, v := range i.amounts() {
		if v.IsNegative() {
			return fmt.Errorf("%w: negative %s", generic.ErrInvalidInsurance, name)
		}
	}
	return nil
}

// Snapshot is the audit view of the record.
func (i Insurance) Snapshot() generic.Snapshot {
	s := generic.Snapshot{"employee_id": i.EmployeeID}
	for name, v := range i.amounts() {
		s[name] = v.String()
	}
	if i.Note != "" {
		s["note"] = i.Note
	}
	return s
}

// InsuranceEntry pairs an employee with its insurance record. Recorded is
// false when nothing has been stored yet and Insurance is all zero.
type InsuranceEntry struct {
	EmployeeID   string
	EmployeeName string
	Department   string
	Insurance    Insurance
	Recorded     bool
}
