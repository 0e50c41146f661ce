/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

FORMATS:
  dates      "2006-01-02" strings (generic.Date), null when unset
  hours      decimal strings such as "7.5" (shopspring/decimal)
  timestamps RFC 3339

VALIDATION:
  Validation is done by the service, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// AmountDTO is an entitlement base override.
type AmountDTO struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
}

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID                string                     `json:"id"`
	Name              string                     `json:"name"`
	Department        string                     `json:"department,omitempty"`
	HireDate          generic.Date               `json:"hire_date"`
	EndDate           *generic.Date              `json:"end_date,omitempty"`
	GrantDate         *generic.Date              `json:"grant_date,omitempty"`
	Active            bool                       `json:"active"`
	Suspended         bool                       `json:"suspended"`
	EntitlementBase   map[string]AmountDTO       `json:"entitlement_base,omitempty"`
	Adjustments       map[string]decimal.Decimal `json:"adjustments,omitempty"`
	JobLevel          string                     `json:"job_level,omitempty"`
	SalaryGrade       string                     `json:"salary_grade,omitempty"`
	BaseSalary        decimal.Decimal            `json:"base_salary"`
	PositionAllowance decimal.Decimal            `json:"position_allowance"`
	CreatedAt         string                     `json:"created_at,omitempty"`
	UpdatedAt         string                     `json:"updated_at,omitempty"`
}

// CreateEmployeeRequest registers or replaces an employee. Active defaults
// to true when omitted.
type CreateEmployeeRequest struct {
	ID                string                     `json:"id"`
	Name              string                     `json:"name"`
	Department        string                     `json:"department"`
	HireDate          generic.Date               `json:"hire_date"`
	EndDate           *generic.Date              `json:"end_date"`
	GrantDate         *generic.Date              `json:"grant_date"`
	Active            *bool                      `json:"active"`
	Suspended         bool                       `json:"suspended"`
	EntitlementBase   map[string]AmountDTO       `json:"entitlement_base"`
	Adjustments       map[string]decimal.Decimal `json:"adjustments"`
	JobLevel          string                     `json:"job_level"`
	SalaryGrade       string                     `json:"salary_grade"`
	BaseSalary        decimal.Decimal            `json:"base_salary"`
	PositionAllowance decimal.Decimal            `json:"position_allowance"`
}

// AdjustmentRequest sets the signed manual delta for one category.
type AdjustmentRequest struct {
	Category string          `json:"category"`
	Hours    decimal.Decimal `json:"hours"`
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// CreateLeaveRequest files a leave request.
type CreateLeaveRequest struct {
	Category string          `json:"category"`
	From     generic.Date    `json:"from"`
	To       generic.Date    `json:"to"`
	Hours    decimal.Decimal `json:"hours"`
	Note     string          `json:"note"`
}

// EditLeaveRequest changes the given fields; omitted fields are kept.
type EditLeaveRequest struct {
	From  *generic.Date    `json:"from"`
	To    *generic.Date    `json:"to"`
	Hours *decimal.Decimal `json:"hours"`
	Note  *string          `json:"note"`
}

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employee_id"`
	Category   string          `json:"category"`
	From       generic.Date    `json:"from"`
	To         generic.Date    `json:"to"`
	Hours      decimal.Decimal `json:"hours"`
	Note       string          `json:"note,omitempty"`
	Status     string          `json:"status"`
	Deleted    bool            `json:"deleted"`
	DeletedAt  string          `json:"deleted_at,omitempty"`
	CreatedBy  string          `json:"created_by,omitempty"`
	CreatedAt  string          `json:"created_at"`
	ApprovedBy string          `json:"approved_by,omitempty"`
	ApprovedAt string          `json:"approved_at,omitempty"`
	Version    int             `json:"version"`
}

// AuditEventDTO is one entry of a request's audit trail.
type AuditEventDTO struct {
	ID        string           `json:"id"`
	Action    string           `json:"action"`
	Actor     string           `json:"actor"`
	At        string           `json:"at"`
	Before    generic.Snapshot `json:"before,omitempty"`
	After     generic.Snapshot `json:"after"`
	SubjectID string           `json:"subject_id"`
}

// =============================================================================
// ENTITLEMENT, BALANCE & ALERTS
// =============================================================================

type TenureDTO struct {
	Years  int `json:"years"`
	Months int `json:"months"`
}

// EntitlementDTO is the entitlement summary for an employee.
type EntitlementDTO struct {
	EmployeeID      string         `json:"employee_id"`
	Tenure          TenureDTO      `json:"tenure"`
	Days            map[string]int `json:"days"`
	GrantDate       generic.Date   `json:"grant_date"`
	FirstExpiry     generic.Date   `json:"first_expiry"`
	FinalExpiry     generic.Date   `json:"final_expiry"`
	DaysUntilExpiry int            `json:"days_until_expiry"`
	NextAnniversary generic.Date   `json:"next_anniversary"`
}

// BalanceDTO is one category's balance; quantities are hours.
type BalanceDTO struct {
	Category       string           `json:"category"`
	Entitlement    decimal.Decimal  `json:"entitlement_hours"`
	Adjustment     decimal.Decimal  `json:"adjustment_hours"`
	Consumed       decimal.Decimal  `json:"consumed_hours"`
	Remaining      decimal.Decimal  `json:"remaining_hours"`
	RemainingDays  int64            `json:"remaining_days"`
	OverdrawnHours *decimal.Decimal `json:"overdrawn_hours,omitempty"`
}

// AlertDTO warns about entitlement nearing expiry.
type AlertDTO struct {
	EmployeeID     string          `json:"employee_id"`
	EmployeeName   string          `json:"employee_name"`
	Category       string          `json:"category"`
	RemainingHours decimal.Decimal `json:"remaining_hours"`
	GrantDate      generic.Date    `json:"grant_date"`
	ExpiryDate     generic.Date    `json:"expiry_date"`
	DaysLeft       int             `json:"days_left"`
}

// AlertScanDTO is the scheduler's most recent result.
type AlertScanDTO struct {
	RanAt  string     `json:"ran_at,omitempty"`
	Alerts []AlertDTO `json:"alerts"`
}

// PolicyDTO shows the policy in force.
type PolicyDTO struct {
	Kind            string         `json:"kind"`
	CarryoverMonths int            `json:"carryover_months"`
	AlertWindowDays int            `json:"alert_window_days"`
	InitialStatus   string         `json:"initial_status"`
	Allowances      map[string]int `json:"allowances"`
}

// =============================================================================
// INSURANCE
// =============================================================================

// InsuranceDTO is an employee's monthly insurance contributions.
type InsuranceDTO struct {
	EmployeeID      string          `json:"employee_id"`
	EmployeeName    string          `json:"employee_name,omitempty"`
	Department      string          `json:"department,omitempty"`
	PersonalLabour  decimal.Decimal `json:"personal_labour"`
	PersonalHealth  decimal.Decimal `json:"personal_health"`
	CompanyLabour   decimal.Decimal `json:"company_labour"`
	CompanyHealth   decimal.Decimal `json:"company_health"`
	Retirement6     decimal.Decimal `json:"retirement6"`
	OccupationalIns decimal.Decimal `json:"occupational_ins"`
	TotalCompany    decimal.Decimal `json:"total_company"`
	Note            string          `json:"note,omitempty"`
	Recorded        bool            `json:"recorded"`
	UpdatedAt       string          `json:"updated_at,omitempty"`
}

// SetInsuranceRequest replaces an employee's record. A zero or omitted
// total_company is computed from the employer lines.
type SetInsuranceRequest struct {
	PersonalLabour  decimal.Decimal `json:"personal_labour"`
	PersonalHealth  decimal.Decimal `json:"personal_health"`
	CompanyLabour   decimal.Decimal `json:"company_labour"`
	CompanyHealth   decimal.Decimal `json:"company_health"`
	Retirement6     decimal.Decimal `json:"retirement6"`
	OccupationalIns decimal.Decimal `json:"occupational_ins"`
	TotalCompany    decimal.Decimal `json:"total_company"`
	Note            string          `json:"note"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// ScenarioLoadedDTO is the response to loading a scenario.
type ScenarioLoadedDTO struct {
	Status    string   `json:"status"`
	Scenario  string   `json:"scenario"`
	Employees []string `json:"employees"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimestampPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTimestamp(*t)
}

func toEmployeeDTO(e timeoff.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:                e.ID,
		Name:              e.Name,
		Department:        e.Department,
		HireDate:          e.HireDate,
		EndDate:           e.EndDate,
		GrantDate:         e.GrantDate,
		Active:            e.Active,
		Suspended:         e.Suspended,
		JobLevel:          e.JobLevel,
		SalaryGrade:       e.SalaryGrade,
		BaseSalary:        e.BaseSalary,
		PositionAllowance: e.PositionAllowance,
		CreatedAt:         formatTimestamp(e.CreatedAt),
		UpdatedAt:         formatTimestamp(e.UpdatedAt),
	}
	if len(e.EntitlementBase) > 0 {
		dto.EntitlementBase = make(map[string]AmountDTO, len(e.EntitlementBase))
		for c, a := range e.EntitlementBase {
			dto.EntitlementBase[string(c)] = AmountDTO{Value: a.Value, Unit: string(a.Unit)}
		}
	}
	if len(e.Adjustments) > 0 {
		dto.Adjustments = make(map[string]decimal.Decimal, len(e.Adjustments))
		for c, h := range e.Adjustments {
			dto.Adjustments[string(c)] = h
		}
	}
	return dto
}

func (req CreateEmployeeRequest) toEmployee() (timeoff.Employee, error) {
	e := timeoff.Employee{
		ID:                req.ID,
		Name:              req.Name,
		Department:        req.Department,
		HireDate:          req.HireDate,
		EndDate:           req.EndDate,
		GrantDate:         req.GrantDate,
		Active:            req.Active == nil || *req.Active,
		Suspended:         req.Suspended,
		JobLevel:          req.JobLevel,
		SalaryGrade:       req.SalaryGrade,
		BaseSalary:        req.BaseSalary,
		PositionAllowance: req.PositionAllowance,
	}
	if len(req.EntitlementBase) > 0 {
		e.EntitlementBase = make(map[timeoff.Category]generic.Amount, len(req.EntitlementBase))
		for name, a := range req.EntitlementBase {
			c, err := timeoff.ParseCategory(name)
			if err != nil {
				return timeoff.Employee{}, err
			}
			unit, err := generic.ParseUnit(a.Unit)
			if err != nil {
				return timeoff.Employee{}, err
			}
			e.EntitlementBase[c] = generic.NewAmount(a.Value, unit)
		}
	}
	if len(req.Adjustments) > 0 {
		e.Adjustments = make(map[timeoff.Category]decimal.Decimal, len(req.Adjustments))
		for name, h := range req.Adjustments {
			c, err := timeoff.ParseCategory(name)
			if err != nil {
				return timeoff.Employee{}, err
			}
			e.Adjustments[c] = h
		}
	}
	return e, nil
}

func toRequestDTO(r timeoff.Request) RequestDTO {
	return RequestDTO{
		ID:         r.ID,
		EmployeeID: r.EmployeeID,
		Category:   string(r.Category),
		From:       r.From,
		To:         r.To,
		Hours:      r.Hours,
		Note:       r.Note,
		Status:     string(r.Status),
		Deleted:    r.Deleted,
		DeletedAt:  formatTimestampPtr(r.DeletedAt),
		CreatedBy:  r.CreatedBy,
		CreatedAt:  formatTimestamp(r.CreatedAt),
		ApprovedBy: r.ApprovedBy,
		ApprovedAt: formatTimestampPtr(r.ApprovedAt),
		Version:    r.Version,
	}
}

func toAuditEventDTO(e generic.AuditEvent) AuditEventDTO {
	return AuditEventDTO{
		ID:        e.ID,
		Action:    e.Action,
		Actor:     e.Actor,
		At:        formatTimestamp(e.At),
		Before:    e.Before,
		After:     e.After,
		SubjectID: e.SubjectID,
	}
}

func toBalanceDTO(b timeoff.Balance) BalanceDTO {
	dto := BalanceDTO{
		Category:      string(b.Category),
		Entitlement:   b.Entitlement.Value,
		Adjustment:    b.Adjustment.Value,
		Consumed:      b.Consumed.Value,
		Remaining:     b.Remaining.Value,
		RemainingDays: b.RemainingDays(),
	}
	if shortfall, overdrawn := b.Overdrawn(); overdrawn {
		dto.OverdrawnHours = &shortfall
	}
	return dto
}

func toEntitlementDTO(v timeoff.EntitlementView) EntitlementDTO {
	days := make(map[string]int)
	for _, c := range timeoff.Categories() {
		days[string(c)] = v.Days.Days(c)
	}
	return EntitlementDTO{
		EmployeeID:      v.EmployeeID,
		Tenure:          TenureDTO{Years: v.Tenure.Years, Months: v.Tenure.Months},
		Days:            days,
		GrantDate:       v.Grant,
		FirstExpiry:     v.Expiry.First,
		FinalExpiry:     v.Expiry.Final,
		DaysUntilExpiry: v.DaysUntilExpiry,
		NextAnniversary: v.NextAnniversary,
	}
}

func toAlertDTOs(alerts []timeoff.ExpiryAlert) []AlertDTO {
	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = AlertDTO{
			EmployeeID:     a.EmployeeID,
			EmployeeName:   a.EmployeeName,
			Category:       string(a.Category),
			RemainingHours: a.Remaining.Value,
			GrantDate:      a.Grant,
			ExpiryDate:     a.Expiry,
			DaysLeft:       a.DaysLeft,
		}
	}
	return dtos
}

func toPolicyDTO(p timeoff.Policy) PolicyDTO {
	allowances := map[string]int{
		string(timeoff.CategorySick):     p.Allowances.SickDays,
		string(timeoff.CategoryPersonal): p.Allowances.PersonalDays,
		string(timeoff.CategoryMarriage): p.Allowances.MarriageDays,
	}
	for c, d := range p.Allowances.Extra {
		allowances[string(c)] = d
	}
	return PolicyDTO{
		Kind:            string(p.Kind),
		CarryoverMonths: p.CarryoverMonths,
		AlertWindowDays: p.AlertWindowDays,
		InitialStatus:   string(p.InitialStatus),
		Allowances:      allowances,
	}
}

func toInsuranceDTO(i timeoff.Insurance) InsuranceDTO {
	return InsuranceDTO{
		EmployeeID:      i.EmployeeID,
		PersonalLabour:  i.PersonalLabour,
		PersonalHealth:  i.PersonalHealth,
		CompanyLabour:   i.CompanyLabour,
		CompanyHealth:   i.CompanyHealth,
		Retirement6:     i.Retirement,
		OccupationalIns: i.Occupational,
		TotalCompany:    i.CompanyTotal,
		Note:            i.Note,
		Recorded:        !i.UpdatedAt.IsZero(),
		UpdatedAt:       formatTimestamp(i.UpdatedAt),
	}
}

func toInsuranceEntryDTO(e timeoff.InsuranceEntry) InsuranceDTO {
	dto := toInsuranceDTO(e.Insurance)
	dto.EmployeeName = e.EmployeeName
	dto.Department = e.Department
	dto.Recorded = e.Recorded
	return dto
}

func (req SetInsuranceRequest) toInsurance(employeeID string) timeoff.Insurance {
	return timeoff.Insurance{
		EmployeeID:     employeeID,
		PersonalLabour: req.PersonalLabour,
		PersonalHealth: req.PersonalHealth,
		CompanyLabour:  req.CompanyLabour,
		CompanyHealth:  req.CompanyHealth,
		Retirement:     req.Retirement6,
		Occupational:   req.OccupationalIns,
		CompanyTotal:   req.TotalCompany,
		Note:           req.Note,
	}
}
