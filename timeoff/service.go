package timeoff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"go.uber.org/zap"
)

// EmployeeAuditTable is the subject table recorded on employee audit events.
const EmployeeAuditTable = "employees"

// Employee audit action tags.
const (
	AuditEmployeeRegistered = "register"
	AuditEmployeeUpdated    = "update"
	AuditAdjustmentSet      = "adjustment_set"
)

// =============================================================================
// REQUEST SERVICE - Orchestrates the engine over a transactional store
// =============================================================================

// RequestService runs every operation in one store transaction: reads,
// the pure engine step, the write and its audit event commit together or
// not at all. Policy is fetched from Policies on every call.
type RequestService struct {
	Store    Store
	Policies PolicySource
	Clock    generic.Clock

	logger *zap.Logger
}

func NewRequestService(store Store, policies PolicySource, clock generic.Clock, logger ...*zap.Logger) *RequestService {
	l := zap.L().Named("timeoff.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("timeoff.service")
	}
	if clock == nil {
		clock = generic.SystemClock
	}
	return &RequestService{Store: store, Policies: policies, Clock: clock, logger: l}
}

// logFailure logs expected domain failures at warn and everything else at error.
func (s *RequestService) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if generic.IsClientError(err) || generic.IsNotFound(err) || generic.IsConflict(err) {
		s.logger.Warn(msg, fields...)
		return
	}
	s.logger.Error(msg, fields...)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// RegisterEmployee inserts or replaces an employee record.
func (s *RequestService) RegisterEmployee(ctx context.Context, actor string, e Employee) (Employee, error) {
	s.logger.Debug("register employee requested",
		zap.String("employee_id", e.ID),
		zap.String("actor", actor),
	)

	if err := validateEmployee(e); err != nil {
		s.logFailure("register employee validation failed", err, zap.String("employee_id", e.ID))
		return Employee{}, err
	}

	now := s.Clock()
	var saved Employee
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		action := AuditEmployeeRegistered
		var before generic.Snapshot

		existing, err := tx.GetEmployee(ctx, e.ID)
		switch {
		case err == nil:
			action = AuditEmployeeUpdated
			before = existing.Snapshot()
			e.CreatedAt = existing.CreatedAt
		case errors.Is(err, generic.ErrEmployeeNotFound):
			e.CreatedAt = now
		default:
			return err
		}
		e.UpdatedAt = now

		if err := tx.SaveEmployee(ctx, e); err != nil {
			return fmt.Errorf("save employee: %w", err)
		}
		saved = e.Clone()
		return tx.AppendAudit(ctx, generic.NewAuditEvent(
			EmployeeAuditTable, e.ID, action, before, e.Snapshot(), actor, now))
	})
	if err != nil {
		s.logFailure("register employee failed", err, zap.String("employee_id", e.ID))
		return Employee{}, err
	}

	s.logger.Info("register employee success", zap.String("employee_id", saved.ID))
	return saved, nil
}

func (s *RequestService) GetEmployee(ctx context.Context, id string) (Employee, error) {
	var e Employee
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		e, err = tx.GetEmployee(ctx, id)
		return err
	})
	return e, err
}

func (s *RequestService) ListEmployees(ctx context.Context) ([]Employee, error) {
	var out []Employee
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListEmployees(ctx)
		return err
	})
	return out, err
}

// SetAdjustment replaces the manual delta for one category. Negative hours
// are allowed; the 0.5-hour granularity still applies.
func (s *RequestService) SetAdjustment(ctx context.Context, actor, employeeID string, c Category, hours decimal.Decimal) (Employee, error) {
	fields := []zap.Field{
		zap.String("employee_id", employeeID),
		zap.String("category", string(c)),
		zap.String("hours", hours.String()),
		zap.String("actor", actor),
	}
	s.logger.Debug("set adjustment requested", fields...)

	if !c.Valid() {
		err := fmt.Errorf("%w: %q", generic.ErrInvalidCategory, c)
		s.logFailure("set adjustment validation failed", err, fields...)
		return Employee{}, err
	}
	if err := ValidateAdjustmentHours(hours); err != nil {
		s.logFailure("set adjustment validation failed", err, fields...)
		return Employee{}, err
	}

	now := s.Clock()
	var updated Employee
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		e, err := tx.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		before := e.Snapshot()

		e = e.Clone()
		if e.Adjustments == nil {
			e.Adjustments = make(map[Category]decimal.Decimal)
		}
		e.Adjustments[c] = hours
		e.UpdatedAt = now

		if err := tx.SaveEmployee(ctx, e); err != nil {
			return fmt.Errorf("save employee: %w", err)
		}
		updated = e
		return tx.AppendAudit(ctx, generic.NewAuditEvent(
			EmployeeAuditTable, e.ID, AuditAdjustmentSet, before, e.Snapshot(), actor, now))
	})
	if err != nil {
		s.logFailure("set adjustment failed", err, fields...)
		return Employee{}, err
	}

	s.logger.Info("set adjustment success", fields...)
	return updated, nil
}

func validateEmployee(e Employee) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: empty id", generic.ErrInvalidEmployee)
	}
	if e.HireDate.IsZero() {
		return fmt.Errorf("%w: hire date is required", generic.ErrInvalidEmployee)
	}
	if e.EndDate != nil && e.EndDate.Before(e.HireDate) {
		return fmt.Errorf("%w: end date %s before hire date %s", generic.ErrInvalidDateRange, e.EndDate, e.HireDate)
	}
	if e.BaseSalary.IsNegative() || e.PositionAllowance.IsNegative() {
		return fmt.Errorf("%w: negative salary amount", generic.ErrInvalidEmployee)
	}
	for c, base := range e.EntitlementBase {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", generic.ErrInvalidCategory, c)
		}
		if base.IsNegative() {
			return fmt.Errorf("%w: negative entitlement base for %s", generic.ErrInvalidEmployee, c)
		}
	}
	for c, adj := range e.Adjustments {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", generic.ErrInvalidCategory, c)
		}
		if err := ValidateAdjustmentHours(adj); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// INSURANCE
// =============================================================================

// SetInsurance inserts or replaces the employee's insurance record. A zero
// CompanyTotal is filled with the sum of the employer lines.
func (s *RequestService) SetInsurance(ctx context.Context, actor string, in Insurance) (Insurance, error) {
	fields := []zap.Field{
		zap.String("employee_id", in.EmployeeID),
		zap.String("actor", actor),
	}
	s.logger.Debug("set insurance requested", fields...)

	if err := in.Validate(); err != nil {
		s.logFailure("set insurance validation failed", err, fields...)
		return Insurance{}, err
	}
	if in.CompanyTotal.IsZero() {
		in.CompanyTotal = in.CompanyShare()
	}

	now := s.Clock()
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetEmployee(ctx, in.EmployeeID); err != nil {
			return err
		}
		var before generic.Snapshot
		existing, err := tx.GetInsurance(ctx, in.EmployeeID)
		switch {
		case err == nil:
			before = existing.Snapshot()
		case !errors.Is(err, generic.ErrInsuranceNotFound):
			return err
		}

		in.UpdatedAt = now
		if err := tx.SaveInsurance(ctx, in); err != nil {
			return fmt.Errorf("save insurance: %w", err)
		}
		return tx.AppendAudit(ctx, generic.NewAuditEvent(
			InsuranceAuditTable, in.EmployeeID, AuditInsuranceSet, before, in.Snapshot(), actor, now))
	})
	if err != nil {
		s.logFailure("set insurance failed", err, fields...)
		return Insurance{}, err
	}

	s.logger.Info("set insurance success", fields...)
	return in, nil
}

// GetInsurance returns the employee's record; an employee without one
// reads as all zero.
func (s *RequestService) GetInsurance(ctx context.Context, employeeID string) (Insurance, error) {
	var out Insurance
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetEmployee(ctx, employeeID); err != nil {
			return err
		}
		var err error
		out, err = tx.GetInsurance(ctx, employeeID)
		if errors.Is(err, generic.ErrInsuranceNotFound) {
			out, err = Insurance{EmployeeID: employeeID}, nil
		}
		return err
	})
	return out, err
}

// ListInsurance returns one entry per employee, ordered by employee id.
func (s *RequestService) ListInsurance(ctx context.Context) ([]InsuranceEntry, error) {
	var out []InsuranceEntry
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		employees, err := tx.ListEmployees(ctx)
		if err != nil {
			return err
		}
		records, err := tx.ListInsurance(ctx)
		if err != nil {
			return err
		}
		byEmployee := make(map[string]Insurance, len(records))
		for _, r := range records {
			byEmployee[r.EmployeeID] = r
		}

		out = make([]InsuranceEntry, 0, len(employees))
		for _, e := range employees {
			entry := InsuranceEntry{
				EmployeeID:   e.ID,
				EmployeeName: e.Name,
				Department:   e.Department,
				Insurance:    Insurance{EmployeeID: e.ID},
			}
			if r, ok := byEmployee[e.ID]; ok {
				entry.Insurance = r
				entry.Recorded = true
			}
			out = append(out, entry)
		}
		return nil
	})
	return out, err
}

// InsuranceTrail returns the employee's insurance audit events, oldest first.
func (s *RequestService) InsuranceTrail(ctx context.Context, employeeID string) ([]generic.AuditEvent, error) {
	var out []generic.AuditEvent
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetEmployee(ctx, employeeID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListAudit(ctx, InsuranceAuditTable, employeeID)
		return err
	})
	return out, err
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// CreateRequest files a new request in the policy's initial status.
func (s *RequestService) CreateRequest(ctx context.Context, actor string, in CreateInput) (Request, error) {
	fields := []zap.Field{
		zap.String("employee_id", in.EmployeeID),
		zap.String("category", string(in.Category)),
		zap.String("from", in.From.String()),
		zap.String("to", in.To.String()),
		zap.String("hours", in.Hours.String()),
		zap.String("actor", actor),
	}
	s.logger.Debug("create request requested", fields...)

	policy := s.Policies.Policy()
	now := s.Clock()

	var created Request
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetEmployee(ctx, in.EmployeeID); err != nil {
			return err
		}
		req, event, err := Create(in, policy.InitialStatus, actor, now)
		if err != nil {
			return err
		}
		if err := tx.InsertRequest(ctx, req); err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
		if err := tx.AppendAudit(ctx, event); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
		created = req
		return nil
	})
	if err != nil {
		s.logFailure("create request failed", err, fields...)
		return Request{}, err
	}

	s.logger.Info("create request success",
		zap.String("request_id", created.ID),
		zap.String("status", string(created.Status)),
	)
	return created, nil
}

func (s *RequestService) Approve(ctx context.Context, actor, requestID string) (Request, error) {
	return s.transition(ctx, requestID, Command{Action: ActionApprove, Actor: actor})
}

func (s *RequestService) Reject(ctx context.Context, actor, requestID string) (Request, error) {
	return s.transition(ctx, requestID, Command{Action: ActionReject, Actor: actor})
}

func (s *RequestService) Cancel(ctx context.Context, actor, requestID string) (Request, error) {
	return s.transition(ctx, requestID, Command{Action: ActionCancel, Actor: actor})
}

// Delete soft-deletes the request. The row stays for audit and every later
// action on it fails with ErrRecordLocked.
func (s *RequestService) Delete(ctx context.Context, actor, requestID string) (Request, error) {
	return s.transition(ctx, requestID, Command{Action: ActionDelete, Actor: actor})
}

func (s *RequestService) Edit(ctx context.Context, actor, requestID string, edit Edit) (Request, error) {
	return s.transition(ctx, requestID, Command{Action: ActionEdit, Actor: actor, Edit: &edit})
}

// transition loads the request, applies cmd and writes the result with a
// version check. A concurrent writer surfaces as ErrConcurrentModification.
func (s *RequestService) transition(ctx context.Context, requestID string, cmd Command) (Request, error) {
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("action", string(cmd.Action)),
		zap.String("actor", cmd.Actor),
	}
	s.logger.Debug("transition requested", fields...)

	cmd.Now = s.Clock()

	var next Request
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		var current *Request
		r, err := tx.GetRequest(ctx, requestID)
		switch {
		case err == nil:
			current = &r
		case errors.Is(err, generic.ErrNotFound):
		default:
			return err
		}

		updated, event, err := ApplyTransition(current, cmd)
		if err != nil {
			return err
		}
		if err := tx.UpdateRequest(ctx, updated, current.Version); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, event); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
		next = updated
		return nil
	})
	if err != nil {
		s.logFailure("transition failed", err, fields...)
		return Request{}, err
	}

	s.logger.Info("transition success", append(fields,
		zap.String("status", string(next.Status)),
		zap.Bool("deleted", next.Deleted),
		zap.Int("version", next.Version),
	)...)
	return next, nil
}

func (s *RequestService) GetRequest(ctx context.Context, id string) (Request, error) {
	var r Request
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		r, err = tx.GetRequest(ctx, id)
		return err
	})
	return r, err
}

// ListRequests returns every request of the employee, deleted ones included.
func (s *RequestService) ListRequests(ctx context.Context, employeeID string) ([]Request, error) {
	var out []Request
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetEmployee(ctx, employeeID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListRequests(ctx, employeeID)
		return err
	})
	return out, err
}

// AuditTrail returns the request's audit events, oldest first.
func (s *RequestService) AuditTrail(ctx context.Context, requestID string) ([]generic.AuditEvent, error) {
	var out []generic.AuditEvent
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetRequest(ctx, requestID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListAudit(ctx, AuditTable, requestID)
		return err
	})
	return out, err
}

// =============================================================================
// ENTITLEMENT, BALANCE & ALERTS
// =============================================================================

// EntitlementView is what an employee's leave page shows.
type EntitlementView struct {
	EmployeeID      string
	Tenure          Tenure
	Days            Entitlement
	Grant           generic.Date
	Expiry          Expiry
	DaysUntilExpiry int
	NextAnniversary generic.Date
}

func (s *RequestService) Entitlement(ctx context.Context, employeeID string) (EntitlementView, error) {
	policy := s.Policies.Policy()
	today := s.Clock.Today()

	e, err := s.GetEmployee(ctx, employeeID)
	if err != nil {
		return EntitlementView{}, err
	}

	tenure := e.TenureAt(today)
	grant := AlertGrantDate(e, policy, today)
	daysLeft, _ := DaysUntilExpiry(&grant, policy, today)
	return EntitlementView{
		EmployeeID:      e.ID,
		Tenure:          tenure,
		Days:            ComputeEntitlement(tenure, e.Suspended, policy.Allowances),
		Grant:           grant,
		Expiry:          ComputeExpiry(grant, policy),
		DaysUntilExpiry: daysLeft,
		NextAnniversary: NextAnniversary(e.HireDate, today),
	}, nil
}

// Balance re-aggregates one category from the employee's current requests.
func (s *RequestService) Balance(ctx context.Context, employeeID string, c Category) (Balance, error) {
	if !c.Valid() {
		return Balance{}, fmt.Errorf("%w: %q", generic.ErrInvalidCategory, c)
	}
	balances, err := s.balances(ctx, employeeID, []Category{c})
	if err != nil {
		return Balance{}, err
	}
	return balances[0], nil
}

// Balances returns every registered category, computed from one snapshot.
func (s *RequestService) Balances(ctx context.Context, employeeID string) ([]Balance, error) {
	return s.balances(ctx, employeeID, Categories())
}

func (s *RequestService) balances(ctx context.Context, employeeID string, categories []Category) ([]Balance, error) {
	policy := s.Policies.Policy()
	today := s.Clock.Today()

	var out []Balance
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		e, err := tx.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		requests, err := tx.ListRequests(ctx, employeeID)
		if err != nil {
			return err
		}
		out = make([]Balance, 0, len(categories))
		for _, c := range categories {
			out = append(out, balanceOf(e, requests, policy, today, c))
		}
		return nil
	})
	if err != nil {
		s.logFailure("balance failed", err, zap.String("employee_id", employeeID))
		return nil, err
	}
	return out, nil
}

func balanceOf(e Employee, requests []Request, p Policy, today generic.Date, c Category) Balance {
	ent := ComputeEntitlement(e.TenureAt(today), e.Suspended, p.Allowances)
	return Aggregate(c, e.EntitlementHours(c, ent), e.Adjustment(c), requests)
}

// ExpiryAlerts scans every employee for annual leave about to expire.
func (s *RequestService) ExpiryAlerts(ctx context.Context) ([]ExpiryAlert, error) {
	policy := s.Policies.Policy()
	today := s.Clock.Today()

	var alerts []ExpiryAlert
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		employees, err := tx.ListEmployees(ctx)
		if err != nil {
			return err
		}
		for _, e := range employees {
			if e.Suspended || !e.IsActive(today) {
				continue
			}
			requests, err := tx.ListRequests(ctx, e.ID)
			if err != nil {
				return fmt.Errorf("list requests for %s: %w", e.ID, err)
			}
			b := balanceOf(e, requests, policy, today, CategoryAnnual)
			if alert, ok := DeriveAlert(e, b, policy, today); ok {
				alerts = append(alerts, alert)
			}
		}
		return nil
	})
	if err != nil {
		s.logFailure("expiry alerts failed", err)
		return nil, err
	}

	s.logger.Debug("expiry alerts computed",
		zap.Int("alerts", len(alerts)),
		zap.Int("window_days", policy.AlertWindowDays),
	)
	return alerts, nil
}
