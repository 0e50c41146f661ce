/*
Package sqlite provides a SQLite-backed implementation of timeoff.Store.

KEY TABLES:
  employees:             Employee records (hire/end/grant dates, flags)
  employee_entitlements: Per-category entitlement override and adjustment
  insurances:            Monthly insurance contributions, one row per employee
  leave_requests:        Requests; soft-deleted rows stay for audit
  audit_events:          Append-only audit trail

MIGRATION:
  One canonical schema built by versioned steps in migrations/, embedded
  in the binary and applied with golang-migrate on New(). The store only
  reads and writes the final shape.

CONCURRENCY:
  The pool is capped at one connection, so transactions are serialized
  and ":memory:" databases survive. UpdateRequest adds a version check on
  top, reporting ErrConcurrentModification when a row moved underneath.

STORAGE FORMATS:
  dates      TEXT "2006-01-02"
  timestamps TEXT RFC 3339 with nanoseconds, UTC
  hours      TEXT decimal string, never REAL
  snapshots  TEXT JSON

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := timeoff.NewRequestService(store, policies, generic.SystemClock, logger)

SEE ALSO:
  - timeoff/store.go: the Store and Tx contract
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

//go:embed migrations/*.sql
var migrations embed.FS

const timeLayout = time.RFC3339Nano

// Store implements timeoff.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New opens the database at dbPath and migrates it to the latest schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion reports the applied migration version.
func (s *Store) SchemaVersion() (uint, bool, error) {
	m, err := newMigrator(s.db)
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}

func migrateUp(db *sql.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	// m.Close would close db as well; the store keeps using it.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "sqlite3", driver)
}

// =============================================================================
// TRANSACTIONAL STORE (timeoff.Store interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx timeoff.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, department, hire_date, end_date, grant_date,
	active, suspended, job_level, salary_grade, base_salary, position_allowance,
	created_at, updated_at`

func (ts *txStore) GetEmployee(ctx context.Context, id string) (timeoff.Employee, error) {
	row := ts.tx.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return timeoff.Employee{}, fmt.Errorf("%w: %s", generic.ErrEmployeeNotFound, id)
	}
	if err != nil {
		return timeoff.Employee{}, err
	}
	if err := ts.loadEntitlements(ctx, &e); err != nil {
		return timeoff.Employee{}, err
	}
	return e, nil
}

func (ts *txStore) ListEmployees(ctx context.Context) ([]timeoff.Employee, error) {
	rows, err := ts.tx.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var employees []timeoff.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		employees = append(employees, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The single connection is free again once rows is closed.
	for i := range employees {
		if err := ts.loadEntitlements(ctx, &employees[i]); err != nil {
			return nil, err
		}
	}
	return employees, nil
}

func (ts *txStore) SaveEmployee(ctx context.Context, e timeoff.Employee) error {
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			department = excluded.department,
			hire_date = excluded.hire_date,
			end_date = excluded.end_date,
			grant_date = excluded.grant_date,
			active = excluded.active,
			suspended = excluded.suspended,
			job_level = excluded.job_level,
			salary_grade = excluded.salary_grade,
			base_salary = excluded.base_salary,
			position_allowance = excluded.position_allowance,
			updated_at = excluded.updated_at
	`,
		e.ID, e.Name, e.Department, e.HireDate.String(), nullDate(e.EndDate), nullDate(e.GrantDate),
		e.Active, e.Suspended, e.JobLevel, e.SalaryGrade, e.BaseSalary.String(), e.PositionAllowance.String(),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert employee %s: %w", e.ID, err)
	}

	if _, err := ts.tx.ExecContext(ctx, `DELETE FROM employee_entitlements WHERE employee_id = ?`, e.ID); err != nil {
		return err
	}

	categories := make(map[timeoff.Category]struct{})
	for c := range e.EntitlementBase {
		categories[c] = struct{}{}
	}
	for c := range e.Adjustments {
		categories[c] = struct{}{}
	}
	for c := range categories {
		var baseValue, baseUnit sql.NullString
		if base, ok := e.EntitlementBase[c]; ok {
			baseValue = sql.NullString{String: base.Value.String(), Valid: true}
			baseUnit = sql.NullString{String: string(base.Unit), Valid: true}
		}
		_, err := ts.tx.ExecContext(ctx, `
			INSERT INTO employee_entitlements (employee_id, category, base_value, base_unit, adjustment_hours)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID, string(c), baseValue, baseUnit, e.Adjustment(c).String())
		if err != nil {
			return fmt.Errorf("save entitlement %s/%s: %w", e.ID, c, err)
		}
	}
	return nil
}

func (ts *txStore) loadEntitlements(ctx context.Context, e *timeoff.Employee) error {
	rows, err := ts.tx.QueryContext(ctx, `
		SELECT category, base_value, base_unit, adjustment_hours
		FROM employee_entitlements WHERE employee_id = ?
	`, e.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var category, adjustment string
		var baseValue, baseUnit sql.NullString
		if err := rows.Scan(&category, &baseValue, &baseUnit, &adjustment); err != nil {
			return err
		}
		c := timeoff.Category(category)

		if baseValue.Valid {
			value, err := decimal.NewFromString(baseValue.String)
			if err != nil {
				return fmt.Errorf("entitlement base %s/%s: %w", e.ID, c, err)
			}
			unit, err := generic.ParseUnit(baseUnit.String)
			if err != nil {
				return err
			}
			if e.EntitlementBase == nil {
				e.EntitlementBase = make(map[timeoff.Category]generic.Amount)
			}
			e.EntitlementBase[c] = generic.NewAmount(value, unit)
		}

		adj, err := decimal.NewFromString(adjustment)
		if err != nil {
			return fmt.Errorf("adjustment %s/%s: %w", e.ID, c, err)
		}
		if !adj.IsZero() {
			if e.Adjustments == nil {
				e.Adjustments = make(map[timeoff.Category]decimal.Decimal)
			}
			e.Adjustments[c] = adj
		}
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (timeoff.Employee, error) {
	var e timeoff.Employee
	var hireDate, baseSalary, allowance, createdAt, updatedAt string
	var endDate, grantDate sql.NullString
	if err := row.Scan(
		&e.ID, &e.Name, &e.Department, &hireDate, &endDate, &grantDate,
		&e.Active, &e.Suspended, &e.JobLevel, &e.SalaryGrade, &baseSalary, &allowance,
		&createdAt, &updatedAt,
	); err != nil {
		return timeoff.Employee{}, err
	}

	var err error
	if e.HireDate, err = generic.ParseDate(hireDate); err != nil {
		return timeoff.Employee{}, err
	}
	if e.EndDate, err = parseNullDate(endDate); err != nil {
		return timeoff.Employee{}, err
	}
	if e.GrantDate, err = parseNullDate(grantDate); err != nil {
		return timeoff.Employee{}, err
	}
	if e.BaseSalary, err = decimal.NewFromString(baseSalary); err != nil {
		return timeoff.Employee{}, fmt.Errorf("employee %s base salary: %w", e.ID, err)
	}
	if e.PositionAllowance, err = decimal.NewFromString(allowance); err != nil {
		return timeoff.Employee{}, fmt.Errorf("employee %s position allowance: %w", e.ID, err)
	}
	e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	e.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return e, nil
}

// =============================================================================
// INSURANCES
// =============================================================================

const insuranceColumns = `employee_id, personal_labour, personal_health, company_labour,
	company_health, retirement6, occupational_ins, total_company, note, updated_at`

func (ts *txStore) GetInsurance(ctx context.Context, employeeID string) (timeoff.Insurance, error) {
	row := ts.tx.QueryRowContext(ctx, `SELECT `+insuranceColumns+` FROM insurances WHERE employee_id = ?`, employeeID)
	i, err := scanInsurance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return timeoff.Insurance{}, fmt.Errorf("%w: %s", generic.ErrInsuranceNotFound, employeeID)
	}
	return i, err
}

func (ts *txStore) ListInsurance(ctx context.Context) ([]timeoff.Insurance, error) {
	rows, err := ts.tx.QueryContext(ctx, `SELECT `+insuranceColumns+` FROM insurances ORDER BY employee_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []timeoff.Insurance
	for rows.Next() {
		i, err := scanInsurance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (ts *txStore) SaveInsurance(ctx context.Context, i timeoff.Insurance) error {
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO insurances (`+insuranceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			personal_labour = excluded.personal_labour,
			personal_health = excluded.personal_health,
			company_labour = excluded.company_labour,
			company_health = excluded.company_health,
			retirement6 = excluded.retirement6,
			occupational_ins = excluded.occupational_ins,
			total_company = excluded.total_company,
			note = excluded.note,
			updated_at = excluded.updated_at
	`,
		i.EmployeeID, i.PersonalLabour.String(), i.PersonalHealth.String(), i.CompanyLabour.String(),
		i.CompanyHealth.String(), i.Retirement.String(), i.Occupational.String(), i.CompanyTotal.String(),
		i.Note, formatTime(i.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert insurance %s: %w", i.EmployeeID, err)
	}
	return nil
}

func scanInsurance(row scanner) (timeoff.Insurance, error) {
	var i timeoff.Insurance
	var amounts [7]string
	var updatedAt string
	if err := row.Scan(
		&i.EmployeeID, &amounts[0], &amounts[1], &amounts[2],
		&amounts[3], &amounts[4], &amounts[5], &amounts[6], &i.Note, &updatedAt,
	); err != nil {
		return timeoff.Insurance{}, err
	}

	targets := []*decimal.Decimal{
		&i.PersonalLabour, &i.PersonalHealth, &i.CompanyLabour,
		&i.CompanyHealth, &i.Retirement, &i.Occupational, &i.CompanyTotal,
	}
	for n, raw := range amounts {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return timeoff.Insurance{}, fmt.Errorf("insurance %s: %w", i.EmployeeID, err)
		}
		*targets[n] = v
	}
	i.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return i, nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, category, from_date, to_date, hours, note,
	status, deleted, deleted_at, created_by, created_at, approved_by, approved_at,
	updated_at, version`

func (ts *txStore) GetRequest(ctx context.Context, id string) (timeoff.Request, error) {
	row := ts.tx.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return timeoff.Request{}, fmt.Errorf("%w: %s", generic.ErrNotFound, id)
	}
	return r, err
}

func (ts *txStore) ListRequests(ctx context.Context, employeeID string) ([]timeoff.Request, error) {
	rows, err := ts.tx.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM leave_requests
		WHERE employee_id = ?
		ORDER BY rowid ASC
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []timeoff.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (ts *txStore) InsertRequest(ctx context.Context, r timeoff.Request) error {
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO leave_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.EmployeeID, string(r.Category), r.From.String(), r.To.String(), r.Hours.String(), r.Note,
		string(r.Status), r.Deleted, nullTime(r.DeletedAt), r.CreatedBy, formatTime(r.CreatedAt),
		nullString(r.ApprovedBy), nullTime(r.ApprovedAt), formatTime(r.UpdatedAt), r.Version,
	)
	if err != nil {
		return fmt.Errorf("insert request %s: %w", r.ID, err)
	}
	return nil
}

func (ts *txStore) UpdateRequest(ctx context.Context, r timeoff.Request, expectedVersion int) error {
	res, err := ts.tx.ExecContext(ctx, `
		UPDATE leave_requests SET
			from_date = ?, to_date = ?, hours = ?, note = ?, status = ?,
			deleted = ?, deleted_at = ?, approved_by = ?, approved_at = ?,
			updated_at = ?, version = ?
		WHERE id = ? AND version = ?
	`,
		r.From.String(), r.To.String(), r.Hours.String(), r.Note, string(r.Status),
		r.Deleted, nullTime(r.DeletedAt), nullString(r.ApprovedBy), nullTime(r.ApprovedAt),
		formatTime(r.UpdatedAt), r.Version,
		r.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update request %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: either the row is gone or its version moved.
	var exists int
	err = ts.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM leave_requests WHERE id = ?`, r.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", generic.ErrNotFound, r.ID)
	}
	return fmt.Errorf("%w: request %s, expected version %d", generic.ErrConcurrentModification, r.ID, expectedVersion)
}

func scanRequest(row scanner) (timeoff.Request, error) {
	var r timeoff.Request
	var category, fromDate, toDate, hours, status, createdAt, updatedAt string
	var deletedAt, approvedBy, approvedAt sql.NullString
	if err := row.Scan(
		&r.ID, &r.EmployeeID, &category, &fromDate, &toDate, &hours, &r.Note,
		&status, &r.Deleted, &deletedAt, &r.CreatedBy, &createdAt, &approvedBy, &approvedAt,
		&updatedAt, &r.Version,
	); err != nil {
		return timeoff.Request{}, err
	}

	var err error
	r.Category = timeoff.Category(category)
	r.Status = timeoff.Status(status)
	if r.From, err = generic.ParseDate(fromDate); err != nil {
		return timeoff.Request{}, err
	}
	if r.To, err = generic.ParseDate(toDate); err != nil {
		return timeoff.Request{}, err
	}
	if r.Hours, err = decimal.NewFromString(hours); err != nil {
		return timeoff.Request{}, fmt.Errorf("request %s hours: %w", r.ID, err)
	}
	r.ApprovedBy = approvedBy.String
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	r.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	r.DeletedAt = parseNullTime(deletedAt)
	r.ApprovedAt = parseNullTime(approvedAt)
	return r, nil
}

// =============================================================================
// AUDIT EVENTS (append-only)
// =============================================================================

func (ts *txStore) AppendAudit(ctx context.Context, e generic.AuditEvent) error {
	before, err := marshalSnapshot(e.Before)
	if err != nil {
		return err
	}
	after, err := marshalSnapshot(e.After)
	if err != nil {
		return err
	}
	_, err = ts.tx.ExecContext(ctx, `
		INSERT INTO audit_events (id, subject_table, subject_id, action, before_json, after_json, actor, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.SubjectTable, e.SubjectID, e.Action, before, after, e.Actor, formatTime(e.At))
	if err != nil {
		return fmt.Errorf("append audit %s: %w", e.ID, err)
	}
	return nil
}

func (ts *txStore) ListAudit(ctx context.Context, table, subjectID string) ([]generic.AuditEvent, error) {
	rows, err := ts.tx.QueryContext(ctx, `
		SELECT id, subject_table, subject_id, action, before_json, after_json, actor, at
		FROM audit_events
		WHERE subject_table = ? AND subject_id = ?
		ORDER BY rowid ASC
	`, table, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []generic.AuditEvent
	for rows.Next() {
		var e generic.AuditEvent
		var before, after sql.NullString
		var at string
		if err := rows.Scan(&e.ID, &e.SubjectTable, &e.SubjectID, &e.Action, &before, &after, &e.Actor, &at); err != nil {
			return nil, err
		}
		if e.Before, err = unmarshalSnapshot(before); err != nil {
			return nil, err
		}
		if e.After, err = unmarshalSnapshot(after); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(timeLayout, at)
		events = append(events, e)
	}
	return events, rows.Err()
}

func marshalSnapshot(s generic.Snapshot) (sql.NullString, error) {
	if s == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalSnapshot(ns sql.NullString) (generic.Snapshot, error) {
	if !ns.Valid {
		return nil, nil
	}
	var s generic.Snapshot
	if err := json.Unmarshal([]byte(ns.String), &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return s, nil
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) (*generic.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := generic.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
