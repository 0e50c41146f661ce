package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/store/sqlite"
	"github.com/warp/leave-engine/timeoff"
	"go.uber.org/zap"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var now = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func saveEmployee(t *testing.T, store *sqlite.Store, e timeoff.Employee) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		return tx.SaveEmployee(ctx, e)
	}))
}

func pendingRequest(id, employeeID string) timeoff.Request {
	return timeoff.Request{
		ID:         id,
		EmployeeID: employeeID,
		Category:   timeoff.CategoryAnnual,
		From:       generic.NewDate(2025, time.March, 10),
		To:         generic.NewDate(2025, time.March, 12),
		Hours:      decimal.RequireFromString("23.5"),
		Note:       "spring break",
		Status:     timeoff.StatusPending,
		CreatedBy:  "alice",
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
}

// =============================================================================
// SCHEMA
// =============================================================================

func TestNew_MigratesToLatest(t *testing.T) {
	store := newTestStore(t)

	version, dirty, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(5), version)
	assert.False(t, dirty)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployee_RoundTrip(t *testing.T) {
	// GIVEN: An employee with every optional field set
	store := newTestStore(t)
	ctx := context.Background()
	end := generic.NewDate(2026, time.January, 31)
	grant := generic.NewDate(2025, time.January, 1)
	in := timeoff.Employee{
		ID:         "emp-1",
		Name:       "Ada",
		Department: "Engineering",
		HireDate:   generic.NewDate(2024, time.February, 29),
		EndDate:    &end,
		GrantDate:  &grant,
		Active:     true,
		Suspended:  true,
		EntitlementBase: map[timeoff.Category]generic.Amount{
			timeoff.CategoryAnnual: generic.NewAmountFromInt(20, generic.UnitDays),
		},
		JobLevel:          "L3",
		SalaryGrade:       "G7",
		BaseSalary:        decimal.RequireFromString("42000.50"),
		PositionAllowance: decimal.NewFromInt(3000),
		Adjustments: map[timeoff.Category]decimal.Decimal{
			timeoff.CategoryAnnual: decimal.NewFromInt(-16),
			timeoff.CategorySick:   decimal.RequireFromString("4.5"),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// WHEN: Saving and reading it back
	saveEmployee(t, store, in)

	var got timeoff.Employee
	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		var err error
		got, err = tx.GetEmployee(ctx, "emp-1")
		return err
	}))

	// THEN: Every field survives
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Department, got.Department)
	assert.Equal(t, "2024-02-29", got.HireDate.String())
	require.NotNil(t, got.EndDate)
	assert.Equal(t, "2026-01-31", got.EndDate.String())
	require.NotNil(t, got.GrantDate)
	assert.Equal(t, "2025-01-01", got.GrantDate.String())
	assert.True(t, got.Active)
	assert.True(t, got.Suspended)
	assert.True(t, got.CreatedAt.Equal(now))
	assert.Equal(t, "L3", got.JobLevel)
	assert.Equal(t, "G7", got.SalaryGrade)
	assert.True(t, got.BaseSalary.Equal(in.BaseSalary), got.BaseSalary.String())
	assert.True(t, got.PositionAllowance.Equal(in.PositionAllowance))

	base := got.EntitlementBase[timeoff.CategoryAnnual]
	assert.Equal(t, generic.UnitDays, base.Unit)
	assert.True(t, base.Value.Equal(decimal.NewFromInt(20)))
	assert.True(t, got.Adjustment(timeoff.CategoryAnnual).Equal(decimal.NewFromInt(-16)))
	assert.True(t, got.Adjustment(timeoff.CategorySick).Equal(decimal.RequireFromString("4.5")))
	assert.True(t, got.Adjustment(timeoff.CategoryPersonal).IsZero())
}

func TestEmployee_UpsertReplacesEntitlements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := timeoff.Employee{
		ID: "emp-1", HireDate: generic.NewDate(2020, time.June, 15), Active: true,
		Adjustments: map[timeoff.Category]decimal.Decimal{timeoff.CategoryAnnual: decimal.NewFromInt(8)},
		CreatedAt:   now, UpdatedAt: now,
	}
	saveEmployee(t, store, e)

	e.Name = "Renamed"
	e.Adjustments = map[timeoff.Category]decimal.Decimal{timeoff.CategorySick: decimal.NewFromInt(-8)}
	saveEmployee(t, store, e)

	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		employees, err := tx.ListEmployees(ctx)
		require.NoError(t, err)
		require.Len(t, employees, 1)
		got := employees[0]
		assert.Equal(t, "Renamed", got.Name)
		assert.True(t, got.Adjustment(timeoff.CategoryAnnual).IsZero())
		assert.True(t, got.Adjustment(timeoff.CategorySick).Equal(decimal.NewFromInt(-8)))
		return nil
	}))
}

func TestEmployee_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx timeoff.Tx) error {
		_, err := tx.GetEmployee(ctx, "ghost")
		return err
	})
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
}

// =============================================================================
// INSURANCES
// =============================================================================

func TestInsurance_UpsertAndList(t *testing.T) {
	// GIVEN: Two employees, one with an insurance record
	store := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"emp-2", "emp-1"} {
		saveEmployee(t, store, timeoff.Employee{
			ID: id, HireDate: generic.NewDate(2020, time.June, 15), Active: true, CreatedAt: now, UpdatedAt: now,
		})
	}
	in := timeoff.Insurance{
		EmployeeID:     "emp-2",
		PersonalLabour: decimal.NewFromInt(1050),
		PersonalHealth: decimal.RequireFromString("710.5"),
		CompanyLabour:  decimal.NewFromInt(3670),
		CompanyHealth:  decimal.NewFromInt(2215),
		Retirement:     decimal.NewFromInt(2520),
		Occupational:   decimal.NewFromInt(88),
		CompanyTotal:   decimal.NewFromInt(8493),
		Note:           "2025 bracket",
		UpdatedAt:      now,
	}
	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		return tx.SaveInsurance(ctx, in)
	}))

	// WHEN: Replacing it and reading back
	in.Note = "revised"
	in.PersonalHealth = decimal.NewFromInt(720)
	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		return tx.SaveInsurance(ctx, in)
	}))

	var got timeoff.Insurance
	var all []timeoff.Insurance
	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		var err error
		if got, err = tx.GetInsurance(ctx, "emp-2"); err != nil {
			return err
		}
		all, err = tx.ListInsurance(ctx)
		return err
	}))

	// THEN: One row holds the latest values
	assert.Equal(t, "revised", got.Note)
	assert.True(t, got.PersonalHealth.Equal(decimal.NewFromInt(720)))
	assert.True(t, got.Retirement.Equal(decimal.NewFromInt(2520)))
	assert.True(t, got.CompanyTotal.Equal(decimal.NewFromInt(8493)))
	assert.True(t, got.UpdatedAt.Equal(now))
	require.Len(t, all, 1)
	assert.Equal(t, "emp-2", all[0].EmployeeID)
}

func TestInsurance_NotFoundAndUnknownEmployee(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx timeoff.Tx) error {
		_, err := tx.GetInsurance(ctx, "ghost")
		return err
	})
	assert.ErrorIs(t, err, generic.ErrInsuranceNotFound)

	// The foreign key rejects a record for an unknown employee.
	err = store.WithTx(ctx, func(tx timeoff.Tx) error {
		return tx.SaveInsurance(ctx, timeoff.Insurance{EmployeeID: "ghost", UpdatedAt: now})
	})
	assert.Error(t, err)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func TestRequest_RoundTripAndVersionCheck(t *testing.T) {
	// GIVEN: A stored pending request
	store := newTestStore(t)
	ctx := context.Background()
	saveEmployee(t, store, timeoff.Employee{ID: "emp-1", HireDate: generic.NewDate(2020, 6, 15), Active: true, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		return tx.InsertRequest(ctx, pendingRequest("r-1", "emp-1"))
	}))

	// WHEN: Approving it at version 1
	approvedAt := now.Add(time.Hour)
	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		r, err := tx.GetRequest(ctx, "r-1")
		if err != nil {
			return err
		}
		assert.True(t, r.Hours.Equal(decimal.RequireFromString("23.5")))
		assert.Nil(t, r.ApprovedAt)

		r.Status = timeoff.StatusApproved
		r.ApprovedBy = "mgr"
		r.ApprovedAt = &approvedAt
		r.UpdatedAt = approvedAt
		r.Version = 2
		return tx.UpdateRequest(ctx, r, 1)
	}))

	// THEN: The update is stored
	var got timeoff.Request
	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		var err error
		got, err = tx.GetRequest(ctx, "r-1")
		return err
	}))
	assert.Equal(t, timeoff.StatusApproved, got.Status)
	assert.Equal(t, "mgr", got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, got.ApprovedAt.Equal(approvedAt))
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "2025-03-12", got.To.String())
	assert.Equal(t, "alice", got.CreatedBy)

	// AND: A writer still holding version 1 is refused
	err := store.WithTx(ctx, func(tx timeoff.Tx) error {
		stale := got
		stale.Status = timeoff.StatusCanceled
		stale.Version = 2
		return tx.UpdateRequest(ctx, stale, 1)
	})
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)

	err = store.WithTx(ctx, func(tx timeoff.Tx) error {
		return tx.UpdateRequest(ctx, pendingRequest("missing", "emp-1"), 1)
	})
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestRequest_RollbackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveEmployee(t, store, timeoff.Employee{ID: "emp-1", HireDate: generic.NewDate(2020, 6, 15), Active: true, CreatedAt: now, UpdatedAt: now})

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx timeoff.Tx) error {
		if err := tx.InsertRequest(ctx, pendingRequest("r-1", "emp-1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.WithTx(ctx, func(tx timeoff.Tx) error {
		_, err := tx.GetRequest(ctx, "r-1")
		return err
	})
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestRequest_ListKeepsInsertionOrderAndDeletedRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveEmployee(t, store, timeoff.Employee{ID: "emp-1", HireDate: generic.NewDate(2020, 6, 15), Active: true, CreatedAt: now, UpdatedAt: now})

	deleted := pendingRequest("r-a", "emp-1")
	deleted.Deleted = true
	deletedAt := now
	deleted.DeletedAt = &deletedAt

	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		for _, r := range []timeoff.Request{pendingRequest("r-z", "emp-1"), deleted} {
			if err := tx.InsertRequest(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		requests, err := tx.ListRequests(ctx, "emp-1")
		require.NoError(t, err)
		require.Len(t, requests, 2)
		assert.Equal(t, "r-z", requests[0].ID)
		assert.Equal(t, "r-a", requests[1].ID)
		assert.True(t, requests[1].Deleted)
		require.NotNil(t, requests[1].DeletedAt)
		return nil
	}))
}

func TestRequest_UnknownEmployeeRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx timeoff.Tx) error {
		return tx.InsertRequest(ctx, pendingRequest("r-1", "ghost"))
	})
	assert.Error(t, err, "foreign keys are enforced")
}

// =============================================================================
// AUDIT
// =============================================================================

func TestAudit_AppendAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	create := generic.NewAuditEvent(timeoff.AuditTable, "r-1", "create", nil,
		generic.Snapshot{"status": "pending", "hours": "8"}, "alice", now)
	approve := generic.NewAuditEvent(timeoff.AuditTable, "r-1", "approve",
		generic.Snapshot{"status": "pending"}, generic.Snapshot{"status": "approved"}, "mgr", now.Add(time.Minute))
	other := generic.NewAuditEvent(timeoff.AuditTable, "r-2", "create", nil, generic.Snapshot{}, "bob", now)

	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		for _, e := range []generic.AuditEvent{create, approve, other} {
			if err := tx.AppendAudit(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	var events []generic.AuditEvent
	require.NoError(t, store.WithTx(ctx, func(tx timeoff.Tx) error {
		var err error
		events, err = tx.ListAudit(ctx, timeoff.AuditTable, "r-1")
		return err
	}))

	require.Len(t, events, 2)
	assert.Equal(t, "create", events[0].Action)
	assert.Nil(t, events[0].Before)
	assert.Equal(t, "pending", events[0].After["status"])
	assert.Equal(t, "approve", events[1].Action)
	assert.Equal(t, "mgr", events[1].Actor)
	assert.Equal(t, "approved", events[1].After["status"])
	assert.True(t, events[1].At.Equal(now.Add(time.Minute)))
}

// =============================================================================
// SERVICE OVER SQLITE
// =============================================================================

func TestService_LifecycleOverSQLite(t *testing.T) {
	// GIVEN: The request service backed by SQLite with a review policy
	store := newTestStore(t)
	ctx := context.Background()
	policy := timeoff.DefaultPolicy()
	policy.InitialStatus = timeoff.StatusPending
	svc := timeoff.NewRequestService(store, timeoff.StaticPolicy(policy),
		generic.FixedClock(time.Date(2024, time.October, 20, 9, 0, 0, 0, time.UTC)), zap.NewNop())

	_, err := svc.RegisterEmployee(ctx, "hr", timeoff.Employee{
		ID: "emp-1", Name: "Ada", HireDate: generic.NewDate(2019, time.January, 1), Active: true,
	})
	require.NoError(t, err)
	_, err = svc.SetAdjustment(ctx, "hr", "emp-1", timeoff.CategoryAnnual, decimal.NewFromInt(-16))
	require.NoError(t, err)

	// WHEN: A 40h request is filed, approved and approved again
	req, err := svc.CreateRequest(ctx, "emp-1", timeoff.CreateInput{
		EmployeeID: "emp-1", Category: timeoff.CategoryAnnual,
		From: generic.NewDate(2024, time.November, 4), To: generic.NewDate(2024, time.November, 8),
		Hours: decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, "mgr", req.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, "mgr", req.ID)

	// THEN: The second approve conflicts and the balance counts the request once
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)

	b, err := svc.Balance(ctx, "emp-1", timeoff.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, b.Remaining.Value.Equal(decimal.NewFromInt(64)), "120 - 16 - 40")

	events, err := svc.AuditTrail(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "approve", events[1].Action)

	alerts, err := svc.ExpiryAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerts, "cycle 2024-01-01..2024-12-31 ends in 72 days")
}
