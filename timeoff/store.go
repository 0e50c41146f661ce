/*
store.go - Persistence contract consumed by RequestService

PURPOSE:
  The engine is pure computation; the Store is the collaborator that holds
  employees, leave requests, insurance records and the audit trail. RequestService runs every
  operation inside one WithTx call, so balance aggregation always reads a
  consistent snapshot of one employee's requests.

CONTRACT:
  - Requests are never physically removed; soft-delete is an update
  - UpdateRequest is versioned: it succeeds only when the stored version
    equals expectedVersion, else ErrConcurrentModification
  - Audit events are append-only and written in the same transaction as
    the change they describe
  - A WithTx callback that returns an error rolls back every write

IMPLEMENTATIONS:
  - store/memory: mutex + snapshot/restore
  - store/sqlite: SQL transactions over a single connection
*/
package timeoff

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// Store opens transactions.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes available inside one transaction.
type Tx interface {
	// GetEmployee returns generic.ErrEmployeeNotFound for an unknown id.
	GetEmployee(ctx context.Context, id string) (Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	// SaveEmployee inserts or replaces the employee row.
	SaveEmployee(ctx context.Context, e Employee) error

	// GetRequest returns generic.ErrNotFound for an unknown id. Soft-deleted
	// requests are returned with Deleted set.
	GetRequest(ctx context.Context, id string) (Request, error)
	// ListRequests returns every request of the employee, deleted ones
	// included, ordered by creation.
	ListRequests(ctx context.Context, employeeID string) ([]Request, error)
	InsertRequest(ctx context.Context, r Request) error
	UpdateRequest(ctx context.Context, r Request, expectedVersion int) error

	// GetInsurance returns generic.ErrInsuranceNotFound when the employee
	// has no record.
	GetInsurance(ctx context.Context, employeeID string) (Insurance, error)
	// ListInsurance returns every stored record ordered by employee id.
	ListInsurance(ctx context.Context) ([]Insurance, error)
	// SaveInsurance inserts or replaces the employee's record.
	SaveInsurance(ctx context.Context, i Insurance) error

	AppendAudit(ctx context.Context, e generic.AuditEvent) error
	// ListAudit returns the events of one subject, oldest first.
	ListAudit(ctx context.Context, table, subjectID string) ([]generic.AuditEvent, error)
}
