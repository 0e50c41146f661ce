/*
audit.go - Append-only audit trail

PURPOSE:
  Every state-changing operation records WHO did WHAT to WHICH row, with
  the row's state before and after. Like the request rows themselves,
  audit events are never updated or deleted.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. SAME TRANSACTION: the event is written with the change it describes
  3. ONE EVENT PER TRANSITION: a rejected transition writes nothing

EXAMPLE:
  An approve produces:
    AuditEvent{
        SubjectTable: "leave_requests",
        SubjectID:    "9f1c...",
        Action:       "approve",
        Before:       {"status": "pending", ...},
        After:        {"status": "approved", "approved_by": "mgr-1", ...},
        Actor:        "mgr-1",
    }

SEE ALSO:
  - timeoff/lifecycle.go: builds events for request transitions
  - store/sqlite/sqlite.go: audit_events table
*/
package generic

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is a flat, JSON-friendly view of a row.
type Snapshot map[string]any

// AuditEvent records one state change.
type AuditEvent struct {
	ID           string
	SubjectTable string
	SubjectID    string
	Action       string
	Before       Snapshot // nil for creations
	After        Snapshot
	Actor        string
	At           time.Time
}

// NewAuditEvent stamps a fresh id.
func NewAuditEvent(table, subjectID, action string, before, after Snapshot, actor string, at time.Time) AuditEvent {
	return AuditEvent{
		ID:           uuid.NewString(),
		SubjectTable: table,
		SubjectID:    subjectID,
		Action:       action,
		Before:       before,
		After:        after,
		Actor:        actor,
		At:           at,
	}
}
