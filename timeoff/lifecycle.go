/*
lifecycle.go - Leave request state machine

STATES:
  pending, approved, rejected, canceled
  deleted is an orthogonal soft-delete bit, compatible with any status

TRANSITIONS:
  ┌──────────────────────────────────────────────────────────────┐
  │                                                              │
  │   create ──▶ pending ──approve──▶ approved ──cancel──▶ canceled
  │     │           │                    ▲                       │
  │     │           ├──reject──▶ rejected│                       │
  │     │           └──cancel──▶ canceled│                       │
  │     └────────── (auto-approval) ─────┘                       │
  │                                                              │
  │   delete: any status ──▶ deleted=true (irreversible)         │
  │   edit:   any status while not deleted; approved edits are   │
  │           re-stamped with the editor as approver             │
  └──────────────────────────────────────────────────────────────┘

FAILURES:
  nil request                      -> ErrNotFound
  deleted request, any action      -> ErrRecordLocked
  action invalid from the status   -> TransitionError (ErrInvalidTransition)
  approve on an approved request   -> TransitionError; the approver stamp is kept

Every successful transition returns exactly one AuditEvent. ApplyTransition
works on values: the caller's request is never mutated, and nothing is
retried.
*/
package timeoff

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// AuditTable is the subject table recorded on request audit events.
const AuditTable = "leave_requests"

// Request is one leave request row.
type Request struct {
	ID         string
	EmployeeID string
	Category   Category
	From       generic.Date
	To         generic.Date
	Hours      decimal.Decimal // canonical quantity
	Note       string
	Status     Status
	Deleted    bool
	DeletedAt  *time.Time

	CreatedBy  string
	CreatedAt  time.Time
	ApprovedBy string // approver, or rejecter for rejected requests
	ApprovedAt *time.Time
	UpdatedAt  time.Time

	// Version increments on every transition; stores use it for
	// optimistic concurrency.
	Version int
}

// CountsTowardBalance is true iff status is approved and the row is not deleted.
func (r Request) CountsTowardBalance() bool {
	return r.Status == StatusApproved && !r.Deleted
}

// Span returns the requested date range.
func (r Request) Span() generic.Period {
	return generic.Period{Start: r.From, End: r.To}
}

// Snapshot is the audit view of the request.
func (r Request) Snapshot() generic.Snapshot {
	s := generic.Snapshot{
		"id":          r.ID,
		"employee_id": r.EmployeeID,
		"category":    string(r.Category),
		"from":        r.From.String(),
		"to":          r.To.String(),
		"hours":       r.Hours.String(),
		"note":        r.Note,
		"status":      string(r.Status),
		"deleted":     r.Deleted,
		"version":     r.Version,
	}
	if r.ApprovedBy != "" {
		s["approved_by"] = r.ApprovedBy
	}
	if r.ApprovedAt != nil {
		s["approved_at"] = r.ApprovedAt.UTC().Format(time.RFC3339)
	}
	if r.DeletedAt != nil {
		s["deleted_at"] = r.DeletedAt.UTC().Format(time.RFC3339)
	}
	return s
}

// =============================================================================
// CREATE
// =============================================================================

// CreateInput is what a requester supplies.
type CreateInput struct {
	EmployeeID string
	Category   Category
	From       generic.Date
	To         generic.Date
	Hours      decimal.Decimal
	Note       string
}

// Create builds a new request in initial (pending or approved). Auto-approved
// requests are stamped with the creator as approver.
func Create(in CreateInput, initial Status, actor string, now time.Time) (Request, generic.AuditEvent, error) {
	if initial != StatusPending && initial != StatusApproved {
		return Request{}, generic.AuditEvent{}, &TransitionError{Action: ActionCreate, To: initial}
	}
	if strings.TrimSpace(in.EmployeeID) == "" {
		return Request{}, generic.AuditEvent{}, generic.ErrEmployeeNotFound
	}
	if !in.Category.Valid() {
		return Request{}, generic.AuditEvent{}, fmt.Errorf("%w: %q", generic.ErrInvalidCategory, in.Category)
	}
	if _, err := generic.NewPeriod(in.From, in.To); err != nil {
		return Request{}, generic.AuditEvent{}, err
	}
	if err := ValidateRequestHours(in.Hours); err != nil {
		return Request{}, generic.AuditEvent{}, err
	}

	req := Request{
		ID:         uuid.NewString(),
		EmployeeID: in.EmployeeID,
		Category:   in.Category,
		From:       in.From,
		To:         in.To,
		Hours:      in.Hours,
		Note:       in.Note,
		Status:     initial,
		CreatedBy:  actor,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
	if initial == StatusApproved {
		stamp(&req, actor, now)
	}

	event := generic.NewAuditEvent(AuditTable, req.ID, string(ActionCreate), nil, req.Snapshot(), actor, now)
	return req, event, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Edit carries the mutable fields; nil fields are left unchanged.
type Edit struct {
	From  *generic.Date
	To    *generic.Date
	Hours *decimal.Decimal
	Note  *string
}

// Command is one lifecycle action performed by Actor at Now.
type Command struct {
	Action Action
	Actor  string
	Now    time.Time
	Edit   *Edit // ActionEdit only
}

// TransitionError reports an action that is not valid from the current status.
type TransitionError struct {
	RequestID string
	Action    Action
	From      Status
	To        Status // set for create with an unsupported initial status
}

func (e *TransitionError) Error() string {
	if e.Action == ActionCreate {
		return fmt.Sprintf("%s: cannot create request as %q", generic.ErrInvalidTransition, e.To)
	}
	return fmt.Sprintf("%s: cannot %s request %s in status %s",
		generic.ErrInvalidTransition, e.Action, e.RequestID, e.From)
}

func (e *TransitionError) Unwrap() error {
	return generic.ErrInvalidTransition
}

// ApplyTransition validates cmd against current and returns the new request
// state plus its audit event.
func ApplyTransition(current *Request, cmd Command) (Request, generic.AuditEvent, error) {
	if current == nil {
		return Request{}, generic.AuditEvent{}, generic.ErrNotFound
	}
	if current.Deleted {
		return Request{}, generic.AuditEvent{}, fmt.Errorf("%w: %s", generic.ErrRecordLocked, current.ID)
	}

	next := *current
	invalid := &TransitionError{RequestID: current.ID, Action: cmd.Action, From: current.Status}

	switch cmd.Action {
	case ActionApprove:
		if current.Status != StatusPending {
			return Request{}, generic.AuditEvent{}, invalid
		}
		next.Status = StatusApproved
		stamp(&next, cmd.Actor, cmd.Now)

	case ActionReject:
		if current.Status != StatusPending {
			return Request{}, generic.AuditEvent{}, invalid
		}
		next.Status = StatusRejected
		stamp(&next, cmd.Actor, cmd.Now)

	case ActionCancel:
		if current.Status.Terminal() {
			return Request{}, generic.AuditEvent{}, invalid
		}
		next.Status = StatusCanceled

	case ActionDelete:
		deletedAt := cmd.Now
		next.Deleted = true
		next.DeletedAt = &deletedAt

	case ActionEdit:
		if cmd.Edit == nil {
			return Request{}, generic.AuditEvent{}, invalid
		}
		if err := applyEdit(&next, *cmd.Edit); err != nil {
			return Request{}, generic.AuditEvent{}, err
		}
		if next.Status == StatusApproved {
			stamp(&next, cmd.Actor, cmd.Now)
		}

	default:
		return Request{}, generic.AuditEvent{}, invalid
	}

	next.UpdatedAt = cmd.Now
	next.Version = current.Version + 1

	event := generic.NewAuditEvent(AuditTable, next.ID, string(cmd.Action),
		current.Snapshot(), next.Snapshot(), cmd.Actor, cmd.Now)
	return next, event, nil
}

func applyEdit(r *Request, e Edit) error {
	if e.From != nil {
		r.From = *e.From
	}
	if e.To != nil {
		r.To = *e.To
	}
	if _, err := generic.NewPeriod(r.From, r.To); err != nil {
		return err
	}
	if e.Hours != nil {
		if err := ValidateRequestHours(*e.Hours); err != nil {
			return err
		}
		r.Hours = *e.Hours
	}
	if e.Note != nil {
		r.Note = *e.Note
	}
	return nil
}

func stamp(r *Request, actor string, at time.Time) {
	approvedAt := at
	r.ApprovedBy = actor
	r.ApprovedAt = &approvedAt
}
