package timeoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	t0 = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
)

func validInput() timeoff.CreateInput {
	return timeoff.CreateInput{
		EmployeeID: "emp-1",
		Category:   timeoff.CategoryAnnual,
		From:       d("2025-03-10"),
		To:         d("2025-03-12"),
		Hours:      h("24"),
		Note:       "spring break",
	}
}

func pendingRequest(t *testing.T) timeoff.Request {
	t.Helper()
	req, _, err := timeoff.Create(validInput(), timeoff.StatusPending, "alice", t0)
	require.NoError(t, err)
	return req
}

func apply(t *testing.T, r timeoff.Request, action timeoff.Action, actor string, at time.Time) timeoff.Request {
	t.Helper()
	next, _, err := timeoff.ApplyTransition(&r, timeoff.Command{Action: action, Actor: actor, Now: at})
	require.NoError(t, err)
	return next
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_Pending(t *testing.T) {
	req, event, err := timeoff.Create(validInput(), timeoff.StatusPending, "alice", t0)
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, timeoff.StatusPending, req.Status)
	assert.Equal(t, 1, req.Version)
	assert.Equal(t, "alice", req.CreatedBy)
	assert.Empty(t, req.ApprovedBy)
	assert.Nil(t, req.ApprovedAt)
	assert.False(t, req.Deleted)

	assert.Equal(t, timeoff.AuditTable, event.SubjectTable)
	assert.Equal(t, req.ID, event.SubjectID)
	assert.Equal(t, string(timeoff.ActionCreate), event.Action)
	assert.Nil(t, event.Before)
	assert.Equal(t, "pending", event.After["status"])
}

func TestCreate_AutoApprovalStampsCreator(t *testing.T) {
	req, _, err := timeoff.Create(validInput(), timeoff.StatusApproved, "alice", t0)
	require.NoError(t, err)

	assert.Equal(t, timeoff.StatusApproved, req.Status)
	assert.Equal(t, "alice", req.ApprovedBy)
	require.NotNil(t, req.ApprovedAt)
	assert.Equal(t, t0, *req.ApprovedAt)
	assert.True(t, req.CountsTowardBalance())
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *timeoff.CreateInput)
		wantErr error
	}{
		{"unknown category", func(in *timeoff.CreateInput) { in.Category = "sabbatical" }, generic.ErrInvalidCategory},
		{"end before start", func(in *timeoff.CreateInput) { in.To = d("2025-03-09") }, generic.ErrInvalidDateRange},
		{"missing dates", func(in *timeoff.CreateInput) { in.From = generic.Date{} }, generic.ErrInvalidDateRange},
		{"off-grid hours", func(in *timeoff.CreateInput) { in.Hours = h("0.3") }, generic.ErrInvalidGranularity},
		{"zero hours", func(in *timeoff.CreateInput) { in.Hours = h("0") }, generic.ErrNonPositiveQuantity},
		{"negative hours", func(in *timeoff.CreateInput) { in.Hours = h("-8") }, generic.ErrNonPositiveQuantity},
		{"no employee", func(in *timeoff.CreateInput) { in.EmployeeID = " " }, generic.ErrEmployeeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, _, err := timeoff.Create(in, timeoff.StatusPending, "alice", t0)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreate_UnsupportedInitialStatus(t *testing.T) {
	_, _, err := timeoff.Create(validInput(), timeoff.StatusRejected, "alice", t0)

	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	var tErr *timeoff.TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, timeoff.ActionCreate, tErr.Action)
	assert.Equal(t, timeoff.StatusRejected, tErr.To)
}

// =============================================================================
// APPROVE / REJECT / CANCEL
// =============================================================================

func TestApprove_FromPending(t *testing.T) {
	// GIVEN: A pending request
	req := pendingRequest(t)

	// WHEN: A manager approves it
	next, event, err := timeoff.ApplyTransition(&req, timeoff.Command{Action: timeoff.ActionApprove, Actor: "mgr", Now: t1})
	require.NoError(t, err)

	// THEN: It is approved, stamped and versioned; the input is untouched
	assert.Equal(t, timeoff.StatusApproved, next.Status)
	assert.Equal(t, "mgr", next.ApprovedBy)
	require.NotNil(t, next.ApprovedAt)
	assert.Equal(t, t1, *next.ApprovedAt)
	assert.Equal(t, t1, next.UpdatedAt)
	assert.Equal(t, 2, next.Version)

	assert.Equal(t, timeoff.StatusPending, req.Status)
	assert.Equal(t, 1, req.Version)

	assert.Equal(t, "approve", event.Action)
	assert.Equal(t, "mgr", event.Actor)
	assert.Equal(t, "pending", event.Before["status"])
	assert.Equal(t, "approved", event.After["status"])
}

func TestApprove_Twice_IsConflict(t *testing.T) {
	// GIVEN: A request approved by mgr
	approved := apply(t, pendingRequest(t), timeoff.ActionApprove, "mgr", t1)

	// WHEN: Someone approves it again
	_, _, err := timeoff.ApplyTransition(&approved, timeoff.Command{Action: timeoff.ActionApprove, Actor: "other", Now: t2})

	// THEN: The second approve fails and the original stamp is kept
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	assert.True(t, generic.IsConflict(err))
	var tErr *timeoff.TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, approved.ID, tErr.RequestID)
	assert.Equal(t, timeoff.StatusApproved, tErr.From)
	assert.Equal(t, "mgr", approved.ApprovedBy)
}

func TestReject(t *testing.T) {
	rejected := apply(t, pendingRequest(t), timeoff.ActionReject, "mgr", t1)
	assert.Equal(t, timeoff.StatusRejected, rejected.Status)
	assert.Equal(t, "mgr", rejected.ApprovedBy, "the reviewer is recorded on rejection too")
	assert.False(t, rejected.CountsTowardBalance())

	approved := apply(t, pendingRequest(t), timeoff.ActionApprove, "mgr", t1)
	_, _, err := timeoff.ApplyTransition(&approved, timeoff.Command{Action: timeoff.ActionReject, Actor: "mgr", Now: t2})
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	// pending -> canceled
	canceled := apply(t, pendingRequest(t), timeoff.ActionCancel, "alice", t1)
	assert.Equal(t, timeoff.StatusCanceled, canceled.Status)

	// approved -> canceled
	approved := apply(t, pendingRequest(t), timeoff.ActionApprove, "mgr", t1)
	canceled = apply(t, approved, timeoff.ActionCancel, "alice", t2)
	assert.Equal(t, timeoff.StatusCanceled, canceled.Status)
	assert.False(t, canceled.CountsTowardBalance())

	// terminal statuses cannot be canceled
	for _, from := range []timeoff.Request{
		canceled,
		apply(t, pendingRequest(t), timeoff.ActionReject, "mgr", t1),
	} {
		_, _, err := timeoff.ApplyTransition(&from, timeoff.Command{Action: timeoff.ActionCancel, Actor: "alice", Now: t2})
		assert.ErrorIs(t, err, generic.ErrInvalidTransition, "from %s", from.Status)
	}
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_KeepsStatusAndLocks(t *testing.T) {
	// GIVEN: An approved request
	approved := apply(t, pendingRequest(t), timeoff.ActionApprove, "mgr", t1)

	// WHEN: It is deleted
	deleted := apply(t, approved, timeoff.ActionDelete, "hr", t2)

	// THEN: The row is flagged, its status kept and it no longer counts
	assert.True(t, deleted.Deleted)
	require.NotNil(t, deleted.DeletedAt)
	assert.Equal(t, t2, *deleted.DeletedAt)
	assert.Equal(t, timeoff.StatusApproved, deleted.Status)
	assert.False(t, deleted.CountsTowardBalance())
	assert.Equal(t, 3, deleted.Version)

	// AND: Every further action fails with ErrRecordLocked
	edit := &timeoff.Edit{Note: new(string)}
	for _, action := range []timeoff.Action{
		timeoff.ActionApprove, timeoff.ActionReject, timeoff.ActionCancel,
		timeoff.ActionDelete, timeoff.ActionEdit,
	} {
		_, _, err := timeoff.ApplyTransition(&deleted, timeoff.Command{Action: action, Actor: "hr", Now: t2, Edit: edit})
		assert.ErrorIs(t, err, generic.ErrRecordLocked, "action %s", action)
	}
}

func TestDeleteThenApprove_RecordLocked(t *testing.T) {
	deleted := apply(t, pendingRequest(t), timeoff.ActionDelete, "alice", t1)

	_, _, err := timeoff.ApplyTransition(&deleted, timeoff.Command{Action: timeoff.ActionApprove, Actor: "mgr", Now: t2})

	assert.ErrorIs(t, err, generic.ErrRecordLocked)
	assert.Equal(t, timeoff.StatusPending, deleted.Status)
}

func TestApplyTransition_NilRequest(t *testing.T) {
	_, _, err := timeoff.ApplyTransition(nil, timeoff.Command{Action: timeoff.ActionApprove, Actor: "mgr", Now: t1})
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestApplyTransition_UnknownAction(t *testing.T) {
	req := pendingRequest(t)
	_, _, err := timeoff.ApplyTransition(&req, timeoff.Command{Action: "archive", Actor: "mgr", Now: t1})
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

// =============================================================================
// EDIT
// =============================================================================

func TestEdit_Pending(t *testing.T) {
	req := pendingRequest(t)
	hours := h("16")
	to := d("2025-03-11")
	note := "shorter trip"

	next, event, err := timeoff.ApplyTransition(&req, timeoff.Command{
		Action: timeoff.ActionEdit, Actor: "alice", Now: t1,
		Edit: &timeoff.Edit{To: &to, Hours: &hours, Note: &note},
	})
	require.NoError(t, err)

	assert.True(t, next.Hours.Equal(hours))
	assert.Equal(t, to, next.To)
	assert.Equal(t, req.From, next.From)
	assert.Equal(t, note, next.Note)
	assert.Equal(t, timeoff.StatusPending, next.Status)
	assert.Empty(t, next.ApprovedBy, "pending edits are not stamped")
	assert.Equal(t, "edit", event.Action)
	assert.Equal(t, "24", event.Before["hours"])
	assert.Equal(t, "16", event.After["hours"])
}

func TestEdit_ApprovedRestampsApprover(t *testing.T) {
	// GIVEN: A request approved by mgr at t1
	approved := apply(t, pendingRequest(t), timeoff.ActionApprove, "mgr", t1)

	// WHEN: HR edits the hours at t2
	hours := h("20")
	next, _, err := timeoff.ApplyTransition(&approved, timeoff.Command{
		Action: timeoff.ActionEdit, Actor: "hr", Now: t2,
		Edit: &timeoff.Edit{Hours: &hours},
	})
	require.NoError(t, err)

	// THEN: The editor becomes the approver of record
	assert.Equal(t, timeoff.StatusApproved, next.Status)
	assert.Equal(t, "hr", next.ApprovedBy)
	require.NotNil(t, next.ApprovedAt)
	assert.Equal(t, t2, *next.ApprovedAt)
	assert.Equal(t, 3, next.Version)
}

func TestEdit_Validation(t *testing.T) {
	req := pendingRequest(t)

	badTo := d("2025-03-01")
	_, _, err := timeoff.ApplyTransition(&req, timeoff.Command{
		Action: timeoff.ActionEdit, Actor: "alice", Now: t1, Edit: &timeoff.Edit{To: &badTo},
	})
	assert.ErrorIs(t, err, generic.ErrInvalidDateRange)

	badHours := h("2.25")
	_, _, err = timeoff.ApplyTransition(&req, timeoff.Command{
		Action: timeoff.ActionEdit, Actor: "alice", Now: t1, Edit: &timeoff.Edit{Hours: &badHours},
	})
	assert.ErrorIs(t, err, generic.ErrInvalidGranularity)

	_, _, err = timeoff.ApplyTransition(&req, timeoff.Command{Action: timeoff.ActionEdit, Actor: "alice", Now: t1})
	assert.ErrorIs(t, err, generic.ErrInvalidTransition, "edit without changes")
}

func TestEdit_CanceledRequestStillEditable(t *testing.T) {
	canceled := apply(t, pendingRequest(t), timeoff.ActionCancel, "alice", t1)
	note := "kept for the record"

	next, _, err := timeoff.ApplyTransition(&canceled, timeoff.Command{
		Action: timeoff.ActionEdit, Actor: "alice", Now: t2, Edit: &timeoff.Edit{Note: &note},
	})
	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusCanceled, next.Status)
	assert.Equal(t, note, next.Note)
}
