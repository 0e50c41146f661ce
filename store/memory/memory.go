// Package memory provides an in-memory timeoff.Store for tests and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store serializes transactions with a mutex. A failed transaction restores
// the state captured when it began.
type Store struct {
	mu sync.Mutex
	st state
}

type state struct {
	employees map[string]timeoff.Employee
	insurance map[string]timeoff.Insurance
	requests  map[string]timeoff.Request
	order     []string // request ids in insertion order
	audit     []generic.AuditEvent
}

func New() *Store {
	return &Store{st: state{
		employees: make(map[string]timeoff.Employee),
		insurance: make(map[string]timeoff.Insurance),
		requests:  make(map[string]timeoff.Request),
	}}
}

// WithTx runs fn under the store lock.
func (s *Store) WithTx(ctx context.Context, fn func(tx timeoff.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.st.copy()
	if err := fn(&tx{st: &s.st}); err != nil {
		s.st = saved
		return err
	}
	return nil
}

func (st state) copy() state {
	out := state{
		employees: make(map[string]timeoff.Employee, len(st.employees)),
		insurance: make(map[string]timeoff.Insurance, len(st.insurance)),
		requests:  make(map[string]timeoff.Request, len(st.requests)),
		order:     append([]string(nil), st.order...),
		audit:     append([]generic.AuditEvent(nil), st.audit...),
	}
	for k, v := range st.employees {
		out.employees[k] = v.Clone()
	}
	for k, v := range st.insurance {
		out.insurance[k] = v
	}
	for k, v := range st.requests {
		out.requests[k] = v
	}
	return out
}

// =============================================================================
// TX - Operations on the locked state
// =============================================================================

type tx struct {
	st *state
}

func (t *tx) GetEmployee(_ context.Context, id string) (timeoff.Employee, error) {
	e, ok := t.st.employees[id]
	if !ok {
		return timeoff.Employee{}, fmt.Errorf("%w: %s", generic.ErrEmployeeNotFound, id)
	}
	return e.Clone(), nil
}

func (t *tx) ListEmployees(_ context.Context) ([]timeoff.Employee, error) {
	out := make([]timeoff.Employee, 0, len(t.st.employees))
	for _, e := range t.st.employees {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) SaveEmployee(_ context.Context, e timeoff.Employee) error {
	t.st.employees[e.ID] = e.Clone()
	return nil
}

func (t *tx) GetInsurance(_ context.Context, employeeID string) (timeoff.Insurance, error) {
	i, ok := t.st.insurance[employeeID]
	if !ok {
		return timeoff.Insurance{}, fmt.Errorf("%w: %s", generic.ErrInsuranceNotFound, employeeID)
	}
	return i, nil
}

func (t *tx) ListInsurance(_ context.Context) ([]timeoff.Insurance, error) {
	out := make([]timeoff.Insurance, 0, len(t.st.insurance))
	for _, i := range t.st.insurance {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (t *tx) SaveInsurance(_ context.Context, i timeoff.Insurance) error {
	if _, ok := t.st.employees[i.EmployeeID]; !ok {
		return fmt.Errorf("%w: %s", generic.ErrEmployeeNotFound, i.EmployeeID)
	}
	t.st.insurance[i.EmployeeID] = i
	return nil
}

func (t *tx) GetRequest(_ context.Context, id string) (timeoff.Request, error) {
	r, ok := t.st.requests[id]
	if !ok {
		return timeoff.Request{}, fmt.Errorf("%w: %s", generic.ErrNotFound, id)
	}
	return r, nil
}

func (t *tx) ListRequests(_ context.Context, employeeID string) ([]timeoff.Request, error) {
	var out []timeoff.Request
	for _, id := range t.st.order {
		if r := t.st.requests[id]; r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *tx) InsertRequest(_ context.Context, r timeoff.Request) error {
	if _, exists := t.st.requests[r.ID]; exists {
		return fmt.Errorf("request %s already exists", r.ID)
	}
	t.st.requests[r.ID] = r
	t.st.order = append(t.st.order, r.ID)
	return nil
}

func (t *tx) UpdateRequest(_ context.Context, r timeoff.Request, expectedVersion int) error {
	current, ok := t.st.requests[r.ID]
	if !ok {
		return fmt.Errorf("%w: %s", generic.ErrNotFound, r.ID)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: request %s at version %d, expected %d",
			generic.ErrConcurrentModification, r.ID, current.Version, expectedVersion)
	}
	t.st.requests[r.ID] = r
	return nil
}

func (t *tx) AppendAudit(_ context.Context, e generic.AuditEvent) error {
	t.st.audit = append(t.st.audit, e)
	return nil
}

func (t *tx) ListAudit(_ context.Context, table, subjectID string) ([]generic.AuditEvent, error) {
	var out []generic.AuditEvent
	for _, e := range t.st.audit {
		if e.SubjectTable == table && e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out, nil
}
