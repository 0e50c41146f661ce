/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	employees and leave requests. Each scenario demonstrates one behavior
	of the engine: tenure tiers, leap-day anniversaries, expiry alerts and
	the request lifecycle.

AVAILABLE SCENARIOS:

	new-hire:           Under six months of tenure, no annual leave yet
	leap-day-hire:      Hired on Feb 29, anniversaries fall on Feb 28
	expiring-soon:      Annual leave lapses within the alert window
	long-service:       Twelve years of tenure, adjustment and approved leave
	approval-workflow:  One request in every status, plus a deleted one

HOW SCENARIOS WORK:
 1. Register the scenario's employees (upsert, so reloading is safe)
 2. File requests through the service, exactly as a client would
 3. Approve, reject, cancel or delete them to reach the target status

Dates are relative to the service clock, so under an anniversary policy
"expiring-soon" always expires within the window. Requests are only filed
for employees that have none yet; loading a scenario twice does not
duplicate its requests.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "expiring-soon"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, actor)
 3. Add case to loadScenario

SEE ALSO:
  - handlers.go: the regular endpoints used to inspect loaded data
  - timeoff/service.go: RegisterEmployee, CreateRequest and transitions
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-hire",
		Name:        "New Hire",
		Description: "Four months of tenure: no annual leave yet, sick leave available",
		Category:    "tenure",
	},
	{
		ID:          "leap-day-hire",
		Name:        "Leap-Day Hire",
		Description: "Hired 2024-02-29; anniversaries and expiry fall on Feb 28 in common years",
		Category:    "expiry",
	},
	{
		ID:          "expiring-soon",
		Name:        "Expiring Soon",
		Description: "Unused annual leave that lapses within the alert window",
		Category:    "expiry",
	},
	{
		ID:          "long-service",
		Name:        "Long Service",
		Description: "Twelve years of tenure with a manual adjustment and approved leave",
		Category:    "balance",
	},
	{
		ID:          "approval-workflow",
		Name:        "Approval Workflow",
		Description: "Requests in every status, including a soft-deleted one",
		Category:    "lifecycle",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	employees, err := h.loadScenario(r.Context(), req.ScenarioID, actor(r))
	if err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
			return
		}
		h.writeServiceError(w, r, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.logger.Info("scenario loaded",
		zap.String("scenario", req.ScenarioID),
		zap.Strings("employees", employees),
	)
	writeJSON(w, http.StatusOK, ScenarioLoadedDTO{
		Status:    "loaded",
		Scenario:  req.ScenarioID,
		Employees: employees,
	})
}

var errUnknownScenario = errors.New("unknown scenario")

// loadScenario returns the ids of the employees the scenario touched.
func (h *Handler) loadScenario(ctx context.Context, id, actor string) ([]string, error) {
	switch id {
	case "new-hire":
		return h.loadNewHireScenario(ctx, actor)
	case "leap-day-hire":
		return h.loadLeapDayHireScenario(ctx, actor)
	case "expiring-soon":
		return h.loadExpiringSoonScenario(ctx, actor)
	case "long-service":
		return h.loadLongServiceScenario(ctx, actor)
	case "approval-workflow":
		return h.loadApprovalWorkflowScenario(ctx, actor)
	default:
		return nil, errUnknownScenario
	}
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadNewHireScenario(ctx context.Context, actor string) ([]string, error) {
	today := h.Service.Clock.Today()

	fresh, err := h.seedEmployee(ctx, actor, timeoff.Employee{
		ID:         "demo-new-hire",
		Name:       "Nora Lin",
		Department: "Support",
		HireDate:   today.AddMonthsClamped(-4),
		Active:     true,
	})
	if err != nil || !fresh {
		return []string{"demo-new-hire"}, err
	}

	// A sick day: sick leave does not depend on tenure.
	sickDay := today.AddDays(-10)
	_, err = h.seedRequest(ctx, actor, timeoff.CreateInput{
		EmployeeID: "demo-new-hire",
		Category:   timeoff.CategorySick,
		From:       sickDay,
		To:         sickDay,
		Hours:      decimal.NewFromInt(8),
		Note:       "flu",
	}, timeoff.StatusApproved)
	return []string{"demo-new-hire"}, err
}

func (h *Handler) loadLeapDayHireScenario(ctx context.Context, actor string) ([]string, error) {
	today := h.Service.Clock.Today()

	fresh, err := h.seedEmployee(ctx, actor, timeoff.Employee{
		ID:         "demo-leap-day",
		Name:       "Leo Marsh",
		Department: "Finance",
		HireDate:   generic.NewDate(2024, 2, 29),
		Active:     true,
	})
	if err != nil || !fresh {
		return []string{"demo-leap-day"}, err
	}

	// Half a day taken last week.
	day := today.AddDays(-7)
	_, err = h.seedRequest(ctx, actor, timeoff.CreateInput{
		EmployeeID: "demo-leap-day",
		Category:   timeoff.CategoryAnnual,
		From:       day,
		To:         day,
		Hours:      decimal.NewFromInt(4),
		Note:       "dentist",
	}, timeoff.StatusApproved)
	return []string{"demo-leap-day"}, err
}

func (h *Handler) loadExpiringSoonScenario(ctx context.Context, actor string) ([]string, error) {
	today := h.Service.Clock.Today()

	// The anniversary cycle ends 29 days from today; under a calendar policy
	// the pinned grant date puts the final expiry at Dec 31 of this year.
	hire := today.AddYearsClamped(-3).AddDays(30)
	grant := hire.AddYearsClamped(2)
	if h.Service.Policies.Policy().Kind == timeoff.PolicyCalendar {
		grant = generic.StartOfYear(today.Year() - 1)
	}

	fresh, err := h.seedEmployee(ctx, actor, timeoff.Employee{
		ID:         "demo-expiring",
		Name:       "Ema Ortiz",
		Department: "Engineering",
		HireDate:   hire,
		GrantDate:  &grant,
		Active:     true,
	})
	if err != nil || !fresh {
		return []string{"demo-expiring"}, err
	}

	from := today.AddDays(-45)
	_, err = h.seedRequest(ctx, actor, timeoff.CreateInput{
		EmployeeID: "demo-expiring",
		Category:   timeoff.CategoryAnnual,
		From:       from,
		To:         from.AddDays(1),
		Hours:      decimal.NewFromInt(16),
		Note:       "long weekend",
	}, timeoff.StatusApproved)
	return []string{"demo-expiring"}, err
}

func (h *Handler) loadLongServiceScenario(ctx context.Context, actor string) ([]string, error) {
	today := h.Service.Clock.Today()

	fresh, err := h.seedEmployee(ctx, actor, timeoff.Employee{
		ID:         "demo-long-service",
		Name:       "Hana Sato",
		Department: "Operations",
		HireDate:   today.AddYearsClamped(-12),
		Active:     true,

		// Part of the record so re-registering on reload keeps it.
		Adjustments: map[timeoff.Category]decimal.Decimal{
			timeoff.CategoryAnnual: decimal.NewFromInt(-16),
		},
	})
	if err != nil || !fresh {
		return []string{"demo-long-service"}, err
	}

	from := today.AddDays(-60)
	_, err = h.seedRequest(ctx, actor, timeoff.CreateInput{
		EmployeeID: "demo-long-service",
		Category:   timeoff.CategoryAnnual,
		From:       from,
		To:         from.AddDays(4),
		Hours:      decimal.NewFromInt(40),
		Note:       "summer trip",
	}, timeoff.StatusApproved)
	return []string{"demo-long-service"}, err
}

func (h *Handler) loadApprovalWorkflowScenario(ctx context.Context, actor string) ([]string, error) {
	today := h.Service.Clock.Today()

	fresh, err := h.seedEmployee(ctx, actor, timeoff.Employee{
		ID:         "demo-workflow",
		Name:       "Omar Haddad",
		Department: "Sales",
		HireDate:   today.AddYearsClamped(-3).AddMonthsClamped(-4),
		Active:     true,
	})
	if err != nil || !fresh {
		return []string{"demo-workflow"}, err
	}

	base := today.AddDays(14)
	targets := []struct {
		note   string
		status timeoff.Status
		delete bool
	}{
		{note: "awaiting review", status: timeoff.StatusPending},
		{note: "approved trip", status: timeoff.StatusApproved},
		{note: "team offsite clash", status: timeoff.StatusRejected},
		{note: "plans changed", status: timeoff.StatusCanceled},
		{note: "filed by mistake", status: timeoff.StatusPending, delete: true},
	}
	for i, t := range targets {
		day := base.AddDays(7 * i)
		req, err := h.seedRequest(ctx, actor, timeoff.CreateInput{
			EmployeeID: "demo-workflow",
			Category:   timeoff.CategoryAnnual,
			From:       day,
			To:         day,
			Hours:      decimal.NewFromInt(8),
			Note:       t.note,
		}, t.status)
		if err != nil {
			return nil, err
		}
		if t.delete {
			if _, err := h.Service.Delete(ctx, actor, req.ID); err != nil {
				return nil, err
			}
		}
	}
	return []string{"demo-workflow"}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// seedEmployee registers e and reports whether it had no requests yet.
func (h *Handler) seedEmployee(ctx context.Context, actor string, e timeoff.Employee) (bool, error) {
	if _, err := h.Service.RegisterEmployee(ctx, actor, e); err != nil {
		return false, err
	}
	existing, err := h.Service.ListRequests(ctx, e.ID)
	if err != nil {
		return false, err
	}
	return len(existing) == 0, nil
}

// seedRequest files in and drives it to target. Whether a new request starts
// pending or approved depends on the policy, so approval is applied only when
// needed.
func (h *Handler) seedRequest(ctx context.Context, actor string, in timeoff.CreateInput, target timeoff.Status) (timeoff.Request, error) {
	req, err := h.Service.CreateRequest(ctx, actor, in)
	if err != nil {
		return timeoff.Request{}, err
	}

	switch target {
	case timeoff.StatusApproved:
		if req.Status == timeoff.StatusPending {
			return h.Service.Approve(ctx, actor, req.ID)
		}
	case timeoff.StatusRejected:
		if req.Status == timeoff.StatusPending {
			return h.Service.Reject(ctx, actor, req.ID)
		}
		// Auto-approved requests cannot be rejected; cancel them instead.
		return h.Service.Cancel(ctx, actor, req.ID)
	case timeoff.StatusCanceled:
		return h.Service.Cancel(ctx, actor, req.ID)
	case timeoff.StatusPending:
		// An auto-approval policy leaves nothing to review.
	}
	return req, nil
}
