/*
handlers.go - HTTP API handlers for the leave engine

ENDPOINTS:
  Employees:
    GET    /api/employees                      List all employees
    POST   /api/employees                      Register (or replace) an employee
    GET    /api/employees/{id}                 Get employee details
    POST   /api/employees/{id}/adjustments     Set a manual adjustment
    GET    /api/employees/{id}/entitlement     Tenure, entitlement days, expiry
    GET    /api/employees/{id}/balance         Balances (?category= for one)
    GET    /api/employees/{id}/requests        List leave requests
    POST   /api/employees/{id}/requests        File a leave request
    GET    /api/employees/{id}/insurance       Insurance record (zero when unset)
    PUT    /api/employees/{id}/insurance       Replace the insurance record
    GET    /api/employees/{id}/insurance/audit Insurance audit trail

  Requests:
    GET    /api/requests/{id}                  Get a request
    PATCH  /api/requests/{id}                  Edit dates, hours or note
    DELETE /api/requests/{id}                  Soft-delete
    POST   /api/requests/{id}/approve          pending -> approved
    POST   /api/requests/{id}/reject           pending -> rejected
    POST   /api/requests/{id}/cancel           pending|approved -> canceled
    GET    /api/requests/{id}/audit            Audit trail

  Other:
    GET    /api/insurance                      Insurance of every employee
    GET    /api/alerts                         Expiry alerts computed now
    GET    /api/alerts/latest                  Last scheduler scan
    GET    /api/categories                     Registered leave categories
    GET    /api/policy                         Policy in force

  Scenarios (demo data, see scenarios.go):
    GET    /api/scenarios                      List scenarios
    GET    /api/scenarios/current              Last loaded scenario
    POST   /api/scenarios/load                 Load a scenario

ACTOR:
  The acting identity is taken from the X-Actor header ("system" when
  absent). Authentication belongs to the deployment in front of this API.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee or request not found
  - 409: Invalid transition, deleted (locked) request, concurrent change
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - timeoff/service.go: The operations behind every endpoint
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
	"go.uber.org/zap"
)

// ActorHeader carries the acting identity.
const ActorHeader = "X-Actor"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *timeoff.RequestService
	Scheduler *ExpiryAlertScheduler // optional

	logger *zap.Logger

	scenarioMu      sync.Mutex
	currentScenario string
}

func NewHandler(service *timeoff.RequestService, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("api.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("api.handler")
	}
	return &Handler{Service: service, logger: l}
}

func actor(r *http.Request) string {
	if a := strings.TrimSpace(r.Header.Get(ActorHeader)); a != "" {
		return a
	}
	return "system"
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Service.ListEmployees(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee registers or replaces an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := req.toEmployee()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee", err)
		return
	}

	saved, err := h.Service.RegisterEmployee(r.Context(), actor(r), emp)
	if err != nil {
		h.writeServiceError(w, r, "Failed to register employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(saved))
}

// SetAdjustment replaces the manual delta for one category.
func (h *Handler) SetAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := h.Service.SetAdjustment(r.Context(), actor(r), chi.URLParam(r, "id"),
		timeoff.Category(req.Category), req.Hours)
	if err != nil {
		h.writeServiceError(w, r, "Failed to set adjustment", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// GetEntitlement returns tenure, entitlement days and expiry dates.
func (h *Handler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Entitlement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to compute entitlement", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntitlementDTO(view))
}

// GetBalance returns every category's balance, or one with ?category=.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	if name := r.URL.Query().Get("category"); name != "" {
		b, err := h.Service.Balance(r.Context(), employeeID, timeoff.Category(name))
		if err != nil {
			h.writeServiceError(w, r, "Failed to compute balance", err)
			return
		}
		writeJSON(w, http.StatusOK, toBalanceDTO(b))
		return
	}

	balances, err := h.Service.Balances(r.Context(), employeeID)
	if err != nil {
		h.writeServiceError(w, r, "Failed to compute balance", err)
		return
	}
	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INSURANCE HANDLERS
// =============================================================================

// ListInsurance returns one insurance entry per employee.
func (h *Handler) ListInsurance(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.ListInsurance(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list insurance", err)
		return
	}

	dtos := make([]InsuranceDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toInsuranceEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInsurance returns one employee's insurance record.
func (h *Handler) GetInsurance(w http.ResponseWriter, r *http.Request) {
	ins, err := h.Service.GetInsurance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get insurance", err)
		return
	}
	writeJSON(w, http.StatusOK, toInsuranceDTO(ins))
}

// SetInsurance replaces one employee's insurance record.
func (h *Handler) SetInsurance(w http.ResponseWriter, r *http.Request) {
	var req SetInsuranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved, err := h.Service.SetInsurance(r.Context(), actor(r), req.toInsurance(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, "Failed to set insurance", err)
		return
	}
	writeJSON(w, http.StatusOK, toInsuranceDTO(saved))
}

// GetInsuranceAudit returns the employee's insurance audit trail.
func (h *Handler) GetInsuranceAudit(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.InsuranceTrail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get insurance audit trail", err)
		return
	}

	dtos := make([]AuditEventDTO, len(events))
	for i, e := range events {
		dtos[i] = toAuditEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// ListRequests returns the employee's requests, deleted ones included.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Service.ListRequests(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to list requests", err)
		return
	}
	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitRequest files a leave request for the employee.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Service.CreateRequest(r.Context(), actor(r), timeoff.CreateInput{
		EmployeeID: chi.URLParam(r, "id"),
		Category:   timeoff.Category(req.Category),
		From:       req.From,
		To:         req.To,
		Hours:      req.Hours,
		Note:       req.Note,
	})
	if err != nil {
		h.writeServiceError(w, r, "Failed to create request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(created))
}

// GetRequest returns a single request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Service.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// EditRequest changes dates, hours or note.
func (h *Handler) EditRequest(w http.ResponseWriter, r *http.Request) {
	var req EditLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	edited, err := h.Service.Edit(r.Context(), actor(r), chi.URLParam(r, "id"), timeoff.Edit{
		From:  req.From,
		To:    req.To,
		Hours: req.Hours,
		Note:  req.Note,
	})
	if err != nil {
		h.writeServiceError(w, r, "Failed to edit request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(edited))
}

// transitionFunc is the shape of the service's body-less lifecycle actions.
type transitionFunc func(ctx context.Context, actor, requestID string) (timeoff.Request, error)

func (h *Handler) runTransition(w http.ResponseWriter, r *http.Request, message string, fn transitionFunc) {
	req, err := fn(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, message, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Failed to approve request", h.Service.Approve)
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Failed to reject request", h.Service.Reject)
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Failed to cancel request", h.Service.Cancel)
}

// DeleteRequest soft-deletes; the row stays visible with deleted=true.
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Failed to delete request", h.Service.Delete)
}

// GetAuditTrail returns the request's audit events, oldest first.
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.AuditTrail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to load audit trail", err)
		return
	}
	dtos := make([]AuditEventDTO, len(events))
	for i, e := range events {
		dtos[i] = toAuditEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ALERTS, CATEGORIES & POLICY
// =============================================================================

// ListAlerts computes expiry alerts as of now.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.Service.ExpiryAlerts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to compute alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertDTOs(alerts))
}

// LatestAlerts returns the scheduler's last scan.
func (h *Handler) LatestAlerts(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusNotFound, "Alert scheduler is not running", nil)
		return
	}
	alerts, ranAt := h.Scheduler.Latest()
	writeJSON(w, http.StatusOK, AlertScanDTO{
		RanAt:  formatTimestamp(ranAt),
		Alerts: toAlertDTOs(alerts),
	})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := timeoff.Categories()
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toPolicyDTO(h.Service.Policies.Policy()))
}

// =============================================================================
// HELPERS
// =============================================================================

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
