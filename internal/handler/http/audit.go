package http

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-ledger/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AuditHandler interface {
	ByEvent(w http.ResponseWriter, r *http.Request)
	ByEmployee(w http.ResponseWriter, r *http.Request)
	Mine(w http.ResponseWriter, r *http.Request)
}

type auditHandlerImpl struct {
	auditService audit.AuditService
}

func NewAuditHandler(auditService audit.AuditService) AuditHandler {
	return &auditHandlerImpl{auditService: auditService}
}

// ByEvent godoc
// @Summary Audit trail of one event, newest first
// @Tags audit
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} response.Response{data=audit.TrailResponse}
// @Router /audit/events/{eventID} [get]
func (h *auditHandlerImpl) ByEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	trail, err := h.auditService.ByEvent(r.Context(), actor.CompanyID, chi.URLParam(r, "eventID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, trail)
}

// ByEmployee godoc
// @Summary Audit trail of one employee over local days
// @Tags audit
// @Produce json
// @Param employeeID path string true "Employee ID"
// @Param start_date query string true "YYYY-MM-DD"
// @Param end_date query string true "YYYY-MM-DD"
// @Success 200 {object} response.Response{data=audit.TrailResponse}
// @Router /audit/employees/{employeeID} [get]
func (h *auditHandlerImpl) ByEmployee(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}
	h.employeeTrail(w, r, actor.CompanyID, chi.URLParam(r, "employeeID"))
}

// Mine godoc
// @Summary Audit trail of the caller's own ledger
// @Tags audit
// @Produce json
// @Param start_date query string true "YYYY-MM-DD"
// @Param end_date query string true "YYYY-MM-DD"
// @Success 200 {object} response.Response{data=audit.TrailResponse}
// @Router /audit/me [get]
func (h *auditHandlerImpl) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}
	h.employeeTrail(w, r, actor.CompanyID, actor.EmployeeID)
}

func (h *auditHandlerImpl) employeeTrail(w http.ResponseWriter, r *http.Request, companyID, employeeID string) {
	filter := audit.EmployeeTrailFilter{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		StartDate:  r.URL.Query().Get("start_date"),
		EndDate:    r.URL.Query().Get("end_date"),
	}

	trail, err := h.auditService.ByEmployee(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, trail)
}
