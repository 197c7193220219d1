package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/user"
	"github.com/cmlabs-hris/attendance-ledger/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-ledger/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type CorrectionHandler interface {
	File(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Resolve(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
}

type correctionHandlerImpl struct {
	correctionService correction.CorrectionService
}

func NewCorrectionHandler(correctionService correction.CorrectionService) CorrectionHandler {
	return &correctionHandlerImpl{
		correctionService: correctionService,
	}
}

// File godoc
// @Summary File a correction request
// @Description employee_id may name another employee only when the caller can approve corrections
// @Tags corrections
// @Accept json
// @Produce json
// @Param request body correction.FileCorrectionRequest true "Proposal"
// @Success 201 {object} response.Response{data=correction.CorrectionResponse}
// @Router /corrections [post]
func (h *correctionHandlerImpl) File(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req correction.FileCorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("FileCorrection decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if req.EmployeeID == "" {
		req.EmployeeID = actor.EmployeeID
	} else if req.EmployeeID != actor.EmployeeID && !actor.Can(user.PermissionAttendanceApprove) {
		response.HandleError(w, user.ErrInsufficientPermissions)
		return
	}
	req.CompanyID = actor.CompanyID
	req.ProposedBy = actor.EmployeeID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.correctionService.FileCorrection(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Correction request filed", result)
}

// List godoc
// @Summary List correction requests
// @Description Callers without attendance.view_all only see their own requests
// @Tags corrections
// @Produce json
// @Param employee_id query string false "Employee ID"
// @Param state query string false "PENDING, APPROVED or REJECTED"
// @Param start_date query string false "Target date lower bound"
// @Param end_date query string false "Target date upper bound"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response{data=correction.ListCorrectionResponse}
// @Router /corrections [get]
func (h *correctionHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	filter := correction.ListFilter{CompanyID: actor.CompanyID}
	query := r.URL.Query()

	if employeeID := query.Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}
	if !actor.Can(user.PermissionAttendanceViewAll) {
		own := actor.EmployeeID
		filter.EmployeeID = &own
	}

	if state := query.Get("state"); state != "" {
		filter.State = &state
	}
	if startDate := query.Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := query.Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	// Pagination
	if p := query.Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			filter.Page = pageNum
		}
	}
	if l := query.Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil && limitNum > 0 {
			filter.Limit = limitNum
		}
	}

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.correctionService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Get godoc
// @Summary Get a correction request
// @Tags corrections
// @Produce json
// @Param id path string true "Correction ID"
// @Success 200 {object} response.Response{data=correction.CorrectionResponse}
// @Router /corrections/{id} [get]
func (h *correctionHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	result, err := h.correctionService.Get(r.Context(), actor.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	// Someone else's request is reported as missing, not forbidden
	if result.EmployeeID != actor.EmployeeID && !actor.Can(user.PermissionAttendanceViewAll) {
		response.HandleError(w, correction.ErrCorrectionNotFound)
		return
	}

	response.Success(w, result)
}

// Resolve godoc
// @Summary Approve or reject a correction request
// @Tags corrections
// @Accept json
// @Produce json
// @Param id path string true "Correction ID"
// @Param request body correction.ResolveRequest true "Decision"
// @Success 200 {object} response.Response{data=correction.ResolveResponse}
// @Failure 409 {object} response.Response "ALREADY_RESOLVED"
// @Router /corrections/{id}/resolve [post]
func (h *correctionHandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, "")
}

// Approve godoc
// @Summary Approve a correction request
// @Tags corrections
// @Accept json
// @Produce json
// @Param id path string true "Correction ID"
// @Success 200 {object} response.Response{data=correction.ResolveResponse}
// @Router /corrections/{id}/approve [post]
func (h *correctionHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, correction.DecisionApprove)
}

// Reject godoc
// @Summary Reject a correction request
// @Tags corrections
// @Accept json
// @Produce json
// @Param id path string true "Correction ID"
// @Success 200 {object} response.Response{data=correction.ResolveResponse}
// @Router /corrections/{id}/reject [post]
func (h *correctionHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, correction.DecisionReject)
}

// resolve handles the three resolution routes. A fixed decision overrides the body.
func (h *correctionHandlerImpl) resolve(w http.ResponseWriter, r *http.Request, decision correction.Decision) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req correction.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Error("ResolveCorrection decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if decision != "" {
		req.Decision = decision
	}
	req.CompanyID = actor.CompanyID
	req.RequestID = chi.URLParam(r, "id")
	req.ApproverID = actor.UserID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.correctionService.Resolve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Correction request "+string(result.Correction.State), result)
}
