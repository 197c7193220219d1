package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-ledger/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-ledger/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

// IdempotencyHeader carries the client's retry key for recordEvent
const IdempotencyHeader = "Idempotency-Key"

type AttendanceHandler interface {
	MyStatus(w http.ResponseWriter, r *http.Request)
	EmployeeStatus(w http.ResponseWriter, r *http.Request)
	Board(w http.ResponseWriter, r *http.Request)
	RecordEvent(w http.ResponseWriter, r *http.Request)
	MyEvents(w http.ResponseWriter, r *http.Request)
	EmployeeEvents(w http.ResponseWriter, r *http.Request)
	MyCycles(w http.ResponseWriter, r *http.Request)
	EmployeeCycles(w http.ResponseWriter, r *http.Request)
	EditEvent(w http.ResponseWriter, r *http.Request)
	DeleteEvent(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	notifier          notification.Notifier
}

// NewAttendanceHandler creates the attendance handler. notifier may be nil.
func NewAttendanceHandler(attendanceService attendance.AttendanceService, notifier notification.Notifier) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		notifier:          notifier,
	}
}

// MyStatus godoc
// @Summary Current status of the caller
// @Tags attendance
// @Produce json
// @Success 200 {object} response.Response{data=attendance.StatusResponse}
// @Router /attendance/status [get]
func (h *attendanceHandlerImpl) MyStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	status, err := h.attendanceService.CurrentStatus(r.Context(), actor.CompanyID, actor.EmployeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, status)
}

// EmployeeStatus godoc
// @Summary Current status of any employee in the caller's company
// @Tags attendance
// @Produce json
// @Param employeeID path string true "Employee ID"
// @Success 200 {object} response.Response{data=attendance.StatusResponse}
// @Router /attendance/employees/{employeeID}/status [get]
func (h *attendanceHandlerImpl) EmployeeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	status, err := h.attendanceService.CurrentStatus(r.Context(), actor.CompanyID, chi.URLParam(r, "employeeID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, status)
}

// Board godoc
// @Summary Current status of every active employee
// @Tags attendance
// @Produce json
// @Success 200 {object} response.Response{data=attendance.BoardResponse}
// @Router /attendance/board [get]
func (h *attendanceHandlerImpl) Board(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	board, err := h.attendanceService.Board(r.Context(), actor.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, board)
}

// RecordEvent godoc
// @Summary Record a clock event for the caller
// @Tags attendance
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Retry key"
// @Param request body attendance.RecordEventRequest true "Clock event"
// @Success 201 {object} response.Response{data=attendance.RecordEventResponse}
// @Success 200 {object} response.Response{data=attendance.RecordEventResponse} "Replayed"
// @Failure 409 {object} response.Response "INVALID_TRANSITION"
// @Router /attendance/events [post]
func (h *attendanceHandlerImpl) RecordEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req attendance.RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("RecordEvent decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	// Identity always comes from the token
	req.CompanyID = actor.CompanyID
	req.EmployeeID = actor.EmployeeID
	req.IdempotencyKey = r.Header.Get(IdempotencyHeader)

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.RecordEvent(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.Replayed {
		response.SuccessWithMessage(w, "Event already recorded", result)
		return
	}

	if result.Warnings.Any() {
		h.notifyWarning(r.Context(), actor.CompanyID, result)
	}

	response.Created(w, "Event recorded", result)
}

func (h *attendanceHandlerImpl) notifyWarning(ctx context.Context, companyID string, result attendance.RecordEventResponse) {
	if h.notifier == nil {
		return
	}

	var reasons []string
	if result.Warnings.LocationWarning {
		reasons = append(reasons, "outside every assigned work center")
	}
	if result.Warnings.EarlyEntryWarning {
		reasons = append(reasons, "before the shift start")
	}

	data := map[string]any{
		"event_id":            result.Event.ID,
		"employee_id":         result.Event.EmployeeID,
		"kind":                result.Event.Kind,
		"location_warning":    result.Warnings.LocationWarning,
		"early_entry_warning": result.Warnings.EarlyEntryWarning,
	}
	if result.Warnings.DistanceMeters != nil {
		data["distance_meters"] = *result.Warnings.DistanceMeters
	}

	h.notifier.Notify(ctx, notification.Notification{
		CompanyID: companyID,
		Topic:     notification.AdminTopic(companyID),
		Type:      notification.TypeClockWarning,
		Title:     "Clock event flagged",
		Message:   fmt.Sprintf("%s recorded %s", result.Event.Kind, strings.Join(reasons, " and ")),
		Data:      data,
		CreatedAt: result.Event.CreatedAt,
	})
}

// MyEvents godoc
// @Summary Raw ledger of the caller
// @Tags attendance
// @Produce json
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} response.Response{data=attendance.EventsResponse}
// @Router /attendance/events [get]
func (h *attendanceHandlerImpl) MyEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}
	h.events(w, r, rangeFilter(r, actor.CompanyID, actor.EmployeeID))
}

// EmployeeEvents godoc
// @Summary Raw ledger of any employee
// @Tags attendance
// @Produce json
// @Param employeeID path string true "Employee ID"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} response.Response{data=attendance.EventsResponse}
// @Router /attendance/employees/{employeeID}/events [get]
func (h *attendanceHandlerImpl) EmployeeEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}
	h.events(w, r, rangeFilter(r, actor.CompanyID, chi.URLParam(r, "employeeID")))
}

func (h *attendanceHandlerImpl) events(w http.ResponseWriter, r *http.Request, filter attendance.RangeFilter) {
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	events, err := h.attendanceService.Events(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, events)
}

// MyCycles godoc
// @Summary Work cycles of the caller
// @Tags attendance
// @Produce json
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} response.Response{data=attendance.CyclesResponse}
// @Router /attendance/cycles [get]
func (h *attendanceHandlerImpl) MyCycles(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}
	h.cycles(w, r, rangeFilter(r, actor.CompanyID, actor.EmployeeID))
}

// EmployeeCycles godoc
// @Summary Work cycles of any employee
// @Tags attendance
// @Produce json
// @Param employeeID path string true "Employee ID"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} response.Response{data=attendance.CyclesResponse}
// @Router /attendance/employees/{employeeID}/cycles [get]
func (h *attendanceHandlerImpl) EmployeeCycles(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}
	h.cycles(w, r, rangeFilter(r, actor.CompanyID, chi.URLParam(r, "employeeID")))
}

func (h *attendanceHandlerImpl) cycles(w http.ResponseWriter, r *http.Request, filter attendance.RangeFilter) {
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	cycles, err := h.attendanceService.Cycles(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, cycles)
}

// EditEvent godoc
// @Summary Edit a ledger event (admin)
// @Tags attendance
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body attendance.EditEventRequest true "Fields to change"
// @Success 200 {object} response.Response{data=attendance.EditEventResponse}
// @Router /attendance/events/{id} [patch]
func (h *attendanceHandlerImpl) EditEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req attendance.EditEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("EditEvent decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.CompanyID = actor.CompanyID
	req.EventID = chi.URLParam(r, "id")
	req.EditorID = actor.UserID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.EditEvent(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Event updated", result)
}

// DeleteEvent godoc
// @Summary Delete a ledger event (admin)
// @Tags attendance
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Response
// @Router /attendance/events/{id} [delete]
func (h *attendanceHandlerImpl) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	// The body is optional and only carries the audit comment
	var req attendance.DeleteEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if req.Comment == "" {
		req.Comment = r.URL.Query().Get("comment")
	}

	req.CompanyID = actor.CompanyID
	req.EventID = chi.URLParam(r, "id")
	req.EditorID = actor.UserID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	if err := h.attendanceService.DeleteEvent(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Event deleted", nil)
}

func rangeFilter(r *http.Request, companyID, employeeID string) attendance.RangeFilter {
	return attendance.RangeFilter{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		StartDate:  r.URL.Query().Get("start_date"),
		EndDate:    r.URL.Query().Get("end_date"),
	}
}
