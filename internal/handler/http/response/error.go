package response

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/user"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
	attendancesvc "github.com/cmlabs-hris/attendance-ledger/internal/service/attendance"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var transitionErr *attendance.TransitionError
	if errors.As(err, &transitionErr) {
		ConflictWithCode(w, "INVALID_TRANSITION", transitionErr.Error(), transitionDetails(transitionErr))
		return
	}

	switch {
	// Attendance domain errors
	case errors.Is(err, attendance.ErrEventNotFound):
		NotFound(w, "Attendance event not found")
	case errors.Is(err, attendance.ErrEmployeeNotFound),
		errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, attendance.ErrNoChanges):
		UnprocessableEntity(w, "NO_CHANGES", "The request does not change the event")

	// Correction domain errors
	case errors.Is(err, correction.ErrCorrectionNotFound):
		NotFound(w, "Correction request not found")
	case errors.Is(err, correction.ErrAlreadyResolved):
		ConflictWithCode(w, "ALREADY_RESOLVED", "Correction request has already been resolved", nil)
	case errors.Is(err, correction.ErrEntryTimeRequired):
		UnprocessableEntity(w, "ENTRY_TIME_REQUIRED", "proposed_entry_time is required when the day has no cycle")
	case errors.Is(err, correction.ErrInvalidDecision):
		BadRequest(w, err.Error(), nil)

	// Audit domain errors
	case errors.Is(err, audit.ErrInvalidEntry):
		BadRequest(w, "Invalid audit entry", nil)

	// Access errors
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")
	case errors.Is(err, user.ErrCompanyIDRequired), errors.Is(err, user.ErrEmployeeIDRequired):
		Forbidden(w, err.Error())

	// Default
	default:
		var storeErr *database.StoreError
		if errors.As(err, &storeErr) {
			slog.Error("store failure", "op", storeErr.Op, "error", storeErr.Err)
		} else {
			slog.Error("unhandled error", "error", err)
		}
		InternalServerError(w, "An unexpected error occurred")
	}
}

func transitionDetails(err *attendance.TransitionError) map[string]string {
	allowed := attendancesvc.AllowedKinds(err.Current)
	kinds := make([]string, 0, len(allowed))
	for _, k := range allowed {
		kinds = append(kinds, string(k))
	}
	return map[string]string{
		"current_status": string(err.Current),
		"attempted_kind": string(err.Attempted),
		"allowed_kinds":  strings.Join(kinds, ","),
	}
}
