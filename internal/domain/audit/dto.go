package audit

import (
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
)

type RecordRequest struct {
	CompanyID       string
	EmployeeID      string
	AffectedEventID string
	Field           string
	OldValue        string
	NewValue        string
	EditorID        string
	Comment         string
}

func (r *RecordRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "company_id is required"})
	}
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if validator.IsEmpty(r.AffectedEventID) {
		errs = append(errs, validator.ValidationError{Field: "affected_event_id", Message: "affected_event_id is required"})
	}
	if validator.IsEmpty(r.Field) {
		errs = append(errs, validator.ValidationError{Field: "field", Message: "field is required"})
	}
	if validator.IsEmpty(r.EditorID) {
		errs = append(errs, validator.ValidationError{Field: "editor_id", Message: "editor_id is required"})
	}
	if r.OldValue == r.NewValue {
		errs = append(errs, validator.ValidationError{Field: "new_value", Message: "new_value must differ from old_value"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// EmployeeTrailFilter selects entries recorded on local days [StartDate, EndDate]
type EmployeeTrailFilter struct {
	CompanyID  string
	EmployeeID string
	StartDate  string
	EndDate    string
}

func (f *EmployeeTrailFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}

	start, startOK := validator.IsValidDate(f.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date must be in YYYY-MM-DD format"})
	}
	end, endOK := validator.IsValidDate(f.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must be in YYYY-MM-DD format"})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must not be before start_date"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type EntryResponse struct {
	ID              string    `json:"id"`
	EmployeeID      string    `json:"employee_id"`
	AffectedEventID string    `json:"affected_event_id"`
	Field           string    `json:"field"`
	Action          string    `json:"action"`
	OldValue        string    `json:"old_value"`
	NewValue        string    `json:"new_value"`
	Comment         string    `json:"comment"`
	EditorID        string    `json:"editor_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type TrailResponse struct {
	Entries []EntryResponse `json:"entries"`
	Total   int             `json:"total"`
}
