package correction

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
)

// ========================================
// CORRECTION DTOs
// ========================================

type PauseProposal struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type FileCorrectionRequest struct {
	CompanyID         string           `json:"-"`
	ProposedBy        string           `json:"-"`
	EmployeeID        string           `json:"employee_id,omitempty"`
	TargetDate        string           `json:"target_date"`
	ProposedEntryTime *string          `json:"proposed_entry_time,omitempty"`
	ProposedExitTime  *string          `json:"proposed_exit_time,omitempty"`
	ProposedPauses    *[]PauseProposal `json:"proposed_pauses,omitempty"`
	Note              *string          `json:"note,omitempty"`
}

// Proposal is the parsed form of a FileCorrectionRequest
type Proposal struct {
	TargetDate time.Time
	EntryTime  *time.Time
	ExitTime   *time.Time
	Pauses     *[]ProposedPause
}

func (r *FileCorrectionRequest) Validate() error {
	_, err := r.Proposal()
	return err
}

// Proposal validates the request and returns the parsed values
func (r *FileCorrectionRequest) Proposal() (Proposal, error) {
	var errs validator.ValidationErrors
	var p Proposal

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{
			Field:   "company_id",
			Message: "company_id is required",
		})
	}

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if validator.IsEmpty(r.TargetDate) {
		errs = append(errs, validator.ValidationError{
			Field:   "target_date",
			Message: "target_date is required",
		})
	} else if date, ok := validator.IsValidDate(r.TargetDate); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "target_date",
			Message: "target_date must be in YYYY-MM-DD format",
		})
	} else {
		p.TargetDate = date
	}

	if r.ProposedEntryTime == nil && r.ProposedExitTime == nil && r.ProposedPauses == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "proposed_fields",
			Message: "at least one of proposed_entry_time, proposed_exit_time, proposed_pauses is required",
		})
	}

	if r.ProposedEntryTime != nil {
		if t, ok := validator.IsValidDateTime(*r.ProposedEntryTime); ok {
			p.EntryTime = &t
		} else {
			errs = append(errs, validator.ValidationError{
				Field:   "proposed_entry_time",
				Message: "proposed_entry_time must be an RFC3339 timestamp",
			})
		}
	}

	if r.ProposedExitTime != nil {
		if t, ok := validator.IsValidDateTime(*r.ProposedExitTime); ok {
			p.ExitTime = &t
		} else {
			errs = append(errs, validator.ValidationError{
				Field:   "proposed_exit_time",
				Message: "proposed_exit_time must be an RFC3339 timestamp",
			})
		}
	}

	if p.EntryTime != nil && p.ExitTime != nil && !p.ExitTime.After(*p.EntryTime) {
		errs = append(errs, validator.ValidationError{
			Field:   "proposed_exit_time",
			Message: "proposed_exit_time must be after proposed_entry_time",
		})
	}

	if r.ProposedPauses != nil {
		pauses := make([]ProposedPause, 0, len(*r.ProposedPauses))
		var prevEnd *time.Time
		for i, pp := range *r.ProposedPauses {
			field := fmt.Sprintf("proposed_pauses[%d]", i)
			start, startOK := validator.IsValidDateTime(pp.Start)
			end, endOK := validator.IsValidDateTime(pp.End)
			if !startOK || !endOK {
				errs = append(errs, validator.ValidationError{
					Field:   field,
					Message: "start and end must be RFC3339 timestamps",
				})
				continue
			}
			switch {
			case !end.After(start):
				errs = append(errs, validator.ValidationError{
					Field:   field,
					Message: "end must be after start",
				})
			case prevEnd != nil && start.Before(*prevEnd):
				errs = append(errs, validator.ValidationError{
					Field:   field,
					Message: "pauses must be in order and must not overlap",
				})
			case p.EntryTime != nil && start.Before(*p.EntryTime):
				errs = append(errs, validator.ValidationError{
					Field:   field,
					Message: "pause must not start before proposed_entry_time",
				})
			case p.ExitTime != nil && end.After(*p.ExitTime):
				errs = append(errs, validator.ValidationError{
					Field:   field,
					Message: "pause must not end after proposed_exit_time",
				})
			}
			endCopy := end
			prevEnd = &endCopy
			pauses = append(pauses, ProposedPause{Start: start, End: end})
		}
		p.Pauses = &pauses
	}

	if r.Note != nil && len(*r.Note) > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "note",
			Message: "note must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return Proposal{}, errs
	}

	return p, nil
}

type ResolveRequest struct {
	CompanyID  string   `json:"-"`
	RequestID  string   `json:"-"`
	ApproverID string   `json:"-"`
	Decision   Decision `json:"decision"`
	AdminNote  *string  `json:"admin_note,omitempty"`
}

func (r *ResolveRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.RequestID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id must be a valid UUID",
		})
	}

	if validator.IsEmpty(r.ApproverID) {
		errs = append(errs, validator.ValidationError{
			Field:   "approver_id",
			Message: "approver_id is required",
		})
	}

	if r.AdminNote != nil && len(*r.AdminNote) > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "admin_note",
			Message: "admin_note must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ListFilter struct {
	CompanyID  string  `json:"-"`
	EmployeeID *string `json:"employee_id,omitempty"`
	State      *string `json:"state,omitempty"`
	StartDate  *string `json:"start_date,omitempty"` // target_date lower bound, YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // target_date upper bound, YYYY-MM-DD

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *ListFilter) Validate() error {
	var errs validator.ValidationErrors

	// Page validation
	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1 // Default page
	}

	// Limit validation
	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20 // Default limit
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.State != nil && !validator.IsInSlice(*f.State, StateValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "state",
			Message: "state must be one of: PENDING, APPROVED, REJECTED",
		})
	}

	if f.StartDate != nil {
		if _, ok := validator.IsValidDate(*f.StartDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.EndDate != nil {
		if _, ok := validator.IsValidDate(*f.EndDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type CorrectionResponse struct {
	ID                string          `json:"id"`
	EmployeeID        string          `json:"employee_id"`
	TargetDate        string          `json:"target_date"`
	ProposedEntryTime *time.Time      `json:"proposed_entry_time,omitempty"`
	ProposedExitTime  *time.Time      `json:"proposed_exit_time,omitempty"`
	ProposedPauses    []ProposedPause `json:"proposed_pauses,omitempty"`
	Note              *string         `json:"note,omitempty"`
	ProposedBy        string          `json:"proposed_by"`
	State             State           `json:"state"`
	AdminNote         *string         `json:"admin_note,omitempty"`
	ApproverID        *string         `json:"approver_id,omitempty"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type ResolveResponse struct {
	Correction      CorrectionResponse `json:"correction"`
	AuditEntryCount int                `json:"audit_entry_count"`
	CreatedEventIDs []string           `json:"created_event_ids,omitempty"`
}

type ListCorrectionResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Corrections []CorrectionResponse `json:"corrections"`
}
