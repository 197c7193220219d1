package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
	"github.com/google/uuid"
)

type AuditServiceImpl struct {
	repo            audit.AuditRepository
	employees       employee.EmployeeRepository
	clock           func() time.Time
	defaultLocation *time.Location
}

func NewAuditService(repo audit.AuditRepository, employees employee.EmployeeRepository, clock func() time.Time, defaultLocation *time.Location) *AuditServiceImpl {
	if clock == nil {
		clock = time.Now
	}
	if defaultLocation == nil {
		defaultLocation = time.UTC
	}
	return &AuditServiceImpl{
		repo:            repo,
		employees:       employees,
		clock:           clock,
		defaultLocation: defaultLocation,
	}
}

var _ audit.AuditService = (*AuditServiceImpl)(nil)

// Record implements audit.AuditService.
func (s *AuditServiceImpl) Record(ctx context.Context, req audit.RecordRequest) (audit.Entry, error) {
	if err := req.Validate(); err != nil {
		return audit.Entry{}, fmt.Errorf("%w: %w", audit.ErrInvalidEntry, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return audit.Entry{}, fmt.Errorf("failed to generate audit entry id: %w", err)
	}

	entry, err := s.repo.Append(ctx, audit.Entry{
		ID:              id.String(),
		CompanyID:       req.CompanyID,
		EmployeeID:      req.EmployeeID,
		AffectedEventID: req.AffectedEventID,
		Field:           req.Field,
		OldValue:        req.OldValue,
		NewValue:        req.NewValue,
		Comment:         req.Comment,
		EditorID:        req.EditorID,
		CreatedAt:       s.clock().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		return audit.Entry{}, database.WrapStoreError("append audit entry", err)
	}
	return entry, nil
}

// ByEvent implements audit.AuditService.
func (s *AuditServiceImpl) ByEvent(ctx context.Context, companyID, eventID string) (audit.TrailResponse, error) {
	if !validator.IsValidUUID(eventID) {
		return audit.TrailResponse{}, validator.Single("event_id", "event_id must be a valid UUID")
	}

	entries, err := s.repo.ListByEvent(ctx, companyID, eventID)
	if err != nil {
		return audit.TrailResponse{}, database.WrapStoreError("list audit by event", err)
	}
	return toTrailResponse(entries), nil
}

// ByEmployee implements audit.AuditService. The day range is taken in the employee's timezone.
func (s *AuditServiceImpl) ByEmployee(ctx context.Context, filter audit.EmployeeTrailFilter) (audit.TrailResponse, error) {
	if err := filter.Validate(); err != nil {
		return audit.TrailResponse{}, err
	}

	emp, err := s.employees.GetByID(ctx, filter.EmployeeID, filter.CompanyID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return audit.TrailResponse{}, employee.ErrEmployeeNotFound
		}
		return audit.TrailResponse{}, database.WrapStoreError("get employee", err)
	}
	loc := emp.Location(s.defaultLocation)

	start, _ := validator.IsValidDate(filter.StartDate)
	end, _ := validator.IsValidDate(filter.EndDate)
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	entries, err := s.repo.ListByEmployee(ctx, filter.CompanyID, filter.EmployeeID, from, to)
	if err != nil {
		return audit.TrailResponse{}, database.WrapStoreError("list audit by employee", err)
	}
	return toTrailResponse(entries), nil
}

func toTrailResponse(entries []audit.Entry) audit.TrailResponse {
	resp := audit.TrailResponse{
		Entries: make([]audit.EntryResponse, 0, len(entries)),
		Total:   len(entries),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, audit.EntryResponse{
			ID:              e.ID,
			EmployeeID:      e.EmployeeID,
			AffectedEventID: e.AffectedEventID,
			Field:           e.Field,
			Action:          e.Action(),
			OldValue:        e.OldValue,
			NewValue:        e.NewValue,
			Comment:         e.Comment,
			EditorID:        e.EditorID,
			CreatedAt:       e.CreatedAt,
		})
	}
	return resp
}
