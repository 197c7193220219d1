package correction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
	"github.com/google/uuid"
)

type CorrectionServiceImpl struct {
	tx              database.Transactor
	repo            correction.CorrectionRepository
	ledger          attendance.LedgerRepository
	employees       employee.EmployeeRepository
	audit           audit.AuditService
	notifier        notification.Notifier
	clock           attendance.Clock
	defaultLocation *time.Location
}

// NewCorrectionService wires the correction workflow. notifier may be nil.
func NewCorrectionService(
	tx database.Transactor,
	repo correction.CorrectionRepository,
	ledger attendance.LedgerRepository,
	employees employee.EmployeeRepository,
	auditService audit.AuditService,
	notifier notification.Notifier,
	clock attendance.Clock,
	defaultLocation *time.Location,
) *CorrectionServiceImpl {
	if clock == nil {
		clock = attendance.SystemClock
	}
	if defaultLocation == nil {
		defaultLocation = time.UTC
	}
	return &CorrectionServiceImpl{
		tx:              tx,
		repo:            repo,
		ledger:          ledger,
		employees:       employees,
		audit:           auditService,
		notifier:        notifier,
		clock:           clock,
		defaultLocation: defaultLocation,
	}
}

var _ correction.CorrectionService = (*CorrectionServiceImpl)(nil)

func (s *CorrectionServiceImpl) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func (s *CorrectionServiceImpl) employeeLocation(ctx context.Context, companyID, employeeID string) (*time.Location, error) {
	emp, err := s.employees.GetByID(ctx, employeeID, companyID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return nil, attendance.ErrEmployeeNotFound
		}
		return nil, database.WrapStoreError("get employee", err)
	}
	return emp.Location(s.defaultLocation), nil
}

// FileCorrection implements correction.CorrectionService.
func (s *CorrectionServiceImpl) FileCorrection(ctx context.Context, req correction.FileCorrectionRequest) (correction.CorrectionResponse, error) {
	proposal, err := req.Proposal()
	if err != nil {
		return correction.CorrectionResponse{}, err
	}

	loc, err := s.employeeLocation(ctx, req.CompanyID, req.EmployeeID)
	if err != nil {
		return correction.CorrectionResponse{}, err
	}

	now := s.now()
	today := now.In(loc).Format(time.DateOnly)
	if proposal.TargetDate.Format(time.DateOnly) > today {
		return correction.CorrectionResponse{}, validator.Single("target_date", "target_date must not be in the future")
	}

	proposedBy := req.ProposedBy
	if proposedBy == "" {
		proposedBy = req.EmployeeID
	}

	id, err := uuid.NewV7()
	if err != nil {
		return correction.CorrectionResponse{}, fmt.Errorf("failed to generate correction id: %w", err)
	}

	created, err := s.repo.Create(ctx, correction.CorrectionRequest{
		ID:                id.String(),
		CompanyID:         req.CompanyID,
		EmployeeID:        req.EmployeeID,
		TargetDate:        proposal.TargetDate,
		ProposedEntryTime: truncatePtr(proposal.EntryTime),
		ProposedExitTime:  truncatePtr(proposal.ExitTime),
		ProposedPauses:    truncatePauses(proposal.Pauses),
		Note:              req.Note,
		ProposedBy:        proposedBy,
		State:             correction.StatePending,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return correction.CorrectionResponse{}, database.WrapStoreError("create correction", err)
	}

	slog.Info("correction filed",
		"company_id", created.CompanyID,
		"correction_id", created.ID,
		"employee_id", created.EmployeeID,
		"target_date", created.TargetDate.Format(time.DateOnly),
	)

	s.notify(ctx, notification.Notification{
		CompanyID: created.CompanyID,
		Topic:     notification.AdminTopic(created.CompanyID),
		Type:      notification.TypeCorrectionFiled,
		Title:     "Attendance correction filed",
		Message:   fmt.Sprintf("A correction for %s is waiting for review", created.TargetDate.Format(time.DateOnly)),
		Data:      map[string]any{"correction_id": created.ID, "employee_id": created.EmployeeID},
	})

	return toResponse(created), nil
}

// Approve implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Approve(ctx context.Context, req correction.ResolveRequest) (correction.ResolveResponse, error) {
	if err := req.Validate(); err != nil {
		return correction.ResolveResponse{}, err
	}

	var resolved correction.CorrectionRequest
	var applied applyResult

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cr, err := s.repo.GetByIDForUpdate(ctx, req.RequestID, req.CompanyID)
		if err != nil {
			return database.WrapStoreError("get correction", err, correction.ErrCorrectionNotFound)
		}
		if cr.IsResolved() {
			return correction.ErrAlreadyResolved
		}

		loc, err := s.employeeLocation(ctx, cr.CompanyID, cr.EmployeeID)
		if err != nil {
			return err
		}

		if err := s.ledger.LockEmployee(ctx, cr.CompanyID, cr.EmployeeID); err != nil {
			return database.WrapStoreError("lock employee", err)
		}

		now := s.now()
		a := &applier{
			ledger:     s.ledger,
			audit:      s.audit,
			request:    cr,
			approverID: req.ApproverID,
			comment:    auditComment(cr.ID, req.AdminNote),
			now:        now,
		}
		if err := a.apply(ctx, loc); err != nil {
			return err
		}
		applied = a.result

		resolved, err = s.repo.Resolve(ctx, cr.ID, cr.CompanyID, correction.StateApproved, req.ApproverID, req.AdminNote, now)
		if err != nil {
			return database.WrapStoreError("resolve correction", err, correction.ErrAlreadyResolved, correction.ErrCorrectionNotFound)
		}
		return nil
	})
	if err != nil {
		return correction.ResolveResponse{}, err
	}

	slog.Info("correction approved",
		"company_id", resolved.CompanyID,
		"correction_id", resolved.ID,
		"approver_id", req.ApproverID,
		"audit_entries", applied.auditEntries,
		"created_events", len(applied.createdEventIDs),
	)

	s.notify(ctx, notification.Notification{
		CompanyID: resolved.CompanyID,
		Topic:     notification.EmployeeTopic(resolved.CompanyID, resolved.EmployeeID),
		Type:      notification.TypeCorrectionApproved,
		Title:     "Attendance correction approved",
		Message:   fmt.Sprintf("Your correction for %s was approved", resolved.TargetDate.Format(time.DateOnly)),
		Data:      map[string]any{"correction_id": resolved.ID},
	})

	return correction.ResolveResponse{
		Correction:      toResponse(resolved),
		AuditEntryCount: applied.auditEntries,
		CreatedEventIDs: applied.createdEventIDs,
	}, nil
}

// Reject implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Reject(ctx context.Context, req correction.ResolveRequest) (correction.ResolveResponse, error) {
	if err := req.Validate(); err != nil {
		return correction.ResolveResponse{}, err
	}

	var resolved correction.CorrectionRequest
	var auditEntries int

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cr, err := s.repo.GetByIDForUpdate(ctx, req.RequestID, req.CompanyID)
		if err != nil {
			return database.WrapStoreError("get correction", err, correction.ErrCorrectionNotFound)
		}
		if cr.IsResolved() {
			return correction.ErrAlreadyResolved
		}

		loc, err := s.employeeLocation(ctx, cr.CompanyID, cr.EmployeeID)
		if err != nil {
			return err
		}
		found, err := findDayCycle(ctx, s.ledger, cr.CompanyID, cr.EmployeeID, cr.TargetDate, loc)
		if err != nil {
			return err
		}

		// a day with no cycle anchors the single entry on the request itself
		anchors := []string{cr.ID}
		if found.target != nil {
			anchors = cycleEventIDs(*found.target)
		}
		comment := auditComment(cr.ID, req.AdminNote)
		for _, id := range anchors {
			_, err := s.audit.Record(ctx, audit.RecordRequest{
				CompanyID:       cr.CompanyID,
				EmployeeID:      cr.EmployeeID,
				AffectedEventID: id,
				Field:           audit.FieldCorrectionState,
				OldValue:        string(correction.StatePending),
				NewValue:        string(correction.StateRejected),
				EditorID:        req.ApproverID,
				Comment:         comment,
			})
			if err != nil {
				return fmt.Errorf("failed to record audit entry for %s: %w", audit.FieldCorrectionState, err)
			}
			auditEntries++
		}

		resolved, err = s.repo.Resolve(ctx, cr.ID, cr.CompanyID, correction.StateRejected, req.ApproverID, req.AdminNote, s.now())
		if err != nil {
			return database.WrapStoreError("resolve correction", err, correction.ErrAlreadyResolved, correction.ErrCorrectionNotFound)
		}
		return nil
	})
	if err != nil {
		return correction.ResolveResponse{}, err
	}

	slog.Info("correction rejected",
		"company_id", resolved.CompanyID,
		"correction_id", resolved.ID,
		"approver_id", req.ApproverID,
		"audit_entries", auditEntries,
	)

	s.notify(ctx, notification.Notification{
		CompanyID: resolved.CompanyID,
		Topic:     notification.EmployeeTopic(resolved.CompanyID, resolved.EmployeeID),
		Type:      notification.TypeCorrectionRejected,
		Title:     "Attendance correction rejected",
		Message:   fmt.Sprintf("Your correction for %s was rejected", resolved.TargetDate.Format(time.DateOnly)),
		Data:      map[string]any{"correction_id": resolved.ID, "admin_note": resolved.AdminNote},
	})

	return correction.ResolveResponse{Correction: toResponse(resolved), AuditEntryCount: auditEntries}, nil
}

// Resolve implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Resolve(ctx context.Context, req correction.ResolveRequest) (correction.ResolveResponse, error) {
	switch req.Decision {
	case correction.DecisionApprove:
		return s.Approve(ctx, req)
	case correction.DecisionReject:
		return s.Reject(ctx, req)
	default:
		return correction.ResolveResponse{}, validator.Single("decision", correction.ErrInvalidDecision.Error())
	}
}

// Get implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Get(ctx context.Context, companyID, id string) (correction.CorrectionResponse, error) {
	if !validator.IsValidUUID(id) {
		return correction.CorrectionResponse{}, validator.Single("id", "id must be a valid UUID")
	}

	cr, err := s.repo.GetByID(ctx, id, companyID)
	if err != nil {
		return correction.CorrectionResponse{}, database.WrapStoreError("get correction", err, correction.ErrCorrectionNotFound)
	}
	return toResponse(cr), nil
}

// List implements correction.CorrectionService.
func (s *CorrectionServiceImpl) List(ctx context.Context, filter correction.ListFilter) (correction.ListCorrectionResponse, error) {
	if err := filter.Validate(); err != nil {
		return correction.ListCorrectionResponse{}, err
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return correction.ListCorrectionResponse{}, database.WrapStoreError("list corrections", err)
	}

	responses := make([]correction.CorrectionResponse, 0, len(items))
	for _, cr := range items {
		responses = append(responses, toResponse(cr))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return correction.ListCorrectionResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Corrections: responses,
	}, nil
}

// notify hands off to the dispatcher. Delivery is best effort.
func (s *CorrectionServiceImpl) notify(ctx context.Context, n notification.Notification) {
	if s.notifier == nil {
		return
	}
	n.CreatedAt = s.now()
	s.notifier.Notify(ctx, n)
}

func cycleEventIDs(c attendance.WorkCycle) []string {
	ids := []string{c.Entry.ID}
	for _, p := range c.Pauses {
		ids = append(ids, p.Start.ID)
		if p.End != nil && !p.ClosedByExit {
			ids = append(ids, p.End.ID)
		}
	}
	if c.Exit != nil {
		ids = append(ids, c.Exit.ID)
	}
	return ids
}

func auditComment(correctionID string, adminNote *string) string {
	if adminNote == nil || validator.IsEmpty(*adminNote) {
		return "correction " + correctionID
	}
	return "correction " + correctionID + ": " + *adminNote
}

func truncatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Microsecond)
	return &v
}

func truncatePauses(pauses *[]correction.ProposedPause) *[]correction.ProposedPause {
	if pauses == nil {
		return nil
	}
	out := make([]correction.ProposedPause, 0, len(*pauses))
	for _, p := range *pauses {
		out = append(out, correction.ProposedPause{
			Start: p.Start.UTC().Truncate(time.Microsecond),
			End:   p.End.UTC().Truncate(time.Microsecond),
		})
	}
	return &out
}

func toResponse(cr correction.CorrectionRequest) correction.CorrectionResponse {
	resp := correction.CorrectionResponse{
		ID:                cr.ID,
		EmployeeID:        cr.EmployeeID,
		TargetDate:        cr.TargetDate.Format(time.DateOnly),
		ProposedEntryTime: cr.ProposedEntryTime,
		ProposedExitTime:  cr.ProposedExitTime,
		Note:              cr.Note,
		ProposedBy:        cr.ProposedBy,
		State:             cr.State,
		AdminNote:         cr.AdminNote,
		ApproverID:        cr.ApproverID,
		ResolvedAt:        cr.ResolvedAt,
		CreatedAt:         cr.CreatedAt,
	}
	if cr.ProposedPauses != nil {
		resp.ProposedPauses = *cr.ProposedPauses
	}
	return resp
}
