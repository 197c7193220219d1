package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
)

// FormatAuditTime renders timestamps the way audit entries store them
func FormatAuditTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatStringPtr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type fieldChange struct {
	field    string
	oldValue string
	newValue string
}

// diffEdit applies req to a copy of ev and lists every field that changed
func diffEdit(ev attendance.Event, req attendance.EditEventRequest) (attendance.Event, []fieldChange, error) {
	updated := ev
	var changes []fieldChange

	if req.CreatedAt != nil {
		t, ok := validator.IsValidDateTime(*req.CreatedAt)
		if !ok {
			return ev, nil, validator.Single("created_at", "created_at must be an RFC3339 timestamp")
		}
		t = t.UTC().Truncate(time.Microsecond)
		if !t.Equal(ev.CreatedAt) {
			changes = append(changes, fieldChange{audit.FieldCreatedAt, FormatAuditTime(ev.CreatedAt), FormatAuditTime(t)})
			if updated.OriginalCreatedAt == nil {
				original := ev.CreatedAt
				updated.OriginalCreatedAt = &original
			}
			updated.CreatedAt = t
		}
	}

	if req.Kind != nil && *req.Kind != ev.Kind {
		changes = append(changes, fieldChange{audit.FieldKind, string(ev.Kind), string(*req.Kind)})
		updated.Kind = *req.Kind
	}

	if req.Latitude != nil && !floatPtrEqual(req.Latitude, ev.Latitude) {
		changes = append(changes, fieldChange{audit.FieldLatitude, formatFloatPtr(ev.Latitude), formatFloatPtr(req.Latitude)})
		updated.Latitude = req.Latitude
	}

	if req.Longitude != nil && !floatPtrEqual(req.Longitude, ev.Longitude) {
		changes = append(changes, fieldChange{audit.FieldLongitude, formatFloatPtr(ev.Longitude), formatFloatPtr(req.Longitude)})
		updated.Longitude = req.Longitude
	}

	if req.Observation != nil && !stringPtrEqual(req.Observation, ev.Observation) {
		changes = append(changes, fieldChange{audit.FieldObservation, formatStringPtr(ev.Observation), *req.Observation})
		updated.Observation = req.Observation
	}

	if req.AcceptanceState != nil && *req.AcceptanceState != ev.AcceptanceState {
		changes = append(changes, fieldChange{audit.FieldAcceptanceState, string(ev.AcceptanceState), string(*req.AcceptanceState)})
		updated.AcceptanceState = *req.AcceptanceState
	}

	if req.Justification != nil && !stringPtrEqual(req.Justification, ev.Justification) {
		changes = append(changes, fieldChange{audit.FieldJustification, formatStringPtr(ev.Justification), *req.Justification})
		updated.Justification = req.Justification
	}

	return updated, changes, nil
}

// EditEvent implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) EditEvent(ctx context.Context, req attendance.EditEventRequest) (attendance.EditEventResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EditEventResponse{}, err
	}

	var updated attendance.Event
	var changes []fieldChange

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ev, err := s.ledger.GetByID(ctx, req.EventID, req.CompanyID)
		if err != nil {
			return database.WrapStoreError("get event", err, attendance.ErrEventNotFound)
		}

		if err := s.ledger.LockEmployee(ctx, ev.CompanyID, ev.EmployeeID); err != nil {
			return database.WrapStoreError("lock employee", err)
		}

		updated, changes, err = diffEdit(ev, req)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return attendance.ErrNoChanges
		}

		updated.UpdatedAt = s.now()
		if err := s.ledger.Update(ctx, updated); err != nil {
			return database.WrapStoreError("update event", err, attendance.ErrEventNotFound)
		}

		for _, c := range changes {
			if _, err := s.audit.Record(ctx, audit.RecordRequest{
				CompanyID:       ev.CompanyID,
				EmployeeID:      ev.EmployeeID,
				AffectedEventID: ev.ID,
				Field:           c.field,
				OldValue:        c.oldValue,
				NewValue:        c.newValue,
				EditorID:        req.EditorID,
				Comment:         req.Comment,
			}); err != nil {
				return fmt.Errorf("failed to record audit entry for %s: %w", c.field, err)
			}
		}
		return nil
	})
	if err != nil {
		return attendance.EditEventResponse{}, err
	}

	fields := make([]string, 0, len(changes))
	for _, c := range changes {
		fields = append(fields, c.field)
	}

	slog.Info("attendance event edited",
		"company_id", updated.CompanyID,
		"event_id", updated.ID,
		"editor_id", req.EditorID,
		"fields", fields,
	)

	return attendance.EditEventResponse{
		Event:         toEventResponse(updated),
		ChangedFields: fields,
	}, nil
}

// DeleteEvent implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) DeleteEvent(ctx context.Context, req attendance.DeleteEventRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ev, err := s.ledger.GetByID(ctx, req.EventID, req.CompanyID)
		if err != nil {
			return database.WrapStoreError("get event", err, attendance.ErrEventNotFound)
		}

		if err := s.ledger.LockEmployee(ctx, ev.CompanyID, ev.EmployeeID); err != nil {
			return database.WrapStoreError("lock employee", err)
		}

		if err := s.ledger.Delete(ctx, ev.ID, ev.CompanyID); err != nil {
			return database.WrapStoreError("delete event", err, attendance.ErrEventNotFound)
		}

		_, err = s.audit.Record(ctx, audit.RecordRequest{
			CompanyID:       ev.CompanyID,
			EmployeeID:      ev.EmployeeID,
			AffectedEventID: ev.ID,
			Field:           audit.FieldEvent,
			OldValue:        DescribeEvent(ev),
			NewValue:        "",
			EditorID:        req.EditorID,
			Comment:         req.Comment,
		})
		if err != nil {
			return fmt.Errorf("failed to record audit entry for deletion: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, attendance.ErrEventNotFound) {
			return attendance.ErrEventNotFound
		}
		return err
	}

	slog.Info("attendance event deleted", "company_id", req.CompanyID, "event_id", req.EventID, "editor_id", req.EditorID)
	return nil
}

// DescribeEvent renders an event as KIND@timestamp for creation and deletion audit values
func DescribeEvent(ev attendance.Event) string {
	return string(ev.Kind) + "@" + FormatAuditTime(ev.CreatedAt)
}
