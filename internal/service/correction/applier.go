package correction

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
	attendancesvc "github.com/cmlabs-hris/attendance-ledger/internal/service/attendance"
	"github.com/google/uuid"
)

type applyResult struct {
	auditEntries    int
	createdEventIDs []string
}

// applier rewrites one cycle of the ledger to match an approved request.
// Every mutation is paired with an audit entry in the same transaction.
type applier struct {
	ledger     attendance.LedgerRepository
	audit      audit.AuditService
	request    correction.CorrectionRequest
	approverID string
	comment    string
	now        time.Time
	result     applyResult
}

// dayCycle is the first cycle whose entry falls on the target day, with the
// entry of the cycle that follows it. next is zero when nothing follows.
type dayCycle struct {
	target *attendance.WorkCycle
	next   time.Time
}

func findDayCycle(ctx context.Context, ledger attendance.LedgerRepository, companyID, employeeID string, date time.Time, loc *time.Location) (dayCycle, error) {
	y, m, d := date.Date()
	dayFrom := time.Date(y, m, d, 0, 0, 0, 0, loc)
	dayTo := dayFrom.AddDate(0, 0, 1)

	events, err := ledger.ListByEmployee(ctx, companyID, employeeID, dayFrom, dayFrom.AddDate(0, 0, 2))
	if err != nil {
		return dayCycle{}, database.WrapStoreError("list events", err)
	}

	var found dayCycle
	for _, c := range attendancesvc.BuildCycles(events) {
		if found.target != nil {
			found.next = c.Entry.CreatedAt
			break
		}
		if !c.Entry.CreatedAt.Before(dayFrom) && c.Entry.CreatedAt.Before(dayTo) {
			cycle := c
			found.target = &cycle
			continue
		}
		if !c.Entry.CreatedAt.Before(dayTo) {
			found.next = c.Entry.CreatedAt
			break
		}
	}
	return found, nil
}

func (a *applier) apply(ctx context.Context, loc *time.Location) error {
	cr := a.request
	found, err := findDayCycle(ctx, a.ledger, cr.CompanyID, cr.EmployeeID, cr.TargetDate, loc)
	if err != nil {
		return err
	}

	if found.target == nil && cr.ProposedEntryTime == nil {
		return correction.ErrEntryTimeRequired
	}
	if err := a.checkTimeline(found.target, found.next); err != nil {
		return err
	}

	if found.target == nil {
		return a.createCycle(ctx)
	}
	return a.reviseCycle(ctx, *found.target)
}

type timelinePoint struct {
	at       time.Time
	field    string
	proposed bool
}

var timelineMessages = map[string]string{
	"proposed_entry_time": "proposed_entry_time must come before the pauses and exit of the cycle",
	"proposed_pauses":     "pauses must fall between entry and exit and must not overlap",
	"proposed_exit_time":  "proposed_exit_time must come after the entry and pauses of the cycle",
}

// checkTimeline merges the proposal over the stored cycle and requires
// entry < pauses... < exit, all before next when next is set. Stored values
// are only blamed when no proposed neighbour is.
func (a *applier) checkTimeline(cycle *attendance.WorkCycle, next time.Time) error {
	cr := a.request
	var points []timelinePoint

	if cr.ProposedEntryTime != nil {
		points = append(points, timelinePoint{*cr.ProposedEntryTime, "proposed_entry_time", true})
	} else if cycle != nil {
		points = append(points, timelinePoint{cycle.Entry.CreatedAt, "proposed_entry_time", false})
	}

	if cr.ProposedPauses != nil {
		for _, p := range *cr.ProposedPauses {
			points = append(points,
				timelinePoint{p.Start, "proposed_pauses", true},
				timelinePoint{p.End, "proposed_pauses", true},
			)
		}
	} else if cycle != nil {
		for _, p := range cycle.Pauses {
			points = append(points, timelinePoint{p.Start.CreatedAt, "proposed_pauses", false})
			if p.End != nil && !p.ClosedByExit {
				points = append(points, timelinePoint{p.End.CreatedAt, "proposed_pauses", false})
			}
		}
	}

	if cr.ProposedExitTime != nil {
		points = append(points, timelinePoint{*cr.ProposedExitTime, "proposed_exit_time", true})
	} else if cycle != nil && cycle.Exit != nil {
		points = append(points, timelinePoint{cycle.Exit.CreatedAt, "proposed_exit_time", false})
	}

	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if cur.at.After(prev.at) {
			continue
		}
		field := cur.field
		if !cur.proposed && prev.proposed {
			field = prev.field
		}
		return validator.Single(field, timelineMessages[field])
	}

	if len(points) > 0 && !next.IsZero() {
		last := points[len(points)-1]
		if last.proposed && !last.at.Before(next) {
			return validator.Single(last.field, last.field+" must come before the next cycle starts")
		}
	}
	return nil
}

// createCycle fills a day that has no cycle at all
func (a *applier) createCycle(ctx context.Context) error {
	cr := a.request
	if err := a.create(ctx, attendance.KindClockIn, *cr.ProposedEntryTime, audit.FieldEntryTime); err != nil {
		return err
	}
	if cr.ProposedPauses != nil {
		for _, p := range *cr.ProposedPauses {
			if err := a.createPause(ctx, p); err != nil {
				return err
			}
		}
	}
	if cr.ProposedExitTime != nil {
		if err := a.create(ctx, attendance.KindClockOut, *cr.ProposedExitTime, audit.FieldExitTime); err != nil {
			return err
		}
	}
	return nil
}

func (a *applier) reviseCycle(ctx context.Context, cycle attendance.WorkCycle) error {
	cr := a.request

	if cr.ProposedEntryTime != nil {
		if err := a.move(ctx, cycle.Entry, *cr.ProposedEntryTime, audit.FieldEntryTime); err != nil {
			return err
		}
	}

	if cr.ProposedPauses != nil {
		proposed := *cr.ProposedPauses
		for i, p := range proposed {
			if i >= len(cycle.Pauses) {
				if err := a.createPause(ctx, p); err != nil {
					return err
				}
				continue
			}
			existing := cycle.Pauses[i]
			if err := a.move(ctx, existing.Start, p.Start, audit.FieldPauseStart); err != nil {
				return err
			}
			if existing.End == nil || existing.ClosedByExit {
				if err := a.create(ctx, attendance.KindPauseEnd, p.End, audit.FieldPauseEnd); err != nil {
					return err
				}
				continue
			}
			if err := a.move(ctx, *existing.End, p.End, audit.FieldPauseEnd); err != nil {
				return err
			}
		}
		for i := len(proposed); i < len(cycle.Pauses); i++ {
			if err := a.removePause(ctx, cycle.Pauses[i]); err != nil {
				return err
			}
		}
	}

	if cr.ProposedExitTime != nil {
		if cycle.Exit == nil {
			return a.create(ctx, attendance.KindClockOut, *cr.ProposedExitTime, audit.FieldExitTime)
		}
		return a.move(ctx, *cycle.Exit, *cr.ProposedExitTime, audit.FieldExitTime)
	}
	return nil
}

func (a *applier) createPause(ctx context.Context, p correction.ProposedPause) error {
	if err := a.create(ctx, attendance.KindPauseStart, p.Start, audit.FieldPauseStart); err != nil {
		return err
	}
	return a.create(ctx, attendance.KindPauseEnd, p.End, audit.FieldPauseEnd)
}

func (a *applier) removePause(ctx context.Context, p attendance.Pause) error {
	if err := a.remove(ctx, p.Start, audit.FieldPauseStart); err != nil {
		return err
	}
	if p.End != nil && !p.ClosedByExit {
		return a.remove(ctx, *p.End, audit.FieldPauseEnd)
	}
	return nil
}

func (a *applier) create(ctx context.Context, kind attendance.Kind, at time.Time, field string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate event id: %w", err)
	}

	observation := "created by correction " + a.request.ID
	ev, err := a.ledger.Append(ctx, attendance.Event{
		ID:              id.String(),
		CompanyID:       a.request.CompanyID,
		EmployeeID:      a.request.EmployeeID,
		Kind:            kind,
		CreatedAt:       at.UTC().Truncate(time.Microsecond),
		Observation:     &observation,
		AcceptanceState: attendance.AcceptanceAccepted,
		UpdatedAt:       a.now,
	})
	if err != nil {
		return database.WrapStoreError("append event", err)
	}
	a.result.createdEventIDs = append(a.result.createdEventIDs, ev.ID)

	return a.record(ctx, ev.ID, field, "", attendancesvc.FormatAuditTime(ev.CreatedAt))
}

func (a *applier) move(ctx context.Context, ev attendance.Event, to time.Time, field string) error {
	to = to.UTC().Truncate(time.Microsecond)
	if to.Equal(ev.CreatedAt) {
		return nil
	}

	updated := ev
	if updated.OriginalCreatedAt == nil {
		original := ev.CreatedAt
		updated.OriginalCreatedAt = &original
	}
	updated.CreatedAt = to
	updated.UpdatedAt = a.now

	if err := a.ledger.Update(ctx, updated); err != nil {
		return database.WrapStoreError("update event", err, attendance.ErrEventNotFound)
	}

	return a.record(ctx, ev.ID, field, attendancesvc.FormatAuditTime(ev.CreatedAt), attendancesvc.FormatAuditTime(to))
}

func (a *applier) remove(ctx context.Context, ev attendance.Event, field string) error {
	if err := a.ledger.Delete(ctx, ev.ID, ev.CompanyID); err != nil {
		return database.WrapStoreError("delete event", err, attendance.ErrEventNotFound)
	}
	return a.record(ctx, ev.ID, field, attendancesvc.FormatAuditTime(ev.CreatedAt), "")
}

func (a *applier) record(ctx context.Context, eventID, field, oldValue, newValue string) error {
	_, err := a.audit.Record(ctx, audit.RecordRequest{
		CompanyID:       a.request.CompanyID,
		EmployeeID:      a.request.EmployeeID,
		AffectedEventID: eventID,
		Field:           field,
		OldValue:        oldValue,
		NewValue:        newValue,
		EditorID:        a.approverID,
		Comment:         a.comment,
	})
	if err != nil {
		return fmt.Errorf("failed to record audit entry for %s: %w", field, err)
	}
	a.result.auditEntries++
	return nil
}
