package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config holds the attendance policy values
type Config struct {
	EarlyEntryGrace time.Duration
	// StatusCarryOver is how long an open cycle from before local midnight keeps
	// its status. It also bounds how far cycle queries look past their window.
	StatusCarryOver time.Duration
	DefaultLocation *time.Location
}

type AttendanceServiceImpl struct {
	tx          database.Transactor
	ledger      attendance.LedgerRepository
	employees   employee.EmployeeRepository
	assignments schedule.AssignmentRepository
	audit       audit.AuditService
	idempotency attendance.IdempotencyStore
	validator   Validator
	clock       attendance.Clock
	cfg         Config
}

// NewAttendanceService wires the clock-action service. idempotency may be nil.
func NewAttendanceService(
	tx database.Transactor,
	ledger attendance.LedgerRepository,
	employees employee.EmployeeRepository,
	assignments schedule.AssignmentRepository,
	auditService audit.AuditService,
	idempotency attendance.IdempotencyStore,
	clock attendance.Clock,
	cfg Config,
) *AttendanceServiceImpl {
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	if cfg.StatusCarryOver <= 0 {
		cfg.StatusCarryOver = 16 * time.Hour
	}
	if clock == nil {
		clock = attendance.SystemClock
	}
	return &AttendanceServiceImpl{
		tx:          tx,
		ledger:      ledger,
		employees:   employees,
		assignments: assignments,
		audit:       auditService,
		idempotency: idempotency,
		validator:   NewValidator(cfg.EarlyEntryGrace),
		clock:       clock,
		cfg:         cfg,
	}
}

var _ attendance.AttendanceService = (*AttendanceServiceImpl)(nil)

// now returns the clock time at the ledger's storage precision
func (s *AttendanceServiceImpl) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// lookupEmployee resolves the employee inside the company and their timezone
func (s *AttendanceServiceImpl) lookupEmployee(ctx context.Context, companyID, employeeID string) (employee.Employee, *time.Location, error) {
	emp, err := s.employees.GetByID(ctx, employeeID, companyID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.Employee{}, nil, attendance.ErrEmployeeNotFound
		}
		return employee.Employee{}, nil, database.WrapStoreError("get employee", err)
	}
	return emp, emp.Location(s.cfg.DefaultLocation), nil
}

// dayStart returns local midnight of the day containing t
func dayStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// dateStart returns local midnight of a calendar date parsed as UTC
func dateStart(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}

// currentView is the status window of one employee at one instant
type currentView struct {
	status attendance.Status
	events []attendance.Event
	last   *attendance.Event
}

// resolveCurrent reads today's events; with none, an open state from before
// midnight carries over while it is younger than StatusCarryOver.
func (s *AttendanceServiceImpl) resolveCurrent(ctx context.Context, companyID, employeeID string, now time.Time, loc *time.Location) (currentView, error) {
	start := dayStart(now, loc)
	end := start.AddDate(0, 0, 1)

	events, err := s.ledger.ListByEmployee(ctx, companyID, employeeID, start, end)
	if err != nil {
		return currentView{}, database.WrapStoreError("list events", err)
	}
	if last := LastEvent(events); last != nil {
		return currentView{status: StatusAfter(last.Kind), events: events, last: last}, nil
	}

	prev, err := s.ledger.LatestBefore(ctx, companyID, employeeID, start)
	if err != nil {
		return currentView{}, database.WrapStoreError("latest event", err)
	}
	if prev == nil || now.Sub(prev.CreatedAt) > s.cfg.StatusCarryOver {
		return currentView{status: attendance.StatusNotStarted}, nil
	}

	status := StatusAfter(prev.Kind)
	if status != attendance.StatusWorking && status != attendance.StatusOnBreak {
		return currentView{status: attendance.StatusNotStarted}, nil
	}

	events, err = s.ledger.ListByEmployee(ctx, companyID, employeeID, now.Add(-s.cfg.StatusCarryOver), end)
	if err != nil {
		return currentView{}, database.WrapStoreError("list events", err)
	}
	return currentView{status: status, events: events, last: LastEvent(events)}, nil
}

// CurrentStatus implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CurrentStatus(ctx context.Context, companyID, employeeID string) (attendance.StatusResponse, error) {
	if validator.IsEmpty(companyID) || validator.IsEmpty(employeeID) {
		return attendance.StatusResponse{}, validator.Single("employee_id", "employee_id is required")
	}

	_, loc, err := s.lookupEmployee(ctx, companyID, employeeID)
	if err != nil {
		return attendance.StatusResponse{}, err
	}

	now := s.now()
	view, err := s.resolveCurrent(ctx, companyID, employeeID, now, loc)
	if err != nil {
		return attendance.StatusResponse{}, err
	}

	resp := attendance.StatusResponse{
		EmployeeID:   employeeID,
		Status:       view.status,
		AllowedKinds: AllowedKinds(view.status),
		AsOf:         now,
	}
	if view.last != nil {
		last := toEventResponse(*view.last)
		resp.LastEvent = &last
	}

	if view.status == attendance.StatusWorking || view.status == attendance.StatusOnBreak {
		// The open cycle may have started before local midnight.
		from := dayStart(now, loc)
		if lookback := now.Add(-s.cfg.StatusCarryOver); lookback.Before(from) {
			from = lookback
		}
		events, err := s.ledger.ListByEmployee(ctx, companyID, employeeID, from, dayStart(now, loc).AddDate(0, 0, 1))
		if err != nil {
			return attendance.StatusResponse{}, database.WrapStoreError("list events", err)
		}
		rec := Reconcile(events)
		if n := len(rec.Cycles); n > 0 && rec.Cycles[n-1].Open() {
			cycle := toCycleResponse(rec.Cycles[n-1], now)
			resp.CurrentCycle = &cycle
		}
	}

	return resp, nil
}

// RecordEvent implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RecordEvent(ctx context.Context, req attendance.RecordEventRequest) (attendance.RecordEventResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecordEventResponse{}, err
	}

	idemKey := ""
	if req.IdempotencyKey != "" && s.idempotency != nil {
		idemKey = fmt.Sprintf("%s:%s:%s", req.CompanyID, req.EmployeeID, req.IdempotencyKey)
		if replay, ok, err := s.replay(ctx, idemKey, req); err != nil {
			return attendance.RecordEventResponse{}, err
		} else if ok {
			return replay, nil
		}
	}

	_, loc, err := s.lookupEmployee(ctx, req.CompanyID, req.EmployeeID)
	if err != nil {
		return attendance.RecordEventResponse{}, err
	}

	var created attendance.Event
	var warnings attendance.Warnings

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ledger.LockEmployee(ctx, req.CompanyID, req.EmployeeID); err != nil {
			return database.WrapStoreError("lock employee", err)
		}

		now := s.now()
		view, err := s.resolveCurrent(ctx, req.CompanyID, req.EmployeeID, now, loc)
		if err != nil {
			return err
		}
		if err := CheckTransition(view.status, req.Kind); err != nil {
			return err
		}

		assignment, err := s.assignments.GetAssignment(ctx, req.EmployeeID, dayStart(now, loc), req.CompanyID)
		if err != nil {
			// Validation fails open: a missing assignment only means no warnings.
			slog.Warn("failed to load assignment, recording without geofence checks",
				"company_id", req.CompanyID, "employee_id", req.EmployeeID, "error", err)
			assignment = schedule.Assignment{}
		}

		warnings = s.validator.Validate(ValidationInput{
			Kind:        req.Kind,
			At:          now,
			Coordinates: req.Coordinates(),
			WorkCenters: assignment.WorkCenters,
			Shift:       assignment.Shift,
			Location:    loc,
		})

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate event id: %w", err)
		}

		created, err = s.ledger.Append(ctx, attendance.Event{
			ID:                id.String(),
			CompanyID:         req.CompanyID,
			EmployeeID:        req.EmployeeID,
			Kind:              req.Kind,
			CreatedAt:         now,
			Latitude:          req.Latitude,
			Longitude:         req.Longitude,
			Observation:       req.Observation,
			AcceptanceState:   attendance.AcceptanceAccepted,
			LocationWarning:   warnings.LocationWarning,
			EarlyEntryWarning: warnings.EarlyEntryWarning,
			Justification:     req.Justification,
			UpdatedAt:         now,
		})
		if err != nil {
			return database.WrapStoreError("append event", err)
		}
		return nil
	})
	if err != nil {
		return attendance.RecordEventResponse{}, err
	}

	if idemKey != "" {
		if err := s.idempotency.Remember(ctx, idemKey, created.ID); err != nil {
			slog.Warn("failed to remember idempotency key", "key", idemKey, "event_id", created.ID, "error", err)
		}
	}

	slog.Info("attendance event recorded",
		"company_id", created.CompanyID,
		"employee_id", created.EmployeeID,
		"event_id", created.ID,
		"kind", created.Kind,
		"location_warning", warnings.LocationWarning,
		"early_entry_warning", warnings.EarlyEntryWarning,
	)

	return attendance.RecordEventResponse{
		Event:                 toEventResponse(created),
		StatusAfter:           StatusAfter(created.Kind),
		Warnings:              warnings,
		JustificationRequired: needsJustification(warnings.LocationWarning, req.Justification),
	}, nil
}

// needsJustification reports whether an off-site event still lacks a usable justification
func needsJustification(locationWarning bool, justification *string) bool {
	return locationWarning && (justification == nil || validator.IsEmpty(*justification))
}

// replay returns the event a previously seen Idempotency-Key produced
func (s *AttendanceServiceImpl) replay(ctx context.Context, key string, req attendance.RecordEventRequest) (attendance.RecordEventResponse, bool, error) {
	eventID, found, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		slog.Warn("idempotency lookup failed, processing request", "key", key, "error", err)
		return attendance.RecordEventResponse{}, false, nil
	}
	if !found {
		return attendance.RecordEventResponse{}, false, nil
	}

	event, err := s.ledger.GetByID(ctx, eventID, req.CompanyID)
	if err != nil {
		if errors.Is(err, attendance.ErrEventNotFound) {
			// The event was deleted by an admin since; treat the key as fresh.
			return attendance.RecordEventResponse{}, false, nil
		}
		return attendance.RecordEventResponse{}, false, database.WrapStoreError("get replayed event", err)
	}
	if event.EmployeeID != req.EmployeeID {
		return attendance.RecordEventResponse{}, false, nil
	}

	return attendance.RecordEventResponse{
		Event:       toEventResponse(event),
		StatusAfter: StatusAfter(event.Kind),
		Warnings: attendance.Warnings{
			LocationWarning:   event.LocationWarning,
			EarlyEntryWarning: event.EarlyEntryWarning,
		},
		JustificationRequired: needsJustification(event.LocationWarning, event.Justification),
		Replayed:              true,
	}, true, nil
}

// resolveRange turns a RangeFilter into the local window [from, to)
func (s *AttendanceServiceImpl) resolveRange(filter attendance.RangeFilter, loc *time.Location) (from, to time.Time, startDate, endDate string) {
	today := dayStart(s.now(), loc)
	from, to = today, today.AddDate(0, 0, 1)

	if d, ok := validator.IsValidDate(filter.StartDate); ok {
		from = dateStart(d, loc)
		to = from.AddDate(0, 0, 1)
	}
	if d, ok := validator.IsValidDate(filter.EndDate); ok {
		to = dateStart(d, loc).AddDate(0, 0, 1)
		if filter.StartDate == "" {
			from = dateStart(d, loc)
		}
	}
	return from, to, from.Format(time.DateOnly), to.AddDate(0, 0, -1).Format(time.DateOnly)
}

// Cycles implements attendance.AttendanceService.
// Cycles belong to the day of their entry; the fetch window is widened by
// StatusCarryOver on both sides so cycles crossing midnight stay whole.
func (s *AttendanceServiceImpl) Cycles(ctx context.Context, filter attendance.RangeFilter) (attendance.CyclesResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.CyclesResponse{}, err
	}

	_, loc, err := s.lookupEmployee(ctx, filter.CompanyID, filter.EmployeeID)
	if err != nil {
		return attendance.CyclesResponse{}, err
	}

	from, to, startDate, endDate := s.resolveRange(filter, loc)

	events, err := s.ledger.ListByEmployee(ctx, filter.CompanyID, filter.EmployeeID,
		from.Add(-s.cfg.StatusCarryOver), to.Add(s.cfg.StatusCarryOver))
	if err != nil {
		return attendance.CyclesResponse{}, database.WrapStoreError("list events", err)
	}

	now := s.now()
	rec := Reconcile(events)
	inWindow := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }

	resp := attendance.CyclesResponse{
		EmployeeID: filter.EmployeeID,
		StartDate:  startDate,
		EndDate:    endDate,
		Timezone:   loc.String(),
		Cycles:     []attendance.CycleResponse{},
		Orphans:    []attendance.EventResponse{},
	}

	for _, c := range rec.Cycles {
		if !inWindow(c.Entry.CreatedAt) {
			continue
		}
		resp.Cycles = append(resp.Cycles, toCycleResponse(c, now))
		resp.Summary.CycleCount++
		resp.Summary.ElapsedMinutes += c.ElapsedMinutes
		resp.Summary.PauseMinutes += c.PauseMinutes
		resp.Summary.EffectiveMinutes += c.EffectiveMinutes
		if c.MissingExit {
			resp.Summary.MissingExitCount++
		}
		if c.Open() {
			resp.Summary.HasOpenCycle = true
		}
	}
	for _, o := range rec.Orphans {
		if inWindow(o.CreatedAt) {
			resp.Orphans = append(resp.Orphans, toEventResponse(o))
		}
	}
	resp.Summary.OrphanCount = len(resp.Orphans)
	resp.Summary.EffectiveHours = minutesToHours(resp.Summary.EffectiveMinutes)
	resp.Summary.PauseHours = minutesToHours(resp.Summary.PauseMinutes)

	return resp, nil
}

func minutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}

// Events implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Events(ctx context.Context, filter attendance.RangeFilter) (attendance.EventsResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.EventsResponse{}, err
	}

	_, loc, err := s.lookupEmployee(ctx, filter.CompanyID, filter.EmployeeID)
	if err != nil {
		return attendance.EventsResponse{}, err
	}

	from, to, startDate, endDate := s.resolveRange(filter, loc)

	events, err := s.ledger.ListByEmployee(ctx, filter.CompanyID, filter.EmployeeID, from, to)
	if err != nil {
		return attendance.EventsResponse{}, database.WrapStoreError("list events", err)
	}
	SortEvents(events)

	resp := attendance.EventsResponse{
		EmployeeID: filter.EmployeeID,
		StartDate:  startDate,
		EndDate:    endDate,
		Timezone:   loc.String(),
		Events:     make([]attendance.EventResponse, 0, len(events)),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, toEventResponse(e))
	}
	return resp, nil
}
