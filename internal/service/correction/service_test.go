package correction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-ledger/internal/repository/memory"
	attendancesvc "github.com/cmlabs-hris/attendance-ledger/internal/service/attendance"
	auditsvc "github.com/cmlabs-hris/attendance-ledger/internal/service/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCompany  = "company-a"
	otherCompany = "company-b"
	testEmployee = "employee-1"
	testApprover = "admin-1"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg notification.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) last() notification.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type fixture struct {
	store      *memory.Store
	now        time.Time
	audit      *auditsvc.AuditServiceImpl
	attendance *attendancesvc.AttendanceServiceImpl
	svc        *CorrectionServiceImpl
	notifier   *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.AddEmployee(employee.Employee{
		ID: testEmployee, CompanyID: testCompany, FullName: "Ada", Timezone: "UTC", IsActive: true,
	})

	f := &fixture{store: store, now: time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), notifier: &recordingNotifier{}}
	clock := attendance.ClockFunc(func() time.Time { return f.now })

	f.audit = auditsvc.NewAuditService(store.Audit(), store.Employees(), clock.Now, time.UTC)
	f.attendance = attendancesvc.NewAttendanceService(store, store.Ledger(), store.Employees(), store.Assignments(),
		f.audit, nil, clock, attendancesvc.Config{})
	f.svc = NewCorrectionService(store, store.Corrections(), store.Ledger(), store.Employees(), f.audit, f.notifier, clock, time.UTC)
	return f
}

// seed writes events straight to the ledger
func (f *fixture) seed(t *testing.T, pairs ...any) []attendance.Event {
	t.Helper()
	var events []attendance.Event
	for i := 0; i+1 < len(pairs); i += 2 {
		ev, err := f.store.Ledger().Append(context.Background(), attendance.Event{
			ID:              newID(t),
			CompanyID:       testCompany,
			EmployeeID:      testEmployee,
			Kind:            pairs[i].(attendance.Kind),
			CreatedAt:       mustTime(t, pairs[i+1].(string)),
			AcceptanceState: attendance.AcceptanceAccepted,
		})
		require.NoError(t, err)
		events = append(events, ev)
	}
	return events
}

func (f *fixture) file(t *testing.T, req correction.FileCorrectionRequest) correction.CorrectionResponse {
	t.Helper()
	req.CompanyID = testCompany
	if req.EmployeeID == "" {
		req.EmployeeID = testEmployee
	}
	resp, err := f.svc.FileCorrection(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func (f *fixture) approve(id string) (correction.ResolveResponse, error) {
	return f.svc.Approve(context.Background(), correction.ResolveRequest{
		CompanyID: testCompany, RequestID: id, ApproverID: testApprover, AdminNote: ptr("ok"),
	})
}

func (f *fixture) cycles(t *testing.T, date string) attendance.CyclesResponse {
	t.Helper()
	resp, err := f.attendance.Cycles(context.Background(), attendance.RangeFilter{
		CompanyID: testCompany, EmployeeID: testEmployee, StartDate: date,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) employeeTrail(t *testing.T) audit.TrailResponse {
	t.Helper()
	trail, err := f.audit.ByEmployee(context.Background(), audit.EmployeeTrailFilter{
		CompanyID: testCompany, EmployeeID: testEmployee, StartDate: "2024-01-01", EndDate: "2024-12-31",
	})
	require.NoError(t, err)
	return trail
}

// assertUntouched checks a failed approval left the request pending and the
// 2024-03-04 cycle as seeded
func (f *fixture) assertUntouched(t *testing.T, correctionID string, effectiveMinutes int) {
	t.Helper()
	got, err := f.svc.Get(context.Background(), testCompany, correctionID)
	require.NoError(t, err)
	assert.Equal(t, correction.StatePending, got.State)
	assert.Zero(t, f.employeeTrail(t).Total)

	day := f.cycles(t, "2024-03-04")
	require.Len(t, day.Cycles, 1)
	assert.Equal(t, effectiveMinutes, day.Cycles[0].EffectiveMinutes)
	assert.Empty(t, day.Orphans)
}

func newID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id.String()
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return at
}

func ptr[T any](v T) *T { return &v }

func TestApprove_MovesExitWithSingleAuditEntry(t *testing.T) {
	f := newFixture(t)
	events := f.seed(t,
		attendance.KindClockIn, "2024-03-04T09:00:00Z",
		attendance.KindClockOut, "2024-03-04T17:00:00Z",
	)

	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate:       "2024-03-04",
		ProposedExitTime: ptr("2024-03-04T18:00:00Z"),
		Note:             ptr("forgot to clock out"),
	})
	assert.Equal(t, correction.StatePending, cr.State)

	resp, err := f.approve(cr.ID)
	require.NoError(t, err)
	assert.Equal(t, correction.StateApproved, resp.Correction.State)
	assert.Equal(t, 1, resp.AuditEntryCount)
	assert.Empty(t, resp.CreatedEventIDs)
	require.NotNil(t, resp.Correction.ResolvedAt)
	assert.Equal(t, testApprover, *resp.Correction.ApproverID)

	trail, err := f.audit.ByEvent(context.Background(), testCompany, events[1].ID)
	require.NoError(t, err)
	require.Len(t, trail.Entries, 1)
	entry := trail.Entries[0]
	assert.Equal(t, audit.FieldExitTime, entry.Field)
	assert.Equal(t, "2024-03-04T17:00:00Z", entry.OldValue)
	assert.Equal(t, "2024-03-04T18:00:00Z", entry.NewValue)
	assert.Equal(t, testApprover, entry.EditorID)
	assert.Equal(t, "correction "+cr.ID+": ok", entry.Comment)
	assert.Equal(t, 1, f.employeeTrail(t).Total)

	day := f.cycles(t, "2024-03-04")
	require.Len(t, day.Cycles, 1)
	assert.Equal(t, 540, day.Cycles[0].EffectiveMinutes)
	require.NotNil(t, day.Cycles[0].Exit.OriginalCreatedAt)
	assert.Equal(t, mustTime(t, "2024-03-04T17:00:00Z"), *day.Cycles[0].Exit.OriginalCreatedAt)

	sent := f.notifier.last()
	assert.Equal(t, notification.TypeCorrectionApproved, sent.Type)
	assert.Equal(t, notification.EmployeeTopic(testCompany, testEmployee), sent.Topic)
}

func TestApprove_IsOneShot(t *testing.T) {
	f := newFixture(t)
	f.seed(t, attendance.KindClockIn, "2024-03-04T09:00:00Z")
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04", ProposedExitTime: ptr("2024-03-04T17:00:00Z"),
	})

	_, err := f.approve(cr.ID)
	require.NoError(t, err)

	_, err = f.approve(cr.ID)
	assert.ErrorIs(t, err, correction.ErrAlreadyResolved)

	_, err = f.svc.Reject(context.Background(), correction.ResolveRequest{
		CompanyID: testCompany, RequestID: cr.ID, ApproverID: testApprover,
	})
	assert.ErrorIs(t, err, correction.ErrAlreadyResolved)

	// Only the first approval touched the ledger
	assert.Equal(t, 1, f.employeeTrail(t).Total)
	assert.Len(t, f.cycles(t, "2024-03-04").Cycles, 1)
}

func TestApprove_ConcurrentApprovalsApplyOnce(t *testing.T) {
	f := newFixture(t)
	f.seed(t, attendance.KindClockIn, "2024-03-04T09:00:00Z")
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04", ProposedExitTime: ptr("2024-03-04T17:00:00Z"),
	})

	const attempts = 5
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.approve(cr.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, correction.ErrAlreadyResolved)
	}
	assert.Equal(t, 1, succeeded)

	day := f.cycles(t, "2024-03-04")
	require.Len(t, day.Cycles, 1)
	require.NotNil(t, day.Cycles[0].Exit)
	assert.Equal(t, 1, f.employeeTrail(t).Total)
}

func TestApprove_CreatesMissingDay(t *testing.T) {
	f := newFixture(t)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate:        "2024-03-04",
		ProposedEntryTime: ptr("2024-03-04T09:00:00Z"),
		ProposedExitTime:  ptr("2024-03-04T17:00:00Z"),
		ProposedPauses: &[]correction.PauseProposal{
			{Start: "2024-03-04T12:00:00Z", End: "2024-03-04T12:45:00Z"},
		},
	})

	resp, err := f.approve(cr.ID)
	require.NoError(t, err)
	assert.Len(t, resp.CreatedEventIDs, 4)
	assert.Equal(t, 4, resp.AuditEntryCount)

	for _, e := range f.employeeTrail(t).Entries {
		assert.Equal(t, "create", e.Action)
		assert.Empty(t, e.OldValue)
	}

	day := f.cycles(t, "2024-03-04")
	require.Len(t, day.Cycles, 1)
	c := day.Cycles[0]
	assert.Equal(t, 45, c.PauseMinutes)
	assert.Equal(t, 435, c.EffectiveMinutes)
	require.NotNil(t, c.Entry.Observation)
	assert.Equal(t, "created by correction "+cr.ID, *c.Entry.Observation)
}

func TestApprove_EmptyDayWithoutEntryRollsBack(t *testing.T) {
	f := newFixture(t)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04", ProposedExitTime: ptr("2024-03-04T17:00:00Z"),
	})

	_, err := f.approve(cr.ID)
	assert.ErrorIs(t, err, correction.ErrEntryTimeRequired)

	got, err := f.svc.Get(context.Background(), testCompany, cr.ID)
	require.NoError(t, err)
	assert.Equal(t, correction.StatePending, got.State)
	assert.Empty(t, f.cycles(t, "2024-03-04").Cycles)
	assert.Zero(t, f.employeeTrail(t).Total)
}

func TestApprove_ClosesMissingExit(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		attendance.KindClockIn, "2024-03-04T09:00:00Z",
		attendance.KindClockIn, "2024-03-05T09:00:00Z",
	)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04", ProposedExitTime: ptr("2024-03-04T17:30:00Z"),
	})

	resp, err := f.approve(cr.ID)
	require.NoError(t, err)
	require.Len(t, resp.CreatedEventIDs, 1)

	day := f.cycles(t, "2024-03-04")
	require.Len(t, day.Cycles, 1)
	assert.False(t, day.Cycles[0].MissingExit)
	assert.Equal(t, 510, day.Cycles[0].EffectiveMinutes)
}

func TestApprove_ReplacesPauses(t *testing.T) {
	f := newFixture(t)
	events := f.seed(t,
		attendance.KindClockIn, "2024-03-04T09:00:00Z",
		attendance.KindPauseStart, "2024-03-04T12:00:00Z",
		attendance.KindPauseEnd, "2024-03-04T13:00:00Z",
		attendance.KindClockOut, "2024-03-04T17:00:00Z",
	)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04",
		ProposedPauses: &[]correction.PauseProposal{
			{Start: "2024-03-04T12:00:00Z", End: "2024-03-04T12:30:00Z"},
			{Start: "2024-03-04T15:00:00Z", End: "2024-03-04T15:15:00Z"},
		},
	})

	resp, err := f.approve(cr.ID)
	require.NoError(t, err)
	// pause 1 end moved, pause 2 created
	assert.Equal(t, 3, resp.AuditEntryCount)
	assert.Len(t, resp.CreatedEventIDs, 2)

	trail, err := f.audit.ByEvent(context.Background(), testCompany, events[2].ID)
	require.NoError(t, err)
	require.Len(t, trail.Entries, 1)
	assert.Equal(t, audit.FieldPauseEnd, trail.Entries[0].Field)
	assert.Equal(t, "2024-03-04T13:00:00Z", trail.Entries[0].OldValue)

	day := f.cycles(t, "2024-03-04")
	require.Len(t, day.Cycles, 1)
	assert.Len(t, day.Cycles[0].Pauses, 2)
	assert.Equal(t, 45, day.Cycles[0].PauseMinutes)
}

func TestApprove_EmptyPauseListRemovesPauses(t *testing.T) {
	f := newFixture(t)
	events := f.seed(t,
		attendance.KindClockIn, "2024-03-04T09:00:00Z",
		attendance.KindPauseStart, "2024-03-04T12:00:00Z",
		attendance.KindPauseEnd, "2024-03-04T13:00:00Z",
		attendance.KindClockOut, "2024-03-04T17:00:00Z",
	)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04", ProposedPauses: &[]correction.PauseProposal{},
	})

	resp, err := f.approve(cr.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.AuditEntryCount)

	trail, err := f.audit.ByEvent(context.Background(), testCompany, events[1].ID)
	require.NoError(t, err)
	require.Len(t, trail.Entries, 1)
	assert.Equal(t, "delete", trail.Entries[0].Action)

	day := f.cycles(t, "2024-03-04")
	require.Len(t, day.Cycles, 1)
	assert.Empty(t, day.Cycles[0].Pauses)
	assert.Equal(t, 480, day.Cycles[0].EffectiveMinutes)
}

func TestApprove_PauseClosedByExitGetsItsOwnEnd(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		attendance.KindClockIn, "2024-03-04T09:00:00Z",
		attendance.KindPauseStart, "2024-03-04T16:00:00Z",
		attendance.KindClockOut, "2024-03-04T17:00:00Z",
	)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04",
		ProposedPauses: &[]correction.PauseProposal{
			{Start: "2024-03-04T16:00:00Z", End: "2024-03-04T16:30:00Z"},
		},
	})

	resp, err := f.approve(cr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.AuditEntryCount)

	day := f.cycles(t, "2024-03-04")
	require.Len(t, day.Cycles, 1)
	require.Len(t, day.Cycles[0].Pauses, 1)
	assert.False(t, day.Cycles[0].Pauses[0].ClosedByExit)
	assert.Equal(t, 450, day.Cycles[0].EffectiveMinutes)
}

func TestReject_LeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	events := f.seed(t, attendance.KindClockIn, "2024-03-04T09:00:00Z")
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04", ProposedExitTime: ptr("2024-03-04T17:00:00Z"),
	})

	resp, err := f.svc.Resolve(context.Background(), correction.ResolveRequest{
		CompanyID: testCompany, RequestID: cr.ID, ApproverID: testApprover,
		Decision: correction.DecisionReject, AdminNote: ptr("no evidence"),
	})
	require.NoError(t, err)
	assert.Equal(t, correction.StateRejected, resp.Correction.State)
	assert.Equal(t, 1, resp.AuditEntryCount)
	assert.Empty(t, resp.CreatedEventIDs)

	day := f.cycles(t, "2024-03-04")
	require.Len(t, day.Cycles, 1)
	assert.Nil(t, day.Cycles[0].Exit)
	assert.Nil(t, day.Cycles[0].Entry.OriginalCreatedAt)

	trail, err := f.audit.ByEvent(context.Background(), testCompany, events[0].ID)
	require.NoError(t, err)
	require.Len(t, trail.Entries, 1)
	entry := trail.Entries[0]
	assert.Equal(t, audit.FieldCorrectionState, entry.Field)
	assert.Equal(t, "PENDING", entry.OldValue)
	assert.Equal(t, "REJECTED", entry.NewValue)
	assert.Equal(t, testApprover, entry.EditorID)
	assert.Equal(t, "correction "+cr.ID+": no evidence", entry.Comment)
	assert.Equal(t, 1, f.employeeTrail(t).Total)
	assert.Equal(t, notification.TypeCorrectionRejected, f.notifier.last().Type)
}

func TestReject_AuditsEveryEventOfTheCycle(t *testing.T) {
	f := newFixture(t)
	events := f.seed(t,
		attendance.KindClockIn, "2024-03-04T09:00:00Z",
		attendance.KindPauseStart, "2024-03-04T12:00:00Z",
		attendance.KindPauseEnd, "2024-03-04T13:00:00Z",
		attendance.KindClockOut, "2024-03-04T17:00:00Z",
		attendance.KindClockIn, "2024-03-05T09:00:00Z",
	)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04", ProposedExitTime: ptr("2024-03-04T18:00:00Z"),
	})

	resp, err := f.svc.Reject(context.Background(), correction.ResolveRequest{
		CompanyID: testCompany, RequestID: cr.ID, ApproverID: testApprover,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.AuditEntryCount)

	for _, ev := range events[:4] {
		trail, err := f.audit.ByEvent(context.Background(), testCompany, ev.ID)
		require.NoError(t, err)
		require.Len(t, trail.Entries, 1, "event %s", ev.Kind)
		assert.Equal(t, audit.FieldCorrectionState, trail.Entries[0].Field)
		assert.Equal(t, "correction "+cr.ID, trail.Entries[0].Comment)
	}
	next, err := f.audit.ByEvent(context.Background(), testCompany, events[4].ID)
	require.NoError(t, err)
	assert.Empty(t, next.Entries)
	assert.Equal(t, 420, f.cycles(t, "2024-03-04").Cycles[0].EffectiveMinutes)
}

func TestReject_EmptyDayAnchorsEntryOnRequest(t *testing.T) {
	f := newFixture(t)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate:        "2024-03-04",
		ProposedEntryTime: ptr("2024-03-04T09:00:00Z"),
		ProposedExitTime:  ptr("2024-03-04T17:00:00Z"),
	})

	resp, err := f.svc.Reject(context.Background(), correction.ResolveRequest{
		CompanyID: testCompany, RequestID: cr.ID, ApproverID: testApprover, AdminNote: ptr("duplicate"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.AuditEntryCount)
	assert.Empty(t, f.cycles(t, "2024-03-04").Cycles)

	trail, err := f.audit.ByEvent(context.Background(), testCompany, cr.ID)
	require.NoError(t, err)
	require.Len(t, trail.Entries, 1)
	assert.Equal(t, audit.FieldCorrectionState, trail.Entries[0].Field)
	assert.Equal(t, "PENDING", trail.Entries[0].OldValue)
	assert.Equal(t, "REJECTED", trail.Entries[0].NewValue)
	assert.Equal(t, "correction "+cr.ID+": duplicate", trail.Entries[0].Comment)
}

func TestApprove_EntryAfterStoredExitIsRejected(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		attendance.KindClockIn, "2024-03-04T09:00:00Z",
		attendance.KindClockOut, "2024-03-04T17:00:00Z",
	)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04", ProposedEntryTime: ptr("2024-03-04T18:00:00Z"),
	})

	_, err := f.approve(cr.ID)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "proposed_entry_time")

	f.assertUntouched(t, cr.ID, 480)
}

func TestApprove_PausesOutsideStoredCycleAreRejected(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		attendance.KindClockIn, "2024-03-04T09:00:00Z",
		attendance.KindClockOut, "2024-03-04T17:00:00Z",
	)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04",
		ProposedPauses: &[]correction.PauseProposal{
			{Start: "2024-03-04T18:00:00Z", End: "2024-03-04T18:30:00Z"},
		},
	})

	_, err := f.approve(cr.ID)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "proposed_pauses")

	f.assertUntouched(t, cr.ID, 480)
}

func TestApprove_MergedTimeline(t *testing.T) {
	tests := []struct {
		name      string
		req       correction.FileCorrectionRequest
		wantField string
	}{
		{
			name: "exit before stored pause",
			req: correction.FileCorrectionRequest{
				ProposedExitTime: ptr("2024-03-04T11:00:00Z"),
			},
			wantField: "proposed_exit_time",
		},
		{
			name: "entry inside stored pause",
			req: correction.FileCorrectionRequest{
				ProposedEntryTime: ptr("2024-03-04T12:30:00Z"),
			},
			wantField: "proposed_entry_time",
		},
		{
			name: "exit past next cycle",
			req: correction.FileCorrectionRequest{
				ProposedExitTime: ptr("2024-03-05T10:00:00Z"),
			},
			wantField: "proposed_exit_time",
		},
		{
			name: "pause inside the cycle",
			req: correction.FileCorrectionRequest{
				ProposedPauses: &[]correction.PauseProposal{
					{Start: "2024-03-04T14:00:00Z", End: "2024-03-04T14:30:00Z"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t,
				attendance.KindClockIn, "2024-03-04T09:00:00Z",
				attendance.KindPauseStart, "2024-03-04T12:00:00Z",
				attendance.KindPauseEnd, "2024-03-04T13:00:00Z",
				attendance.KindClockOut, "2024-03-04T17:00:00Z",
				attendance.KindClockIn, "2024-03-05T09:00:00Z",
			)
			req := tt.req
			req.TargetDate = "2024-03-04"
			cr := f.file(t, req)

			_, err := f.approve(cr.ID)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.ToMap(), tt.wantField)
			f.assertUntouched(t, cr.ID, 420)
		})
	}
}

func TestResolve_UnknownDecision(t *testing.T) {
	f := newFixture(t)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04", ProposedEntryTime: ptr("2024-03-04T09:00:00Z"),
	})

	_, err := f.svc.Resolve(context.Background(), correction.ResolveRequest{
		CompanyID: testCompany, RequestID: cr.ID, ApproverID: testApprover, Decision: "maybe",
	})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "decision")
}

func TestFileCorrection_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		req   correction.FileCorrectionRequest
		field string
	}{
		{
			name:  "future date",
			req:   correction.FileCorrectionRequest{TargetDate: "2024-03-07", ProposedEntryTime: ptr("2024-03-07T09:00:00Z")},
			field: "target_date",
		},
		{
			name:  "nothing proposed",
			req:   correction.FileCorrectionRequest{TargetDate: "2024-03-04"},
			field: "proposed_fields",
		},
		{
			name: "exit before entry",
			req: correction.FileCorrectionRequest{
				TargetDate:        "2024-03-04",
				ProposedEntryTime: ptr("2024-03-04T17:00:00Z"),
				ProposedExitTime:  ptr("2024-03-04T09:00:00Z"),
			},
			field: "proposed_exit_time",
		},
		{
			name: "overlapping pauses",
			req: correction.FileCorrectionRequest{
				TargetDate: "2024-03-04",
				ProposedPauses: &[]correction.PauseProposal{
					{Start: "2024-03-04T12:00:00Z", End: "2024-03-04T13:00:00Z"},
					{Start: "2024-03-04T12:30:00Z", End: "2024-03-04T14:00:00Z"},
				},
			},
			field: "proposed_pauses[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.CompanyID = testCompany
			req.EmployeeID = testEmployee

			_, err := f.svc.FileCorrection(context.Background(), req)

			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.ToMap(), tt.field)
		})
	}
}

func TestFileCorrection_NotifiesAdmins(t *testing.T) {
	f := newFixture(t)
	cr := f.file(t, correction.FileCorrectionRequest{
		TargetDate: "2024-03-04", ProposedEntryTime: ptr("2024-03-04T09:00:00Z"),
	})

	assert.Equal(t, testEmployee, cr.ProposedBy)
	sent := f.notifier.last()
	assert.Equal(t, notification.TypeCorrectionFiled, sent.Type)
	assert.Equal(t, notification.AdminTopic(testCompany), sent.Topic)
	assert.Equal(t, cr.ID, sent.Data["correction_id"])
}

func TestGetAndList_AreTenantScoped(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for _, d := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		f.now = f.now.Add(time.Minute)
		ids = append(ids, f.file(t, correction.FileCorrectionRequest{
			TargetDate: d, ProposedEntryTime: ptr(d + "T09:00:00Z"),
		}).ID)
	}

	_, err := f.svc.Get(context.Background(), otherCompany, ids[0])
	assert.ErrorIs(t, err, correction.ErrCorrectionNotFound)

	page, err := f.svc.List(context.Background(), correction.ListFilter{CompanyID: testCompany, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, "1-2 of 3", page.Showing)
	require.Len(t, page.Corrections, 2)
	assert.Equal(t, ids[2], page.Corrections[0].ID)

	other, err := f.svc.List(context.Background(), correction.ListFilter{CompanyID: otherCompany})
	require.NoError(t, err)
	assert.Zero(t, other.TotalCount)
	assert.Equal(t, "0 of 0", other.Showing)
}
