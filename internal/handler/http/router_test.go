package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/user"
	"github.com/cmlabs-hris/attendance-ledger/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-ledger/internal/repository/memory"
	attendancesvc "github.com/cmlabs-hris/attendance-ledger/internal/service/attendance"
	auditsvc "github.com/cmlabs-hris/attendance-ledger/internal/service/audit"
	correctionsvc "github.com/cmlabs-hris/attendance-ledger/internal/service/correction"
	notificationsvc "github.com/cmlabs-hris/attendance-ledger/internal/service/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	companyA   = "company-a"
	employeeID = "employee-1"
	managerID  = "manager-1"
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

func (n *recordingNotifier) all() []notification.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Notification(nil), n.sent...)
}

type envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    json.RawMessage       `json:"data"`
	Error   *response.ErrorDetail `json:"error"`
	Meta    *response.Meta        `json:"meta"`
}

type apiFixture struct {
	jwt      *jwt.JWTService
	store    *memory.Store
	notifier *recordingNotifier
	router   http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore()
	store.AddEmployee(employee.Employee{ID: employeeID, CompanyID: companyA, FullName: "Ada", Timezone: "UTC", IsActive: true})
	store.AddEmployee(employee.Employee{ID: managerID, CompanyID: companyA, FullName: "Grace", Timezone: "UTC", IsActive: true})
	store.AssignWorkCenter(employeeID, schedule.WorkCenter{
		ID: "wc-1", CompanyID: companyA, Name: "Head office", Latitude: -6.2088, Longitude: 106.8456, RadiusMeters: 100,
	})

	clock := attendance.ClockFunc(func() time.Time { return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) })
	notifier := &recordingNotifier{}

	auditService := auditsvc.NewAuditService(store.Audit(), store.Employees(), clock.Now, time.UTC)
	attendanceService := attendancesvc.NewAttendanceService(
		store, store.Ledger(), store.Employees(), store.Assignments(), auditService,
		memory.NewIdempotencyStore(), clock, attendancesvc.Config{},
	)
	correctionService := correctionsvc.NewCorrectionService(
		store, store.Corrections(), store.Ledger(), store.Employees(), auditService, notifier, clock, time.UTC,
	)

	hub := sse.NewHub()
	notificationService := notificationsvc.NewNotificationService(hub, notificationsvc.Config{WorkerCount: 1, QueueSize: 10})
	t.Cleanup(notificationService.Stop)

	jwtService := jwt.NewJWTService("test-secret", time.Hour)
	router := NewRouter(RouterConfig{
		JWTService:          jwtService,
		AttendanceHandler:   NewAttendanceHandler(attendanceService, notifier),
		CorrectionHandler:   NewCorrectionHandler(correctionService),
		AuditHandler:        NewAuditHandler(auditService),
		NotificationHandler: NewNotificationHandler(notificationService),
	})

	return &apiFixture{jwt: jwtService, store: store, notifier: notifier, router: router}
}

func (f *apiFixture) token(t *testing.T, userID, empID string, role user.Role) string {
	t.Helper()
	token, _, err := f.jwt.GenerateAccessToken(userID, empID, companyA, role)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, token, method, path string, body any, headers ...string) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func TestRouter_Heartbeat(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	code, _ := f.do(t, "", http.MethodGet, "/api/v1/attendance/status", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.do(t, "not-a-jwt", http.MethodGet, "/api/v1/attendance/status", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_PermissionDenied(t *testing.T) {
	f := newAPIFixture(t)
	employeeToken := f.token(t, "user-1", employeeID, user.RoleEmployee)

	code, env := f.do(t, employeeToken, http.MethodGet, "/api/v1/attendance/board", nil)
	assert.Equal(t, http.StatusForbidden, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	pendingToken := f.token(t, "user-2", employeeID, user.RolePending)
	code, _ = f.do(t, pendingToken, http.MethodPost, "/api/v1/attendance/events", map[string]any{"kind": "CLOCK_IN"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRecordEvent_TransitionsOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, "user-1", employeeID, user.RoleEmployee)

	code, env := f.do(t, token, http.MethodPost, "/api/v1/attendance/events", map[string]any{"kind": "CLOCK_IN"})
	require.Equal(t, http.StatusCreated, code)
	var recorded attendance.RecordEventResponse
	require.NoError(t, json.Unmarshal(env.Data, &recorded))
	assert.Equal(t, attendance.StatusWorking, recorded.StatusAfter)

	code, env = f.do(t, token, http.MethodPost, "/api/v1/attendance/events", map[string]any{"kind": "CLOCK_IN"})
	require.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)
	assert.Equal(t, "WORKING", env.Error.Details["current_status"])
	assert.Equal(t, "CLOCK_IN", env.Error.Details["attempted_kind"])
	assert.Equal(t, "PAUSE_START,CLOCK_OUT", env.Error.Details["allowed_kinds"])

	code, env = f.do(t, token, http.MethodGet, "/api/v1/attendance/status", nil)
	require.Equal(t, http.StatusOK, code)
	var status attendance.StatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, attendance.StatusWorking, status.Status)
}

func TestRecordEvent_ValidationError(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, "user-1", employeeID, user.RoleEmployee)

	code, env := f.do(t, token, http.MethodPost, "/api/v1/attendance/events", map[string]any{"kind": "NAP"})

	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "kind")
}

func TestRecordEvent_IdempotentReplay(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, "user-1", employeeID, user.RoleEmployee)
	body := map[string]any{"kind": "CLOCK_IN"}

	code, env := f.do(t, token, http.MethodPost, "/api/v1/attendance/events", body, IdempotencyHeader, "retry-1")
	require.Equal(t, http.StatusCreated, code)
	var first attendance.RecordEventResponse
	require.NoError(t, json.Unmarshal(env.Data, &first))

	code, env = f.do(t, token, http.MethodPost, "/api/v1/attendance/events", body, IdempotencyHeader, "retry-1")
	require.Equal(t, http.StatusOK, code)
	var second attendance.RecordEventResponse
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Event.ID, second.Event.ID)
}

func TestRecordEvent_WarningNotifiesAdmins(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, "user-1", employeeID, user.RoleEmployee)

	code, env := f.do(t, token, http.MethodPost, "/api/v1/attendance/events", map[string]any{
		"kind": "CLOCK_IN", "latitude": -6.3, "longitude": 106.9,
	})
	require.Equal(t, http.StatusCreated, code)
	var recorded attendance.RecordEventResponse
	require.NoError(t, json.Unmarshal(env.Data, &recorded))
	assert.True(t, recorded.Warnings.LocationWarning)
	assert.True(t, recorded.JustificationRequired)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, notification.TypeClockWarning, sent[0].Type)
	assert.Equal(t, notification.AdminTopic(companyA), sent[0].Topic)
	assert.Equal(t, recorded.Event.ID, sent[0].Data["event_id"])
}

func TestCorrection_ApproveOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	employeeToken := f.token(t, "user-1", employeeID, user.RoleEmployee)
	managerToken := f.token(t, "user-2", managerID, user.RoleManager)

	code, env := f.do(t, employeeToken, http.MethodPost, "/api/v1/corrections", map[string]any{
		"target_date":         "2024-03-01",
		"proposed_entry_time": "2024-03-01T08:00:00Z",
		"proposed_exit_time":  "2024-03-01T16:00:00Z",
		"note":                "forgot my badge",
	})
	require.Equal(t, http.StatusCreated, code)
	var filed correction.CorrectionResponse
	require.NoError(t, json.Unmarshal(env.Data, &filed))
	assert.Equal(t, correction.StatePending, filed.State)
	assert.Equal(t, employeeID, filed.EmployeeID)

	// Employees cannot resolve
	code, _ = f.do(t, employeeToken, http.MethodPost, "/api/v1/corrections/"+filed.ID+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = f.do(t, managerToken, http.MethodPost, "/api/v1/corrections/"+filed.ID+"/approve", map[string]any{"admin_note": "ok"})
	require.Equal(t, http.StatusOK, code)
	var resolved correction.ResolveResponse
	require.NoError(t, json.Unmarshal(env.Data, &resolved))
	assert.Equal(t, correction.StateApproved, resolved.Correction.State)
	assert.Len(t, resolved.CreatedEventIDs, 2)

	code, env = f.do(t, managerToken, http.MethodPost, "/api/v1/corrections/"+filed.ID+"/resolve", map[string]any{"decision": "reject"})
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ALREADY_RESOLVED", env.Error.Code)

	code, env = f.do(t, employeeToken, http.MethodGet, "/api/v1/attendance/cycles?start_date=2024-03-01&end_date=2024-03-01", nil)
	require.Equal(t, http.StatusOK, code)
	var cycles attendance.CyclesResponse
	require.NoError(t, json.Unmarshal(env.Data, &cycles))
	require.Len(t, cycles.Cycles, 1)
	assert.Equal(t, 480, cycles.Cycles[0].EffectiveMinutes)

	code, env = f.do(t, managerToken, http.MethodGet, "/api/v1/audit/events/"+resolved.CreatedEventIDs[0], nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "correction "+filed.ID)
}

func TestCorrection_FilingForOthersNeedsApprover(t *testing.T) {
	f := newAPIFixture(t)
	employeeToken := f.token(t, "user-1", employeeID, user.RoleEmployee)
	managerToken := f.token(t, "user-2", managerID, user.RoleManager)
	body := map[string]any{
		"employee_id":         managerID,
		"target_date":         "2024-03-01",
		"proposed_entry_time": "2024-03-01T08:00:00Z",
	}

	code, _ := f.do(t, employeeToken, http.MethodPost, "/api/v1/corrections", body)
	assert.Equal(t, http.StatusForbidden, code)

	body["employee_id"] = employeeID
	code, env := f.do(t, managerToken, http.MethodPost, "/api/v1/corrections", body)
	require.Equal(t, http.StatusCreated, code)
	var filed correction.CorrectionResponse
	require.NoError(t, json.Unmarshal(env.Data, &filed))
	assert.Equal(t, employeeID, filed.EmployeeID)
	assert.Equal(t, managerID, filed.ProposedBy)
}

func TestCorrection_OtherEmployeesRequestsAreHidden(t *testing.T) {
	f := newAPIFixture(t)
	managerToken := f.token(t, "user-2", managerID, user.RoleManager)
	employeeToken := f.token(t, "user-1", employeeID, user.RoleEmployee)

	code, env := f.do(t, managerToken, http.MethodPost, "/api/v1/corrections", map[string]any{
		"target_date":         "2024-03-01",
		"proposed_entry_time": "2024-03-01T08:00:00Z",
	})
	require.Equal(t, http.StatusCreated, code)
	var filed correction.CorrectionResponse
	require.NoError(t, json.Unmarshal(env.Data, &filed))

	code, _ = f.do(t, employeeToken, http.MethodGet, "/api/v1/corrections/"+filed.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = f.do(t, employeeToken, http.MethodGet, "/api/v1/corrections?employee_id="+managerID, nil)
	require.Equal(t, http.StatusOK, code)
	var list correction.ListCorrectionResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list.Corrections)

	code, env = f.do(t, managerToken, http.MethodGet, "/api/v1/corrections?state=PENDING", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Corrections, 1)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.TotalItems)
}

func TestEditEvent_NotFoundAndNoChanges(t *testing.T) {
	f := newAPIFixture(t)
	employeeToken := f.token(t, "user-1", employeeID, user.RoleEmployee)
	managerToken := f.token(t, "user-2", managerID, user.RoleManager)

	code, env := f.do(t, employeeToken, http.MethodPost, "/api/v1/attendance/events", map[string]any{"kind": "CLOCK_IN"})
	require.Equal(t, http.StatusCreated, code)
	var recorded attendance.RecordEventResponse
	require.NoError(t, json.Unmarshal(env.Data, &recorded))

	code, _ = f.do(t, employeeToken, http.MethodPatch, "/api/v1/attendance/events/"+recorded.Event.ID, map[string]any{"observation": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = f.do(t, managerToken, http.MethodPatch, "/api/v1/attendance/events/"+recorded.Event.ID, map[string]any{"kind": "CLOCK_IN"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NO_CHANGES", env.Error.Code)

	code, _ = f.do(t, managerToken, http.MethodPatch, "/api/v1/attendance/events/0190f0c2-0000-7000-8000-000000000000", map[string]any{"observation": "x"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, managerToken, http.MethodDelete, "/api/v1/attendance/events/"+recorded.Event.ID+"?comment=duplicate", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = f.do(t, managerToken, http.MethodGet, "/api/v1/audit/events/"+recorded.Event.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "duplicate")
}

func TestNotificationStream_DeliversAdminTopic(t *testing.T) {
	f := newAPIFixture(t)
	hub := sse.NewHub()
	notifier := notificationsvc.NewNotificationService(hub, notificationsvc.Config{WorkerCount: 1, QueueSize: 10})
	defer notifier.Stop()

	router := NewRouter(RouterConfig{
		JWTService:          f.jwt,
		AttendanceHandler:   NewAttendanceHandler(nil, nil),
		CorrectionHandler:   NewCorrectionHandler(nil),
		AuditHandler:        NewAuditHandler(nil),
		NotificationHandler: NewNotificationHandler(notifier),
	})
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token := f.token(t, "user-2", managerID, user.RoleManager)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/notifications/stream?token="+token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	// The subscription exists once the connected event is written
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(notification.AdminTopic(companyA)) == 1
	}, time.Second, 10*time.Millisecond)

	notifier.Notify(ctx, notification.Notification{
		CompanyID: companyA,
		Topic:     notification.AdminTopic(companyA),
		Type:      notification.TypeCorrectionFiled,
		Title:     "Correction filed",
	})

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if line == "event: notification\n" {
			break
		}
	}
	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, data, string(notification.TypeCorrectionFiled))
}
