package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/notification"
	attendancesvc "github.com/cmlabs-hris/attendance-ledger/internal/service/attendance"
	"github.com/google/uuid"
)

// OpenCycleJobs reminds people about cycles left open for too long.
// It only reads the ledger; closing a forgotten cycle is a correction.
type OpenCycleJobs struct {
	ledger     attendance.LedgerRepository
	notifier   notification.Notifier
	clock      attendance.Clock
	staleAfter time.Duration

	mu       sync.Mutex
	reminded map[string]struct{} // tail event ids already reported
}

func NewOpenCycleJobs(ledger attendance.LedgerRepository, notifier notification.Notifier, clock attendance.Clock, staleAfter time.Duration) *OpenCycleJobs {
	if clock == nil {
		clock = attendance.SystemClock
	}
	return &OpenCycleJobs{
		ledger:     ledger,
		notifier:   notifier,
		clock:      clock,
		staleAfter: staleAfter,
		reminded:   make(map[string]struct{}),
	}
}

func (j *OpenCycleJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("remind_open_cycles", interval, j.RemindOpenCycles)
}

// RemindOpenCycles notifies the employee and the company admins once per stale tail event
func (j *OpenCycleJobs) RemindOpenCycles(ctx context.Context) error {
	now := j.clock.Now().UTC()

	tails, err := j.ledger.ListOpenTails(ctx, now.Add(-j.staleAfter))
	if err != nil {
		return fmt.Errorf("failed to list open cycles: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	open := make(map[string]struct{}, len(tails))
	sent := 0
	for _, tail := range tails {
		open[tail.ID] = struct{}{}
		if _, done := j.reminded[tail.ID]; done {
			continue
		}
		j.remind(ctx, tail, now)
		j.reminded[tail.ID] = struct{}{}
		sent++
	}

	// forget tails that were closed or superseded
	for id := range j.reminded {
		if _, ok := open[id]; !ok {
			delete(j.reminded, id)
		}
	}

	if sent > 0 {
		slog.Info("Cron: open cycle reminders sent", "count", sent)
	}
	return nil
}

func (j *OpenCycleJobs) remind(ctx context.Context, tail attendance.Event, now time.Time) {
	status := attendancesvc.StatusAfter(tail.Kind)
	openFor := now.Sub(tail.CreatedAt).Truncate(time.Minute)
	data := map[string]any{
		"event_id":    tail.ID,
		"employee_id": tail.EmployeeID,
		"status":      string(status),
		"since":       tail.CreatedAt,
		"open_hours":  openFor.Hours(),
	}

	for _, topic := range []string{
		notification.EmployeeTopic(tail.CompanyID, tail.EmployeeID),
		notification.AdminTopic(tail.CompanyID),
	} {
		j.notifier.Notify(ctx, notification.Notification{
			ID:        uuid.NewString(),
			CompanyID: tail.CompanyID,
			Topic:     topic,
			Type:      notification.TypeOpenCycleReminder,
			Title:     "Open attendance cycle",
			Message:   fmt.Sprintf("Status has been %s for %s without a clock-out", status, openFor),
			Data:      data,
			CreatedAt: now,
		})
	}
}
