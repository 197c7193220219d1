package memory

import (
	"context"
	"slices"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
)

type ledgerRepository struct {
	s *Store
}

func compareEvents(a, b attendance.Event) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

func (r *ledgerRepository) Append(_ context.Context, event attendance.Event) (attendance.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	r.s.events[event.ID] = event
	return event, nil
}

func (r *ledgerRepository) GetByID(_ context.Context, id string, companyID string) (attendance.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ev, ok := r.s.events[id]
	if !ok || ev.CompanyID != companyID {
		return attendance.Event{}, attendance.ErrEventNotFound
	}
	return ev, nil
}

func (r *ledgerRepository) ListByEmployee(_ context.Context, companyID, employeeID string, from, to time.Time) ([]attendance.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []attendance.Event{}
	for _, ev := range r.s.events {
		if ev.CompanyID != companyID || ev.EmployeeID != employeeID {
			continue
		}
		if ev.CreatedAt.Before(from) || !ev.CreatedAt.Before(to) {
			continue
		}
		out = append(out, ev)
	}
	slices.SortFunc(out, compareEvents)
	return out, nil
}

func (r *ledgerRepository) LatestBefore(_ context.Context, companyID, employeeID string, before time.Time) (*attendance.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *attendance.Event
	for _, ev := range r.s.events {
		if ev.CompanyID != companyID || ev.EmployeeID != employeeID || !ev.Counts() {
			continue
		}
		if !ev.CreatedAt.Before(before) {
			continue
		}
		if latest == nil || compareEvents(*latest, ev) < 0 {
			e := ev
			latest = &e
		}
	}
	return latest, nil
}

func (r *ledgerRepository) ListOpenTails(_ context.Context, before time.Time) ([]attendance.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tails := make(map[[2]string]attendance.Event)
	for _, ev := range r.s.events {
		if !ev.Counts() {
			continue
		}
		key := [2]string{ev.CompanyID, ev.EmployeeID}
		if cur, ok := tails[key]; !ok || compareEvents(cur, ev) < 0 {
			tails[key] = ev
		}
	}
	out := []attendance.Event{}
	for _, ev := range tails {
		if ev.Kind != attendance.KindClockOut && ev.CreatedAt.Before(before) {
			out = append(out, ev)
		}
	}
	slices.SortFunc(out, compareEvents)
	return out, nil
}

func (r *ledgerRepository) Update(_ context.Context, event attendance.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.events[event.ID]
	if !ok || current.CompanyID != event.CompanyID {
		return attendance.ErrEventNotFound
	}
	// company and owner are immutable
	event.EmployeeID = current.EmployeeID
	r.s.events[event.ID] = event
	return nil
}

func (r *ledgerRepository) Delete(_ context.Context, id string, companyID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev, ok := r.s.events[id]
	if !ok || ev.CompanyID != companyID {
		return attendance.ErrEventNotFound
	}
	delete(r.s.events, id)
	return nil
}

// LockEmployee is satisfied by the store-wide transaction lock
func (r *ledgerRepository) LockEmployee(ctx context.Context, _, _ string) error {
	if !inTransaction(ctx) {
		return errNoTransaction
	}
	return nil
}
