package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/schedule"
)

type auditRepository struct {
	s *Store
}

func (r *auditRepository) Append(_ context.Context, entry audit.Entry) (audit.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, entry)
	return entry, nil
}

func (r *auditRepository) ListByEvent(_ context.Context, companyID, eventID string) ([]audit.Entry, error) {
	return r.filter(func(e audit.Entry) bool {
		return e.CompanyID == companyID && e.AffectedEventID == eventID
	}), nil
}

func (r *auditRepository) ListByEmployee(_ context.Context, companyID, employeeID string, from, to time.Time) ([]audit.Entry, error) {
	return r.filter(func(e audit.Entry) bool {
		return e.CompanyID == companyID && e.EmployeeID == employeeID &&
			!e.CreatedAt.Before(from) && e.CreatedAt.Before(to)
	}), nil
}

// filter returns matching entries newest first
func (r *auditRepository) filter(keep func(audit.Entry) bool) []audit.Entry {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []audit.Entry{}
	for _, e := range r.s.audit {
		if keep(e) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b audit.Entry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out
}

type employeeRepository struct {
	s *Store
}

func (r *employeeRepository) GetByID(_ context.Context, id string, companyID string) (employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	emp, ok := r.s.employees[id]
	if !ok || emp.CompanyID != companyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

func (r *employeeRepository) ListActive(_ context.Context, companyID string) ([]employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []employee.Employee{}
	for _, emp := range r.s.employees {
		if emp.CompanyID == companyID && emp.IsActive {
			out = append(out, emp)
		}
	}
	slices.SortFunc(out, func(a, b employee.Employee) int {
		if c := strings.Compare(a.FullName, b.FullName); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

type assignmentRepository struct {
	s *Store
}

func (r *assignmentRepository) GetAssignment(_ context.Context, employeeID string, date time.Time, companyID string) (schedule.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	assignment := schedule.Assignment{EmployeeID: employeeID, WorkCenters: []schedule.WorkCenter{}}
	for _, wc := range r.s.centers[employeeID] {
		if wc.CompanyID == companyID {
			assignment.WorkCenters = append(assignment.WorkCenters, wc)
		}
	}

	day := date.Format(time.DateOnly)
	var best *shiftAssignment
	for i, sa := range r.s.shifts[employeeID] {
		if sa.shift.CompanyID != companyID || sa.effectiveDate.Format(time.DateOnly) > day {
			continue
		}
		if sa.endDate != nil && sa.endDate.Format(time.DateOnly) < day {
			continue
		}
		if best == nil || sa.effectiveDate.After(best.effectiveDate) {
			best = &r.s.shifts[employeeID][i]
		}
	}
	if best != nil {
		shift := best.shift
		assignment.Shift = &shift
	}
	return assignment, nil
}
