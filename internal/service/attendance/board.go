package attendance

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
	"golang.org/x/sync/errgroup"
)

const boardConcurrency = 8

// Board implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Board(ctx context.Context, companyID string) (attendance.BoardResponse, error) {
	if validator.IsEmpty(companyID) {
		return attendance.BoardResponse{}, validator.Single("company_id", "company_id is required")
	}

	employees, err := s.employees.ListActive(ctx, companyID)
	if err != nil {
		return attendance.BoardResponse{}, database.WrapStoreError("list employees", err)
	}

	now := s.now()
	entries := make([]attendance.BoardEntry, len(employees))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(boardConcurrency)

	for i, emp := range employees {
		i, emp := i, emp
		g.Go(func() error {
			view, err := s.resolveCurrent(gCtx, companyID, emp.ID, now, emp.Location(s.cfg.DefaultLocation))
			if err != nil {
				return fmt.Errorf("failed to resolve status of %s: %w", emp.ID, err)
			}
			entries[i] = attendance.BoardEntry{
				EmployeeID: emp.ID,
				FullName:   emp.FullName,
				Status:     view.status,
			}
			if view.last != nil {
				at := view.last.CreatedAt
				entries[i].LastEventAt = &at
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return attendance.BoardResponse{}, err
	}

	counts := make(map[attendance.Status]int, len(attendance.Statuses))
	for _, st := range attendance.Statuses {
		counts[st] = 0
	}
	for _, e := range entries {
		counts[e.Status]++
	}

	return attendance.BoardResponse{
		AsOf:      now,
		Employees: entries,
		Counts:    counts,
	}, nil
}
