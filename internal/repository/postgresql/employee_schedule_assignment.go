package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type employeeScheduleAssignmentRepository struct {
	db *database.DB
}

func NewAssignmentRepository(db *database.DB) schedule.AssignmentRepository {
	return &employeeScheduleAssignmentRepository{db: db}
}

// GetAssignment implements schedule.AssignmentRepository.
func (e *employeeScheduleAssignmentRepository) GetAssignment(ctx context.Context, employeeID string, date time.Time, companyID string) (schedule.Assignment, error) {
	q := GetQuerier(ctx, e.db)

	assignment := schedule.Assignment{EmployeeID: employeeID, WorkCenters: []schedule.WorkCenter{}}

	centersQuery := `
		SELECT wc.id, wc.company_id, wc.name, wc.latitude, wc.longitude, wc.radius_meters
		FROM employee_work_centers ewc
		JOIN work_centers wc ON wc.id = ewc.work_center_id AND wc.company_id = ewc.company_id
		WHERE ewc.employee_id = $1 AND ewc.company_id = $2
		ORDER BY wc.name ASC
	`

	rows, err := q.Query(ctx, centersQuery, employeeID, companyID)
	if err != nil {
		return schedule.Assignment{}, fmt.Errorf("failed to get work centers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wc schedule.WorkCenter
		if err := rows.Scan(&wc.ID, &wc.CompanyID, &wc.Name, &wc.Latitude, &wc.Longitude, &wc.RadiusMeters); err != nil {
			return schedule.Assignment{}, fmt.Errorf("failed to scan work center: %w", err)
		}
		assignment.WorkCenters = append(assignment.WorkCenters, wc)
	}
	if err := rows.Err(); err != nil {
		return schedule.Assignment{}, fmt.Errorf("failed to iterate work centers: %w", err)
	}

	// The most recent assignment in force on the date wins
	shiftQuery := `
		SELECT s.id, s.company_id, s.name, s.start_time, s.end_time
		FROM employee_shift_assignments esa
		JOIN shifts s ON s.id = esa.shift_id
		WHERE esa.employee_id = $1
		  AND esa.company_id = $2
		  AND esa.effective_date <= $3
		  AND (esa.end_date IS NULL OR esa.end_date >= $3)
		ORDER BY esa.effective_date DESC
		LIMIT 1
	`

	var shift schedule.Shift
	var start, end pgtype.Time
	err = q.QueryRow(ctx, shiftQuery, employeeID, companyID, date.Format(time.DateOnly)).Scan(
		&shift.ID, &shift.CompanyID, &shift.Name, &start, &end,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return assignment, nil
		}
		return schedule.Assignment{}, fmt.Errorf("failed to get active shift: %w", err)
	}

	shift.StartTime = clockTime(start)
	shift.EndTime = clockTime(end)
	assignment.Shift = &shift

	return assignment, nil
}

// clockTime places a TIME column on the zero date
func clockTime(t pgtype.Time) time.Time {
	return time.Time{}.Add(time.Duration(t.Microseconds) * time.Microsecond)
}
