package schedule

import (
	"context"
	"time"
)

// AssignmentRepository reads work center and shift assignments.
// All methods include companyID parameter to prevent cross-company data access attacks.
type AssignmentRepository interface {
	// GetAssignment returns the centers and the shift in force on date.
	// An employee with nothing assigned gets an empty Assignment, not an error.
	GetAssignment(ctx context.Context, employeeID string, date time.Time, companyID string) (Assignment, error)
}
