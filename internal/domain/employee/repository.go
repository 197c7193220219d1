package employee

import "context"

// EmployeeRepository is the directory lookup (employee -> company, timezone).
// All methods include companyID parameter to prevent cross-company data access attacks.
type EmployeeRepository interface {
	// GetByID retrieves an employee with company isolation
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)

	// ListActive returns every active employee of a company ordered by name
	ListActive(ctx context.Context, companyID string) ([]Employee, error)
}
