package correction

import (
	"context"
	"time"
)

// CorrectionRepository defines data access methods for correction requests.
// All methods include companyID parameter to prevent cross-company data access attacks.
type CorrectionRepository interface {
	// Create inserts a new PENDING request
	Create(ctx context.Context, req CorrectionRequest) (CorrectionRequest, error)

	// GetByID retrieves a request by ID with company isolation
	GetByID(ctx context.Context, id string, companyID string) (CorrectionRequest, error)

	// GetByIDForUpdate retrieves a request and row-locks it until the transaction ends
	GetByIDForUpdate(ctx context.Context, id string, companyID string) (CorrectionRequest, error)

	// List retrieves requests with filters and pagination
	List(ctx context.Context, filter ListFilter) ([]CorrectionRequest, int64, error)

	// Resolve moves a PENDING request to a terminal state. It fails with
	// ErrAlreadyResolved when the request is no longer PENDING.
	Resolve(ctx context.Context, id, companyID string, state State, approverID string, adminNote *string, resolvedAt time.Time) (CorrectionRequest, error)
}
