package attendance

import (
	"context"
	"time"
)

// LedgerRepository defines data access methods for attendance events.
// All methods include companyID parameter to prevent cross-company data access attacks.
type LedgerRepository interface {
	// Append inserts a new event. The ID must already be assigned.
	Append(ctx context.Context, event Event) (Event, error)

	// GetByID retrieves an event by ID with company isolation
	GetByID(ctx context.Context, id string, companyID string) (Event, error)

	// ListByEmployee returns events with from <= created_at < to in ledger order
	ListByEmployee(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]Event, error)

	// LatestBefore returns the last non-rejected event strictly before the given time, or nil
	LatestBefore(ctx context.Context, companyID, employeeID string, before time.Time) (*Event, error)

	// ListOpenTails returns, for every employee of every company, the last
	// non-rejected event when it leaves a cycle open and happened before the cutoff
	ListOpenTails(ctx context.Context, before time.Time) ([]Event, error)

	// Update overwrites the mutable columns of an event
	Update(ctx context.Context, event Event) error

	// Delete removes an event. Only the admin path calls it.
	Delete(ctx context.Context, id string, companyID string) error

	// LockEmployee serializes writers for one employee until the surrounding
	// transaction ends. It must be called inside a transaction.
	LockEmployee(ctx context.Context, companyID, employeeID string) error
}
