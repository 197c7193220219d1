package audit

import (
	"context"
	"time"
)

// AuditRepository is append-only: there is no update or delete.
// All methods include companyID parameter to prevent cross-company data access attacks.
type AuditRepository interface {
	// Append stores a new entry. It joins the caller's transaction when one is active.
	Append(ctx context.Context, entry Entry) (Entry, error)

	// ListByEvent returns entries for one event, newest first
	ListByEvent(ctx context.Context, companyID, eventID string) ([]Entry, error)

	// ListByEmployee returns entries with from <= created_at < to, newest first
	ListByEmployee(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]Entry, error)
}
