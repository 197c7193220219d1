package audit

import (
	"context"
)

// AuditService is the write-once audit log of ledger mutations
type AuditService interface {
	// Record appends one entry. Called inside the mutating transaction.
	Record(ctx context.Context, req RecordRequest) (Entry, error)

	// ByEvent returns the trail of one event, newest first
	ByEvent(ctx context.Context, companyID, eventID string) (TrailResponse, error)

	// ByEmployee returns the trail of one employee for a range of local days, newest first
	ByEmployee(ctx context.Context, filter EmployeeTrailFilter) (TrailResponse, error)
}
