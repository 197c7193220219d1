package attendance

import (
	"context"
)

// AttendanceService defines business logic for the attendance ledger
type AttendanceService interface {
	// CurrentStatus resolves the employee's status from the tail of the ledger
	CurrentStatus(ctx context.Context, companyID, employeeID string) (StatusResponse, error)

	// RecordEvent appends a clock event when the transition is legal
	RecordEvent(ctx context.Context, req RecordEventRequest) (RecordEventResponse, error)

	// Cycles rebuilds work cycles for a range of local days
	Cycles(ctx context.Context, filter RangeFilter) (CyclesResponse, error)

	// Events returns the raw ledger for a range of local days, orphans included
	Events(ctx context.Context, filter RangeFilter) (EventsResponse, error)

	// EditEvent changes event fields on the admin path, auditing every change
	EditEvent(ctx context.Context, req EditEventRequest) (EditEventResponse, error)

	// DeleteEvent removes an event on the admin path and audits the removal
	DeleteEvent(ctx context.Context, req DeleteEventRequest) error

	// Board returns the current status of every active employee in the company
	Board(ctx context.Context, companyID string) (BoardResponse, error)
}

// IdempotencyStore remembers which event an Idempotency-Key produced
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (eventID string, found bool, err error)
	Remember(ctx context.Context, key string, eventID string) error
}
