package notification

import (
	"context"

	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/sse"
)

// Notifier dispatches notifications without blocking the caller.
// Failures are logged by the implementation and never returned.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Service defines the notification service interface
type Service interface {
	Notifier

	// Subscribe registers an SSE listener on the given topics
	Subscribe(ctx context.Context, topics ...string) (<-chan sse.Event, func())

	// Stop drains the queue and stops the workers
	Stop()
}
