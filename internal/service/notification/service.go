package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/sse"
	"github.com/google/uuid"
)

// Config holds notification service configuration
type Config struct {
	WorkerCount int // default: 2
	QueueSize   int // default: 1000
}

type service struct {
	hub    *sse.Hub
	config Config

	queue   chan notification.Notification
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// NewNotificationService creates a new notification service with background workers
func NewNotificationService(hub *sse.Hub, cfg Config) notification.Service {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	s := &service{
		hub:    hub,
		config: cfg,
		queue:  make(chan notification.Notification, cfg.QueueSize),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("notification service started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize)

	return s
}

// worker drains the queue until it is closed by Stop
func (s *service) worker(id int) {
	defer s.wg.Done()

	for n := range s.queue {
		delivered := s.hub.Publish(n.Topic, sse.Event{
			Topic: n.Topic,
			Event: "notification",
			Data:  n,
		})
		slog.Debug("notification dispatched",
			"worker", id,
			"topic", n.Topic,
			"type", n.Type,
			"delivered", delivered,
		)
	}
}

// Notify queues a notification. It never blocks: when the queue is full the
// notification is dropped and logged.
func (s *service) Notify(ctx context.Context, n notification.Notification) {
	if n.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			n.ID = id.String()
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		slog.WarnContext(ctx, "notification dropped", "topic", n.Topic, "type", n.Type, "error", notification.ErrDispatcherStopped)
		return
	}

	select {
	case s.queue <- n:
	default:
		slog.WarnContext(ctx, "notification dropped", "topic", n.Topic, "type", n.Type, "error", notification.ErrQueueFull)
	}
}

func (s *service) Subscribe(ctx context.Context, topics ...string) (<-chan sse.Event, func()) {
	ch, cleanup := s.hub.Subscribe(topics...)
	slog.DebugContext(ctx, "sse subscriber registered", "topics", topics)
	return ch, cleanup
}

// Stop closes the queue and waits for the workers to drain it
func (s *service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("notification service stopped")
}
