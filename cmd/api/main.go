package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/config"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	appHTTP "github.com/cmlabs-hris/attendance-ledger/internal/handler/http"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/idempotency"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-ledger/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-ledger/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-ledger/internal/service/attendance"
	auditService "github.com/cmlabs-hris/attendance-ledger/internal/service/audit"
	correctionService "github.com/cmlabs-hris/attendance-ledger/internal/service/correction"
	notificationService "github.com/cmlabs-hris/attendance-ledger/internal/service/notification"
	"github.com/go-chi/httplog/v3"
)

// @title Attendance Ledger API
// @version 1.0
// @description Clock events, work cycles, corrections and audit trail.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db); err != nil {
			return err
		}
	}

	var idemStore attendance.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisStore, err := idempotency.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("error connecting to redis: %w", err)
		}
		defer redisStore.Close()
		idemStore = redisStore
	} else {
		slog.Warn("REDIS_ADDR is empty, idempotency keys are kept in process memory")
		idemStore = memory.NewIdempotencyStore()
	}

	defaultLocation, err := time.LoadLocation(cfg.Attendance.DefaultTimezone)
	if err != nil {
		return fmt.Errorf("invalid default timezone: %w", err)
	}
	accessExpiration, err := time.ParseDuration(cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}

	transactor := postgresql.NewTransactor(db)
	ledgerRepo := postgresql.NewLedgerRepository(db)
	correctionRepo := postgresql.NewCorrectionRepository(db)
	auditRepo := postgresql.NewAuditRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	assignmentRepo := postgresql.NewAssignmentRepository(db)

	hub := sse.NewHub()
	notifier := notificationService.NewNotificationService(hub, notificationService.Config{
		WorkerCount: cfg.Notification.Workers,
		QueueSize:   cfg.Notification.QueueSize,
	})

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, accessExpiration)
	auditSvc := auditService.NewAuditService(auditRepo, employeeRepo, time.Now, defaultLocation)
	attendanceSvc := attendanceService.NewAttendanceService(
		transactor,
		ledgerRepo,
		employeeRepo,
		assignmentRepo,
		auditSvc,
		idemStore,
		attendance.SystemClock,
		attendanceService.Config{
			EarlyEntryGrace: cfg.Attendance.EarlyEntryGrace,
			StatusCarryOver: cfg.Attendance.StatusCarryOver,
			DefaultLocation: defaultLocation,
		},
	)
	correctionSvc := correctionService.NewCorrectionService(
		transactor,
		correctionRepo,
		ledgerRepo,
		employeeRepo,
		auditSvc,
		notifier,
		attendance.SystemClock,
		defaultLocation,
	)

	scheduler := cron.NewScheduler()
	if cfg.Cron.OpenCycleStaleAfter > 0 {
		cron.NewOpenCycleJobs(ledgerRepo, notifier, attendance.SystemClock, cfg.Cron.OpenCycleStaleAfter).
			RegisterJobs(scheduler, cfg.Cron.OpenCycleInterval)
	}
	scheduler.Start(ctx)

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		Logger:              logger,
		AllowedOrigins:      cfg.App.CORSAllowedOrigins,
		JWTService:          JWTService,
		AttendanceHandler:   appHTTP.NewAttendanceHandler(attendanceSvc, notifier),
		CorrectionHandler:   appHTTP.NewCorrectionHandler(correctionSvc),
		AuditHandler:        appHTTP.NewAuditHandler(auditSvc),
		NotificationHandler: appHTTP.NewNotificationHandler(notifier),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// SSE streams stay open, so there is no write timeout
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		scheduler.Stop()
		notifier.Stop()
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	scheduler.Stop()
	notifier.Stop()

	return nil
}
