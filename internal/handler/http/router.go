package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/user"
	_ "github.com/cmlabs-hris/attendance-ledger/internal/handler/http/docs"
	"github.com/cmlabs-hris/attendance-ledger/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-ledger/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig carries the handlers and cross-cutting settings of the API
type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration

	JWTService          jwt.Service
	AttendanceHandler   AttendanceHandler
	CorrectionHandler   CorrectionHandler
	AuditHandler        AuditHandler
	NotificationHandler NotificationHandler
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", IdempotencyHeader},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	if cfg.Logger != nil {
		r.Use(httplog.RequestLogger(cfg.Logger, &httplog.Options{
			Level:  slog.LevelDebug,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	ja := cfg.JWTService.JWTAuth()
	perm := middleware.RequirePermission

	r.Route("/api/v1", func(r chi.Router) {

		// EventSource cannot set headers, so the stream also accepts ?token=
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(ja, jwtauth.TokenFromHeader, tokenFromQuery))
			r.Use(middleware.AuthRequired(ja))
			r.Use(middleware.RequireCompany)

			r.Get("/notifications/stream", cfg.NotificationHandler.Stream)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(ja))
			r.Use(middleware.AuthRequired(ja))
			r.Use(middleware.RequireCompany)
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Route("/attendance", func(r chi.Router) {
				h := cfg.AttendanceHandler

				r.With(perm(user.PermissionAttendanceViewOwn)).Get("/status", h.MyStatus)
				r.With(perm(user.PermissionAttendanceViewOwn)).Get("/events", h.MyEvents)
				r.With(perm(user.PermissionAttendanceViewOwn)).Get("/cycles", h.MyCycles)
				r.With(perm(user.PermissionAttendanceCreate)).Post("/events", h.RecordEvent)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(perm(user.PermissionAttendanceEdit))
					r.Patch("/events/{id}", h.EditEvent)
					r.Delete("/events/{id}", h.DeleteEvent)
				})

				r.Group(func(r chi.Router) {
					r.Use(perm(user.PermissionAttendanceViewAll))
					r.Get("/board", h.Board)
					r.Route("/employees/{employeeID}", func(r chi.Router) {
						r.Get("/status", h.EmployeeStatus)
						r.Get("/events", h.EmployeeEvents)
						r.Get("/cycles", h.EmployeeCycles)
					})
				})
			})

			r.Route("/corrections", func(r chi.Router) {
				h := cfg.CorrectionHandler

				r.With(perm(user.PermissionCorrectionCreate)).Post("/", h.File)
				r.With(perm(user.PermissionAttendanceViewOwn)).Get("/", h.List)
				r.With(perm(user.PermissionAttendanceViewOwn)).Get("/{id}", h.Get)

				r.Group(func(r chi.Router) {
					r.Use(perm(user.PermissionAttendanceApprove))
					r.Post("/{id}/resolve", h.Resolve)
					r.Post("/{id}/approve", h.Approve)
					r.Post("/{id}/reject", h.Reject)
				})
			})

			r.Route("/audit", func(r chi.Router) {
				h := cfg.AuditHandler

				r.With(perm(user.PermissionAuditViewOwn)).Get("/me", h.Mine)
				r.With(perm(user.PermissionAuditViewAll)).Get("/events/{eventID}", h.ByEvent)
				r.With(perm(user.PermissionAuditViewAll)).Get("/employees/{employeeID}", h.ByEmployee)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})

	return r
}

func tokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}
