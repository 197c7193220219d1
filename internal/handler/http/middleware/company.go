package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/user"
	"github.com/cmlabs-hris/attendance-ledger/internal/handler/http/response"
)

// RequireCompany rejects callers whose token carries no tenant or no employee record.
// Every ledger is scoped by both.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			response.Unauthorized(w, "Unauthorized")
			return
		}

		if actor.CompanyID == "" {
			response.HandleError(w, user.ErrCompanyIDRequired)
			return
		}

		if actor.EmployeeID == "" {
			response.HandleError(w, user.ErrEmployeeIDRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
