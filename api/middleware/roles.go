package middleware

import (
	"net/http"

	"github.com/cokeastorga/paylane/api/responses"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
	"github.com/cokeastorga/paylane/pkg/logger"
)

func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRefundApprover admits only roles allowed to release parked refunds.
func RequireRefundApprover(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.OperatorRole(RoleFromContext(r.Context()))
			if !role.CanApproveRefunds() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "approval role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
