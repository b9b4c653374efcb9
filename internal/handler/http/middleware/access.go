package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/handler/http/response"
)

// TargetEnvironmentHeader selects the backend environment a request is aimed at
const TargetEnvironmentHeader = "X-Target-Environment"

// RequireRoutes admits callers whose stored allowedRoutes contain at least one
// of paths.
func RequireRoutes(accessService access.AccessService, paths ...string) func(http.Handler) http.Handler {
	return RequireGuard(accessService, access.Guard{AllowedRoutes: paths})
}

// RequireGuard evaluates guard against the caller's stored profile
func RequireGuard(accessService access.AccessService, guard access.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := accessService.Check(r.Context(), IdentityFromContext(r.Context()), guard)
			if err != nil {
				response.HandleError(w, err)
				return
			}

			switch decision.Reason {
			case access.ReasonNone:
				next.ServeHTTP(w, r)
			case access.ReasonUnauthenticated:
				response.HandleError(w, access.ErrUnauthenticated)
			case access.ReasonRoleDenied:
				response.HandleError(w, access.ErrRoleRequired)
			default:
				response.HandleError(w, access.ErrRouteNotAllowed)
			}
		})
	}
}

// RequireEnvironment checks the target environment header, when present,
// against the caller's allowedEnvironments.
func RequireEnvironment(accessService access.AccessService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			env := r.Header.Get(TargetEnvironmentHeader)
			if env == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity := IdentityFromContext(r.Context())
			if identity == nil {
				response.HandleError(w, access.ErrUnauthenticated)
				return
			}

			profile, err := accessService.Profile(r.Context(), identity.UID)
			if err != nil {
				response.HandleError(w, err)
				return
			}

			if !access.EnvironmentAllowed(profile, env) {
				response.HandleError(w, access.ErrEnvironmentNotAllowed)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
