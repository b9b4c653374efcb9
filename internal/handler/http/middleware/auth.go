package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/handler/http/response"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type identityKey struct{}

// AuthRequired rejects requests without a verified token and stores the
// caller's identity in the request context.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		if token == nil {
			response.HandleError(w, access.ErrInvalidToken)
			return
		}

		identity, err := jwt.IdentityFromContext(r.Context())
		if err != nil {
			response.HandleError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func WithIdentity(ctx context.Context, identity *access.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by AuthRequired, or nil
func IdentityFromContext(ctx context.Context) *access.Identity {
	identity, _ := ctx.Value(identityKey{}).(*access.Identity)
	return identity
}
