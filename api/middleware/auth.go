package middleware

import (
	"net/http"

	"github.com/subhub/telecom-subscriptions/api/responses"
	pkgAuth "github.com/subhub/telecom-subscriptions/pkg/auth"
	"github.com/subhub/telecom-subscriptions/pkg/auth/session"
	"github.com/subhub/telecom-subscriptions/pkg/config"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
)

// Auth admits requests carrying a valid access token whose session is still live.
// A nil verifier skips the session lookup.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(r, cfg, verifier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithActor(ctx, principal.UserID, principal.Role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (Principal, error) {
	token := BearerToken(r)
	if token == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if verifier != nil {
		live, err := verifier.HasSession(r.Context(), claims.ID)
		switch {
		case err != nil:
			return Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		case !live:
			return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	return Principal{
		UserID:   claims.UserID.String(),
		Role:     string(claims.Role),
		Username: claims.Username,
	}, nil
}
