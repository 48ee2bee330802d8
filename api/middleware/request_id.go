package middleware

import (
	"context"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
)

const (
	requestIDHeader     = "X-Request-Id"
	correlationIDHeader = "X-Correlation-Id"
)

// Accepted inbound request id headers, in order of preference.
var requestIDHeaders = []string{requestIDHeader, correlationIDHeader}

const maxRequestIDLen = 128

// RequestID adopts the caller's request id when it is a short printable
// token and mints a UUID otherwise. The id is echoed on X-Request-Id, stored
// under chi's request id key and attached to the scoped logger.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := inboundRequestID(r.Header)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := context.WithValue(r.Context(), chimw.RequestIDKey, id)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

func inboundRequestID(h http.Header) string {
	for _, name := range requestIDHeaders {
		if v := strings.TrimSpace(h.Get(name)); usableRequestID(v) {
			return v
		}
	}
	return ""
}

func usableRequestID(v string) bool {
	if v == "" || len(v) > maxRequestIDLen {
		return false
	}
	return strings.IndexFunc(v, func(r rune) bool { return r < '!' || r > '~' }) < 0
}
