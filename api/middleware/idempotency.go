package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/subhub/telecom-subscriptions/api/responses"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
	pkgredis "github.com/subhub/telecom-subscriptions/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	idempotencyReplayed    = "Idempotent-Replayed"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	reservationTTL         = time.Minute
	maxIdempotencyKeyLen   = 255
)

// idempotentRoutes are matched segment by segment against the raw path
// because the middleware runs before chi resolves a route pattern. "*"
// matches any single segment.
var idempotentRoutes = []struct {
	method   string
	template string
	ttl      time.Duration
}{
	{http.MethodPost, "/api/v1/subscriptions", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/subscriptions/*/renew", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/payments/process", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/payments/transactions/*/refund", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/payments/transactions/*/retry", criticalIdempotencyTTL},
	{http.MethodPost, "/api/admin/v1/plans", defaultIdempotencyTTL},
}

func routeTTL(method, path string) (time.Duration, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return 0, false
	}
	for _, route := range idempotentRoutes {
		if route.method == method && segmentsMatch(splitPath(route.template), segments) {
			return route.ttl, true
		}
	}
	return 0, false
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func segmentsMatch(template, actual []string) bool {
	if len(template) != len(actual) {
		return false
	}
	for i, seg := range template {
		if seg != "*" && seg != actual[i] {
			return false
		}
	}
	return true
}

// storedResponse is what lands in redis under an idempotency key. A
// Pending entry reserves the key while the first request is running.
type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// Idempotency requires an Idempotency-Key on money-moving routes and replays
// the first outcome for repeats. Server errors release the key so the
// client can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	guard := &idempotencyGuard{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			guard.serve(w, r, next, ttl)
		})
	}
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, ttl time.Duration) {
	ctx := r.Context()

	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	switch {
	case clientKey == "":
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	case len(clientKey) > maxIdempotencyKeyLen:
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
		return
	}

	var body []byte
	if r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
			return
		}
		body = raw
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	fingerprint := fingerprintBody(body)
	key := g.store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)

	reserved, err := g.reserve(ctx, key, fingerprint)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
		return
	}
	if !reserved {
		g.replay(ctx, w, key, fingerprint)
		return
	}

	var captured bytes.Buffer
	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	ww.Tee(&captured)
	next.ServeHTTP(ww, r)

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusInternalServerError {
		if err := g.store.Del(ctx, key); err != nil {
			g.logFailure(ctx, "idempotency.release_failed", err)
		}
		return
	}

	g.persist(ctx, key, ttl, storedResponse{
		Fingerprint: fingerprint,
		Status:      status,
		ContentType: ww.Header().Get("Content-Type"),
		Body:        captured.Bytes(),
	})
}

func (g *idempotencyGuard) reserve(ctx context.Context, key, fingerprint string) (bool, error) {
	placeholder, err := json.Marshal(storedResponse{Pending: true, Fingerprint: fingerprint})
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, string(placeholder), reservationTTL)
}

func (g *idempotencyGuard) persist(ctx context.Context, key string, ttl time.Duration, entry storedResponse) {
	encoded, err := json.Marshal(entry)
	if err != nil {
		g.logFailure(ctx, "idempotency.encode_failed", err)
		return
	}
	if err := g.store.Set(ctx, key, string(encoded), ttl); err != nil {
		g.logFailure(ctx, "idempotency.persist_failed", err)
	}
}

func (g *idempotencyGuard) replay(ctx context.Context, w http.ResponseWriter, key, fingerprint string) {
	inProgress := pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress")

	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, g.logg, w, inProgress)
		return
	}
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var entry storedResponse
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case entry.Fingerprint != fingerprint:
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case entry.Pending:
		responses.WriteError(ctx, g.logg, w, inProgress)
	default:
		if entry.ContentType != "" {
			w.Header().Set("Content-Type", entry.ContentType)
		}
		w.Header().Set(idempotencyReplayed, "true")
		w.WriteHeader(entry.Status)
		_, _ = w.Write(entry.Body)
	}
}

func (g *idempotencyGuard) logFailure(ctx context.Context, event string, err error) {
	if g.logg != nil {
		g.logg.Error(ctx, event, err)
	}
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
