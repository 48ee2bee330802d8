package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/subhub/telecom-subscriptions/api/responses"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
)

type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one auth endpoint by client address and by
// the login handle found in the body.
type AuthRateLimitPolicy struct {
	name          string
	window        time.Duration
	ipLimit       int
	identityLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, identityLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, identityLimit: identityLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.identityLimit > 0)
}

// bucket is one counter a request is charged against.
type bucket struct {
	kind  string
	scope string
	limit int
	label string
}

// buckets lists the counters for r. The body is only read when the policy
// limits by identity, and is restored for the next handler.
func (p AuthRateLimitPolicy) buckets(r *http.Request) ([]bucket, error) {
	var out []bucket
	if p.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			out = append(out, bucket{kind: "ip", scope: "ip:" + p.name + ":" + ip, limit: p.ipLimit, label: ip})
		}
	}
	if p.identityLimit > 0 && r.Body != nil {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		if handle := loginHandle(body); handle != "" {
			sum := sha256.Sum256([]byte(handle))
			hashed := hex.EncodeToString(sum[:])
			out = append(out, bucket{kind: "identity", scope: "identity:" + p.name + ":" + hashed, limit: p.identityLimit, label: hashed})
		}
	}
	return out, nil
}

// AuthRateLimit rejects a request with 429 once any of its counters passes
// the policy limit within the window.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter fixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			counters, err := policy.buckets(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			for _, b := range counters {
				allowed, attempts, err := limiter.FixedWindowAllow(ctx, b.scope, int64(b.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					policy.reject(ctx, logg, w, b, attempts)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (p AuthRateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, b bucket, attempts int64) {
	seconds := int(p.window.Seconds())
	if logg != nil {
		fields := map[string]any{
			"scope":          b.kind,
			"policy":         p.name,
			"attempts":       attempts,
			"limit":          b.limit,
			"window_seconds": seconds,
		}
		if b.kind == "ip" {
			fields["ip"] = b.label
		} else {
			fields["identity_hash"] = b.label
		}
		logg.Warn(logg.WithFields(ctx, fields), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// loginHandle returns the normalized username, or email when no username
// was sent.
func loginHandle(payload []byte) string {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	handle := body.Username
	if strings.TrimSpace(handle) == "" {
		handle = body.Email
	}
	return strings.ToLower(strings.TrimSpace(handle))
}
