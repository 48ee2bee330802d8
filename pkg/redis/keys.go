package redis

import "strings"

const defaultNamespace = "subhub"

// Keyspace builds every key the service writes so prefixes stay in one place.
type Keyspace struct {
	Namespace string
}

func (k Keyspace) join(parts ...string) string {
	ns := k.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.join("idempotency", scope, id)
}

func (k Keyspace) RateLimitKey(scope string) string {
	return k.join("rate_limit", scope)
}

// AccessSessionKey is keyed by the access token's jti.
func (k Keyspace) AccessSessionKey(accessID string) string {
	return k.join("session", "access", accessID)
}

func (k Keyspace) CacheKey(scope string, parts ...string) string {
	return k.join(append([]string{"cache", scope}, parts...)...)
}

func (k Keyspace) LockKey(name string) string {
	return k.join("lock", name)
}
