package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/subhub/telecom-subscriptions/pkg/config"
	redisclient "github.com/subhub/telecom-subscriptions/pkg/redis"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

var errMissingAccessID = errors.New("access id is required")

type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is the read side used by the auth middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Issued is a freshly rotated access id and refresh token pair.
type Issued struct {
	AccessID     string
	RefreshToken string
	UserID       uuid.UUID
}

// entry is keyed by the access token's jti. Only a digest of the refresh
// token is stored.
type entry struct {
	UserID    uuid.UUID `json:"user_id"`
	Digest    string    `json:"digest"`
	IssuedAt  time.Time `json:"issued_at"`
	Rotations int       `json:"rotations"`
}

// Manager keeps one refresh session per issued access token in redis.
type Manager struct {
	kv  kv
	ttl time.Duration
	now func() time.Time
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	refreshTTL := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case refreshTTL <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case refreshTTL <= accessTTL:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", refreshTTL, accessTTL)
	}
	return &Manager{kv: client, ttl: refreshTTL, now: time.Now}, nil
}

// NewAccessID returns the identifier used as the JWT jti and session key.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if blank(accessID) {
		return "", errMissingAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := m.save(ctx, accessID, entry{UserID: userID, Digest: digest(token), IssuedAt: m.stamp()}); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate consumes the session behind oldAccessID when provided matches its
// refresh token and opens a new one. A token can be rotated only once.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Issued, error) {
	if blank(oldAccessID) || blank(provided) {
		return Issued{}, ErrInvalidRefreshToken
	}

	oldKey := m.kv.AccessSessionKey(oldAccessID)
	current, err := m.fetch(ctx, oldKey)
	if err != nil {
		return Issued{}, err
	}
	if subtle.ConstantTimeCompare([]byte(current.Digest), []byte(digest(provided))) != 1 {
		return Issued{}, ErrInvalidRefreshToken
	}
	if err := m.kv.Del(ctx, oldKey); err != nil {
		return Issued{}, err
	}

	token, err := randomToken()
	if err != nil {
		return Issued{}, err
	}
	issued := Issued{AccessID: NewAccessID(), RefreshToken: token, UserID: current.UserID}
	next := entry{
		UserID:    current.UserID,
		Digest:    digest(token),
		IssuedAt:  m.stamp(),
		Rotations: current.Rotations + 1,
	}
	if err := m.save(ctx, issued.AccessID, next); err != nil {
		return Issued{}, err
	}
	return issued, nil
}

// Revoke ends the session tied to accessID.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errMissingAccessID
	}
	return m.kv.Del(ctx, m.kv.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errMissingAccessID
	}
	_, err := m.kv.Get(ctx, m.kv.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redislib.Nil):
		return false, nil
	default:
		return false, err
	}
}

func (m *Manager) save(ctx context.Context, accessID string, e entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return m.kv.Set(ctx, m.kv.AccessSessionKey(accessID), string(raw), m.ttl)
}

func (m *Manager) fetch(ctx context.Context, key string) (entry, error) {
	raw, err := m.kv.Get(ctx, key)
	if errors.Is(err, redislib.Nil) {
		return entry{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return entry{}, err
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || e.Digest == "" {
		return entry{}, ErrInvalidRefreshToken
	}
	return e, nil
}

func (m *Manager) stamp() time.Time {
	if m.now == nil {
		return time.Now().UTC()
	}
	return m.now().UTC()
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
