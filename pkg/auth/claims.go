package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

var (
	errMissingUser  = errors.New("token carries no user id")
	errSubjectDrift = errors.New("token subject does not match user id")
	errUnknownRole  = errors.New("token carries an unknown role")
	errMissingJTI   = errors.New("token carries no session id")
)

// AccessTokenPayload is what the auth service knows when it mints a token.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Username string
	Role     enums.UserRole
	// JTI doubles as the Redis session id; a random one is generated when empty.
	JTI string
}

type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	Username string         `json:"username,omitempty"`
	Role     enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks during parsing.
func (c AccessTokenClaims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return errMissingUser
	case c.Subject != c.UserID.String():
		return errSubjectDrift
	case !c.Role.IsValid():
		return errUnknownRole
	case c.ID == "":
		return errMissingJTI
	}
	return nil
}
