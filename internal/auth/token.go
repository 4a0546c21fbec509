// Package auth holds the login session of the console. Tokens are issued and
// verified by the external API; this package only reads their claims.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/example/liveworship/internal/worship"
)

var (
	// ErrNoToken indicates that no session token is available.
	ErrNoToken = errors.New("auth: no token")
	// ErrTokenExpired indicates that the token's expiry has passed.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrMalformedToken indicates that the token could not be decoded.
	ErrMalformedToken = errors.New("auth: malformed token")
)

// RoleSystemAdmin is the role claim value for platform administrators.
const RoleSystemAdmin = "system_admin"

// Claims is the payload the API signs into session tokens.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Principal is the authenticated user behind a token.
type Principal struct {
	UserID        string
	Name          string
	IsSystemAdmin bool
	ExpiresAt     time.Time
	Token         string
}

// User converts the principal into the domain user.
func (p Principal) User() worship.User {
	return worship.User{ID: p.UserID, Name: p.Name, IsSystemAdmin: p.IsSystemAdmin}
}

// ParseToken decodes the claims of token without verifying its signature and
// rejects tokens that are empty, lack a subject or expired before now.
func ParseToken(token string, now time.Time) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrNoToken
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
		if !now.Before(expires) {
			return Principal{}, ErrTokenExpired
		}
	}

	return Principal{
		UserID:        claims.Subject,
		Name:          claims.Name,
		IsSystemAdmin: claims.Role == RoleSystemAdmin,
		ExpiresAt:     expires,
		Token:         token,
	}, nil
}
