// Package auth issues and checks the credentials the storefront API accepts.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. A user registers or logs in with email and password (or finishes the
//     Google sign-in flow).
//  2. The server answers with a signed JWT carrying the user's id, email
//     and role.
//  3. The client sends it back on every protected call as
//     "Authorization: Bearer <token>".
//  4. RequireAuth validates the token and puts the Identity in the request
//     context; RequireRole gates admin routes on the role claim.
//
// Tokens are stateless: nothing is stored server-side, so logging out is
// the client discarding its token. A token stays valid until it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "nebula-auto-parts"

// DefaultTokenTTL is how long a login stays valid when no TTL is configured.
const DefaultTokenTTL = 7 * 24 * time.Hour

// ErrTokenExpired is returned by Validate for a well-formed token whose
// expiry has passed, so callers can tell "log in again" from "garbage".
var ErrTokenExpired = errors.New("auth: token expired")

// Identity is what a valid token proves about its bearer.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// TokenService handles JWT creation and validation with an HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; ttl <= 0 selects DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload: the registered claims ("sub" holds the user
// id) plus the email and role the frontend and RequireRole read.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Generate signs a token for id that expires after the configured TTL.
func (s *TokenService) Generate(id Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
		Email: id.Email,
		Role:  id.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the identity it
// carries.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and the algorithm is HS256 (no "none" tokens)
//   - Token is not expired, and has an expiry at all
//   - Issuer matches ours
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return Identity{UserID: c.Subject, Email: c.Email, Role: c.Role}, nil
}
