// Package auth implements the credential-verification boundary of the
// alerting backend. Token issuance, password hashing, and the rest of the
// account subsystem live elsewhere; this package only answers one question:
// does this bearer token resolve to a user identity?
//
// Both the HTTP middleware and the realtime hub handshake verify through
// the same Verifier so the two surfaces cannot drift apart.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the resolved subject of a verified token.
type Identity struct {
	UserID string
	Email  string
}

// ErrInvalidToken is returned for any missing, malformed, mis-signed, or
// expired credential. Callers do not branch on the reason: every variant is
// an authentication failure.
var ErrInvalidToken = errors.New("invalid or expired token")

type sessionClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 session tokens issued by the auth subsystem.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier for the shared signing secret.
func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates raw, returning the identity it asserts.
// Any failure maps to ErrInvalidToken.
func (v *Verifier) Verify(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

// BearerToken extracts the credential from an Authorization header value,
// accepting both "Bearer <token>" and a bare token.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return header
}
