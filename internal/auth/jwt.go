// Package auth issues and checks the session tokens the feed server hands
// out after login, exchanges login codes with identity providers, and
// guards the bulk import procedure.
//
// SESSION FLOW:
//  1. The client calls the login procedure with a code from its identity provider
//  2. The server exchanges the code, upserts the user and returns an openid
//     plus a signed session token
//  3. The client keeps both in its local store and sends the token as
//     "Authorization: Bearer <token>" on every attributed call
//  4. RequireAuth validates the token and puts the openid in the request context
//
// WHY JWT?
// The feed server keeps no session table. Everything RequireAuth needs (who
// the caller is, when the session ends) travels inside the signed token, so
// checking a call costs one HMAC and no database read. Logging out is a
// client-side affair: the client forgets its token and the token simply
// runs out.
//
// TOKEN SHAPE (three base64url parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<openid>","iss":"brewlog","iat":...,"exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "brewlog"

	// DefaultTokenTTL is the session lifetime. A brewing log is used a few
	// times a day, so sessions are long-lived and renewed on every login.
	DefaultTokenTTL = 30 * 24 * time.Hour
)

// TokenService handles JWT creation and validation.
//
// One secret signs and verifies. Every server instance sharing a feed
// database must be configured with the same secret, or tokens issued by one
// instance are rejected by the others.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret. A ttl of
// zero selects DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. Only registered claims are used: Subject
// carries the openid, which is also the userId stamped on published
// records.
type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a session token for userID with the configured lifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token with an explicit lifetime. A negative
// duration yields an already expired token, which tests rely on.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies tokenStr and returns the openid it carries.
//
// VALIDATION CHECKS:
//   - the signature matches the secret
//   - the algorithm is HS256 (a token claiming "none" or RS256 is refused
//     before the key is ever consulted)
//   - the issuer is "brewlog"
//   - an expiry is present and in the future
//
// An expired token gets its own message so clients can tell the user to log
// in again rather than report a malformed token.
func (s *TokenService) Validate(tokenStr string) (string, error) {
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
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
