// Package auth provides JWT token issuance/verification, bcrypt password
// hashing, and the authentication middleware for the API.
//
// AUTH FLOW OVERVIEW:
//  1. POST /api/register or /api/login returns a signed bearer token
//  2. Clients send it on every call: Authorization: Bearer <token>
//  3. The middleware verifies the signature and expiry, resolves the
//     account from the subject claim, and puts it in the request context
//
// The token is stateless — the server stores no session data. All the
// information needed (user ID, expiry) is inside the signed token, and the
// HMAC signature ensures nobody can alter it without the secret key.
// Tokens are not revocable before expiry: there is no server-side
// blacklist, so a stolen token stays valid until it expires or the account
// is deleted. Rotating the signing key invalidates every outstanding token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenLifetime is how long an issued token remains valid.
const TokenLifetime = 30 * 24 * time.Hour

const issuer = "study-helper"

// Verification failure kinds. The two cases get different user-facing
// messages ("invalid token" vs "token expired, please log in again"), so
// callers must be able to tell them apart with errors.Is.
var (
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenMalformed = errors.New("auth: invalid token")
)

// TokenService signs and verifies bearer tokens.
//
// It holds the HMAC secret used for both operations. The secret is
// process-wide configuration loaded once at startup.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// the standard Subject, ExpiresAt, and IssuedAt fields.
//
// The user ID lives in "sub" (Subject) and nowhere else — verification does
// not guess among payload field synonyms.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a token for the given userID, valid for
// TokenLifetime (30 days) from now.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, same key signs and
// verifies, which fits a single-server deployment.
func (s *TokenService) Issue(userID string) (string, error) {
	return s.IssueWithDuration(userID, TokenLifetime)
}

// IssueWithDuration creates a token with a custom expiry duration.
// Used by tests to produce already-expired tokens.
func (s *TokenService) IssueWithDuration(userID string, d time.Duration) (string, error) {
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

// Verify parses and checks a token string and returns the user ID from the
// "sub" claim.
//
// Failure kinds:
//   - ErrTokenExpired   — signature fine, but ExpiresAt is in the past
//   - ErrTokenMalformed — bad signature, wrong algorithm, wrong issuer,
//     missing subject, or garbage input
//
// Restricting the accepted methods to HS256 prevents algorithm confusion
// attacks (a token claiming alg "none" is rejected before verification).
func (s *TokenService) Verify(tokenStr string) (string, error) {
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
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", ErrTokenMalformed
	}

	if c.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrTokenMalformed)
	}

	return c.Subject, nil
}
