package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "proxyhome"

	DefaultTokenLifetime = time.Hour
)

var (
	ErrSecretMissing = errors.New("auth: JWT secret is not configured")
	ErrTokenInvalid  = errors.New("auth: token is invalid")
)

// IssueToken mints a short-lived HS256 token for a caller that presented the
// API key. It returns the signed token and its expiry.
func IssueToken(secret string, lifetime time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, ErrSecretMissing
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}

	now := time.Now().UTC()
	expiresAt := now.Add(lifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "api-key",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// VerifyToken checks the signature, expiry and issuer of a token minted by
// IssueToken.
func VerifyToken(secret, tokenString string) error {
	if secret == "" {
		return ErrSecretMissing
	}

	_, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return nil
}

// VerifyRequest checks the bearer token on an incoming request.
func VerifyRequest(r *http.Request, secret string) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return fmt.Errorf("%w: missing Authorization header", ErrTokenInvalid)
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return fmt.Errorf("%w: Authorization header is not a bearer token", ErrTokenInvalid)
	}

	return VerifyToken(secret, strings.TrimSpace(header[len(prefix):]))
}
