// Package auth handles caller identity and authorization.
//
// Identity is issued elsewhere: the external identity provider signs a JWT
// containing the user's verified email, and clients send it as a bearer
// token. This package only validates the signature and claims — it never
// issues credentials to end users. Generate exists for tests and for
// minting dev tokens locally.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "knowloop-identity"

// TokenService validates bearer tokens using the HMAC secret shared with
// the identity provider.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given shared secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the token payload. The email claim is the verified caller
// identity; everything downstream trusts it verbatim.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Generate signs a token asserting the given email. Test/dev helper — in
// production the identity provider mints tokens.
func (s *TokenService) Generate(email string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a bearer token and returns the email it
// asserts. Restricting methods to HS256 prevents algorithm confusion;
// issuer and expiry checks reject tokens from other apps or the past.
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
		jwt.WithIssuer(tokenIssuer),
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

	if c.Email == "" {
		return "", fmt.Errorf("auth: token has no email claim")
	}

	return c.Email, nil
}
