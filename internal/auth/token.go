// Package auth verifies the bearer credential presented at handshake
// time. Token issuance lives upstream; the relay only checks signatures
// and extracts the identity it is told to trust.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skannik/vid222/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims mirror what the upstream auth service signs: {id, username}.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the token. HS256 only; anything else,
// including alg confusion attempts, fails closed.
func (v *Verifier) Verify(token string) (domain.Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return domain.Identity{}, ErrInvalidToken
	}
	if claims.ID == "" {
		return domain.Identity{}, ErrInvalidToken
	}
	id, err := domain.NewIdentity(domain.UserID(claims.ID), claims.Username)
	if err != nil {
		return domain.Identity{}, ErrInvalidToken
	}
	return id, nil
}
