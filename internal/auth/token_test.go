package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skannik/vid222/internal/domain"
)

func signHS256(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier("s3cret")
	tok := signHS256(t, "s3cret", Claims{ID: "u1", Username: "ann"})

	id, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u1"), id.UserID)
	assert.Equal(t, "ann", id.Username)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewVerifier("s3cret")
	tok := signHS256(t, "other", Claims{ID: "u1", Username: "ann"})

	_, err := v.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsNonHS256(t *testing.T) {
	v := NewVerifier("s3cret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{ID: "u1", Username: "ann"}).
		SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsAlgNone(t *testing.T) {
	v := NewVerifier("s3cret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: "u1", Username: "ann"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewVerifier("s3cret")
	tok := signHS256(t, "s3cret", Claims{
		ID:       "u1",
		Username: "ann",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := v.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmptyID(t *testing.T) {
	v := NewVerifier("s3cret")
	tok := signHS256(t, "s3cret", Claims{ID: "", Username: "ann"})

	_, err := v.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyBadUsername(t *testing.T) {
	v := NewVerifier("s3cret")

	_, err := v.Verify(signHS256(t, "s3cret", Claims{ID: "u1", Username: ""}))
	assert.ErrorIs(t, err, ErrInvalidToken)

	long := strings.Repeat("x", domain.MaxUsernameLen+1)
	_, err = v.Verify(signHS256(t, "s3cret", Claims{ID: "u1", Username: long}))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	v := NewVerifier("s3cret")
	_, err := v.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
