package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestVerifyValidToken(t *testing.T) {
	s := &Sessions{Secret: "topsecret"}
	uid, err := s.Verify(signToken(t, "topsecret", "user_42"))
	require.NoError(t, err)
	assert.Equal(t, "user_42", uid)
}

func TestVerifyWrongSecret(t *testing.T) {
	s := &Sessions{Secret: "topsecret"}
	_, err := s.Verify(signToken(t, "other", "user_42"))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyMissingSubject(t *testing.T) {
	s := &Sessions{Secret: "topsecret"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("topsecret"))
	require.NoError(t, err)

	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyExpiredToken(t *testing.T) {
	s := &Sessions{Secret: "topsecret"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("topsecret"))
	require.NoError(t, err)

	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFromRequestReadsSessionCookie(t *testing.T) {
	s := &Sessions{Secret: "topsecret"}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: signToken(t, "topsecret", "user_7")})
	uid, err := s.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "user_7", uid)

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = s.FromRequest(bare)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
