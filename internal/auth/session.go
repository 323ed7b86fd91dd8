package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

const SessionCookie = "sf_session"

var (
	ErrUnauthorized = errors.New("no valid session")
	ErrForbidden    = errors.New("service role key required")
)

type ctxKey int

const userIDKey ctxKey = 0

// Sessions verifies the session cookie JWT issued by the auth backend.
type Sessions struct {
	Secret string
}

// Verify parses a session token and returns the subject user id.
func (s *Sessions) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrUnauthorized
	}
	return sub, nil
}

// FromRequest resolves the requester's user id from the session cookie.
func (s *Sessions) FromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return "", ErrUnauthorized
	}
	return s.Verify(c.Value)
}

// UserID returns the authenticated user id stored by the middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}
