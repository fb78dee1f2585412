// Package auth holds the device session used to attribute uploads.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrNoSession      = errors.New("no authenticated session")
	ErrSessionExpired = errors.New("session expired")
)

// Session keeps the current access token issued by the auth provider and
// resolves it to the acting user id on demand.
type Session struct {
	mu     sync.RWMutex
	token  string
	secret []byte
}

func NewSession(secret, token string) *Session {
	return &Session{secret: []byte(secret), token: token}
}

// SetToken replaces the current token. It is validated before being stored.
func (s *Session) SetToken(token string) error {
	if _, err := s.parse(token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Actor returns the subject of the current token.
func (s *Session) Actor(ctx context.Context) (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return "", ErrNoSession
	}
	return s.parse(token)
}

func (s *Session) parse(token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return "", ErrSessionExpired
		}
		return "", fmt.Errorf("invalid session token: %w", err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("invalid session token: missing subject")
	}
	return claims.Subject, nil
}
