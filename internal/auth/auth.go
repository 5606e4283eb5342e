// Package auth tracks the signed-in user that scopes every remote mirror call.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrRequired is returned when a remote operation runs without a signed-in user.
// It is not retryable.
var ErrRequired = errors.New("authentication required")

// Provider yields the current user id ("" when signed out) and change notifications.
type Provider interface {
	UserID() string
	OnChange(fn func(userID string)) (cancel func())
}

// Require returns the current user id or ErrRequired.
func Require(p Provider) (string, error) {
	if p == nil {
		return "", ErrRequired
	}
	id := p.UserID()
	if id == "" {
		return "", ErrRequired
	}
	return id, nil
}

// Session is an in-process Provider.
type Session struct {
	mu        sync.Mutex
	userID    string
	nextID    int
	listeners map[int]func(string)
}

func NewSession(userID string) *Session {
	return &Session{userID: strings.TrimSpace(userID), listeners: map[int]func(string){}}
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) OnChange(fn func(string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SignIn switches the session to userID. Listeners run only when the id changes.
func (s *Session) SignIn(userID string) {
	s.set(strings.TrimSpace(userID))
}

func (s *Session) SignOut() {
	s.set("")
}

// SignInWithToken verifies token and signs in as its subject.
func (s *Session) SignInWithToken(ctx context.Context, v Verifier, token string) (string, error) {
	if v == nil {
		return "", errors.New("no token verifier configured")
	}
	id, err := v.Verify(ctx, strings.TrimSpace(token))
	if err != nil {
		return "", err
	}
	s.SignIn(id)
	return id, nil
}

func (s *Session) set(userID string) {
	s.mu.Lock()
	if s.userID == userID {
		s.mu.Unlock()
		return
	}
	s.userID = userID
	fns := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(userID)
	}
}
