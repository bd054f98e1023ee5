// Package auth orchestrates login, signup, and logout against the
// backend, with client-side validation that fails fast before any
// request is issued.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coldreach/leadctl/internal/session"
)

// MinPasswordLength matches the backend's signup policy; checking it
// client-side is a UX shortcut, not a security boundary.
const MinPasswordLength = 6

// API is the slice of the backend the service needs.
// Implemented by api.Client.
type API interface {
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, email, password string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// Service performs auth flows and keeps the session manager in sync.
type Service struct {
	api      API
	sessions *session.Manager
}

func NewService(api API, sessions *session.Manager) *Service {
	return &Service{api: api, sessions: sessions}
}

// Login authenticates and persists the resulting session.
func (s *Service) Login(ctx context.Context, email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("backend returned an empty token")
	}

	return s.sessions.Save(session.Session{
		Token: token,
		User:  &session.User{Email: email},
	})
}

// Signup registers a new account. It does not log the account in; the
// caller follows up with Login.
func (s *Service) Signup(ctx context.Context, email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return s.api.Signup(ctx, email, password)
}

// Logout destroys the persisted session.
func (s *Service) Logout() error {
	return s.sessions.Clear()
}

// Current returns the active session.
func (s *Service) Current() session.Session {
	return s.sessions.Current()
}

// RequestPasswordReset asks the backend to email a reset link.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	return s.api.RequestPasswordReset(ctx, email)
}

// ConfirmPasswordReset redeems a reset token.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return fmt.Errorf("reset token is required")
	}
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return s.api.ConfirmPasswordReset(ctx, token, newPassword)
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("invalid email address %q", email)
	}
	return nil
}
