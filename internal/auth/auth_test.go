package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/coldreach/leadctl/internal/session"
)

type fakeAPI struct {
	loginCalls  int
	signupCalls int
	token       string
	err         error
	lastEmail   string
	lastPass    string
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (string, error) {
	f.loginCalls++
	f.lastEmail, f.lastPass = email, password
	return f.token, f.err
}

func (f *fakeAPI) Signup(_ context.Context, email, password string) error {
	f.signupCalls++
	f.lastEmail, f.lastPass = email, password
	return f.err
}

func (f *fakeAPI) RequestPasswordReset(_ context.Context, email string) error {
	f.lastEmail = email
	return f.err
}

func (f *fakeAPI) ConfirmPasswordReset(_ context.Context, _, password string) error {
	f.lastPass = password
	return f.err
}

func newService(t *testing.T, api API) *Service {
	t.Helper()
	mgr, err := session.NewManager(session.NewMemStore())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return NewService(api, mgr)
}

func TestLoginPersistsSession(t *testing.T) {
	api := &fakeAPI{token: "tok-123"}
	svc := newService(t, api)

	if err := svc.Login(context.Background(), "user@example.com", "hunter2"); err != nil {
		t.Fatalf("login: %v", err)
	}

	cur := svc.Current()
	if !cur.IsAuthenticated() {
		t.Fatal("expected authenticated session after login")
	}
	if cur.Token != "tok-123" {
		t.Errorf("token = %q, want tok-123", cur.Token)
	}
	if cur.User == nil || cur.User.Email != "user@example.com" {
		t.Errorf("user = %+v, want email user@example.com", cur.User)
	}
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "secret"},
		{"blank email", "   ", "secret"},
		{"no at sign", "userexample.com", "secret"},
		{"empty password", "user@example.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{token: "tok"}
			svc := newService(t, api)
			if err := svc.Login(context.Background(), tc.email, tc.password); err == nil {
				t.Fatal("expected validation error")
			}
			if api.loginCalls != 0 {
				t.Errorf("login reached network %d times, want 0", api.loginCalls)
			}
			if svc.Current().IsAuthenticated() {
				t.Error("session should stay unauthenticated")
			}
		})
	}
}

func TestLoginFailureLeavesSessionEmpty(t *testing.T) {
	api := &fakeAPI{err: errors.New("invalid credentials")}
	svc := newService(t, api)

	if err := svc.Login(context.Background(), "user@example.com", "wrong"); err == nil {
		t.Fatal("expected error")
	}
	if svc.Current().IsAuthenticated() {
		t.Error("session should stay unauthenticated after failed login")
	}
}

func TestSignupPasswordPolicy(t *testing.T) {
	api := &fakeAPI{}
	svc := newService(t, api)

	err := svc.Signup(context.Background(), "user@example.com", "short")
	if err == nil {
		t.Fatal("expected error for 5-char password")
	}
	if !strings.Contains(err.Error(), "at least 6") {
		t.Errorf("error = %v, want min length message", err)
	}
	if api.signupCalls != 0 {
		t.Error("signup should not reach network on short password")
	}

	if err := svc.Signup(context.Background(), "user@example.com", "longer-pass"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if api.signupCalls != 1 {
		t.Errorf("signup calls = %d, want 1", api.signupCalls)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	api := &fakeAPI{token: "tok"}
	svc := newService(t, api)

	if err := svc.Login(context.Background(), "user@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if svc.Current().IsAuthenticated() {
		t.Error("session should be cleared after logout")
	}
}

func TestConfirmPasswordResetValidation(t *testing.T) {
	svc := newService(t, &fakeAPI{})

	if err := svc.ConfirmPasswordReset(context.Background(), "", "new-password"); err == nil {
		t.Error("expected error for empty token")
	}
	if err := svc.ConfirmPasswordReset(context.Background(), "tok", "tiny"); err == nil {
		t.Error("expected error for short password")
	}
	if err := svc.ConfirmPasswordReset(context.Background(), "tok", "new-password"); err != nil {
		t.Errorf("confirm: %v", err)
	}
}
