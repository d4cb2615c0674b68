package services

import (
	"context"
	"errors"
	"testing"

	"klinika-care/internal/config"
)

func newAuthServiceForTest() (*AuthService, *fakeUserRepo, *fakeRefreshTokenRepo) {
	userRepo := newFakeUserRepo()
	tokenRepo := newFakeRefreshTokenRepo()
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:           "access-secret-for-tests",
			RefreshSecret:    "refresh-secret-for-tests",
			AccessTokenMins:  15,
			RefreshTokenDays: 30,
		},
	}
	return NewAuthService(userRepo, tokenRepo, cfg), userRepo, tokenRepo
}

func TestRegister_CreatesPatientAndLogsIn(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()

	pair, err := svc.Register(context.Background(), &RegisterRequest{
		FullName: "Ploy K.",
		Email:    "ploy@example.com",
		Password: "klinika123456",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("register should issue both tokens")
	}
	if pair.User.Role != "PATIENT" {
		t.Errorf("role = %q, self-registration must always be PATIENT", pair.User.Role)
	}
}

func TestRegister_DuplicateEmailAndWeakPassword(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()

	req := &RegisterRequest{FullName: "Ploy K.", Email: "ploy@example.com", Password: "klinika123456"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}

	_, err := svc.Register(context.Background(), &RegisterRequest{
		FullName: "Nok S.", Email: "nok@example.com", Password: "short",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password error = %v, want ErrWeakPassword", err)
	}
}

func TestLogin_WrongPasswordAndInactiveAccount(t *testing.T) {
	svc, userRepo, _ := newAuthServiceForTest()
	_, err := svc.Register(context.Background(), &RegisterRequest{
		FullName: "Ploy K.", Email: "ploy@example.com", Password: "klinika123456",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{
		Email: "ploy@example.com", Password: "klinika123456",
	}); err != nil {
		t.Errorf("login: %v", err)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{
		Email: "ploy@example.com", Password: "not-the-password",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}

	userRepo.mu.Lock()
	for _, u := range userRepo.users {
		u.IsActive = false
	}
	userRepo.mu.Unlock()
	if _, err := svc.Login(context.Background(), &LoginRequest{
		Email: "ploy@example.com", Password: "klinika123456",
	}); !errors.Is(err, ErrUserInactive) {
		t.Errorf("inactive account error = %v, want ErrUserInactive", err)
	}
}

// Refresh rotates: the old token is revoked on use, so presenting it a second
// time must fail.
func TestRefresh_RotationRevokesOldToken(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()
	pair, err := svc.Register(context.Background(), &RegisterRequest{
		FullName: "Ploy K.", Email: "ploy@example.com", Password: "klinika123456",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("refresh must issue a new token, not echo the old one")
	}

	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("replayed token error = %v, want ErrInvalidToken", err)
	}

	if _, err := svc.Refresh(context.Background(), next.RefreshToken); err != nil {
		t.Errorf("fresh token rejected: %v", err)
	}
}

func TestRefresh_GarbageTokenRejected(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()
	if _, err := svc.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}

func TestLogoutAll_RevokesEverySession(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()
	pair, err := svc.Register(context.Background(), &RegisterRequest{
		FullName: "Ploy K.", Email: "ploy@example.com", Password: "klinika123456",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := svc.Login(context.Background(), &LoginRequest{
		Email: "ploy@example.com", Password: "klinika123456",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.LogoutAll(context.Background(), pair.User.ID); err != nil {
		t.Fatalf("logout all: %v", err)
	}

	for _, token := range []string{pair.RefreshToken, second.RefreshToken} {
		if _, err := svc.Refresh(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("revoked session still refreshes: %v", err)
		}
	}
}
