package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestService() *JWTService {
	return NewJWTService(Config{
		SecretKey:     "test-secret",
		TokenDuration: time.Hour,
	}, NewMemoryRepository())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "analyst@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID == "" {
		t.Error("registered user has no ID")
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in plaintext")
	}

	token, err := svc.Login(ctx, "analyst@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if claims.Email != "analyst@example.com" {
		t.Errorf("claims email = %s", claims.Email)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims user id = %s, want %s", claims.UserID, user.ID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "analyst@example.com", "password1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.Register(ctx, "Analyst@Example.com", "password2"); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists for duplicate email, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "analyst@example.com", "right-password"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.Login(ctx, "analyst@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestValidateToken_Tampered(t *testing.T) {
	svc := newTestService()
	other := NewJWTService(Config{SecretKey: "different-secret", TokenDuration: time.Hour}, NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "analyst@example.com", "password"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	token, err := svc.Login(ctx, "analyst@example.com", "password")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken under a different key, got %v", err)
	}
	if _, err := svc.ValidateToken(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "analyst@example.com", "password"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	token, err := svc.Login(ctx, "analyst@example.com", "password")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var gotEmail string
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetUserFromContext(r.Context())
		if !ok {
			t.Error("claims missing from context")
			return
		}
		gotEmail = claims.Email
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("authorized request status = %d", rec.Code)
	}
	if gotEmail != "analyst@example.com" {
		t.Errorf("context email = %s", gotEmail)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}
}
