package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

func newTestAuthService(t *testing.T) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4, // minimum cost, keeps the suite fast
	}
	return NewAuthService(cfg, rdb, nil), mr
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc, _ := newTestAuthService(t)

	hash, err := svc.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("password stored in plaintext")
	}

	if err := svc.CheckPassword(hash, "hunter22"); err != nil {
		t.Errorf("CheckPassword rejected the right password: %v", err)
	}
	if err := svc.CheckPassword(hash, "wrong"); err != ErrInvalidCredentials {
		t.Errorf("CheckPassword err = %v, want ErrInvalidCredentials", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc, mr := newTestAuthService(t)
	user := &model.User{ID: 42, Name: "Alice", Email: "alice@example.com", Role: model.RoleStudent}

	token, err := svc.GenerateToken(context.Background(), user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "alice@example.com" || claims.Role != model.RoleStudent {
		t.Errorf("claims = %+v", claims)
	}

	// Session registered under the user's key.
	if got, err := mr.Get(config.CacheKey.UserSessionKey(42)); err != nil || got != claims.ID {
		t.Errorf("session = %q (%v), want jti %q", got, err, claims.ID)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc, _ := newTestAuthService(t)
	user := &model.User{ID: 7, Email: "bob@example.com", Role: model.RoleTeacher}

	token, err := svc.GenerateToken(context.Background(), user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other, _ := newTestAuthService(t)
	other.cfg.JWTSecret = "different-secret"
	if _, err := other.ValidateToken(context.Background(), token); err == nil {
		t.Error("token validated against the wrong secret")
	}
}

func TestLatestLoginWins(t *testing.T) {
	svc, mr := newTestAuthService(t)
	user := &model.User{ID: 9, Email: "carol@example.com", Role: model.RoleStudent}
	ctx := context.Background()

	first, err := svc.GenerateToken(ctx, user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	second, err := svc.GenerateToken(ctx, user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	secondClaims, err := svc.ValidateToken(ctx, second)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, first); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("first token err = %v, want ErrSessionRevoked", err)
	}

	stored, err := mr.Get(config.CacheKey.UserSessionKey(9))
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	if stored != secondClaims.ID {
		t.Errorf("stored jti = %q, want the second login's %q", stored, secondClaims.ID)
	}
}

// A token minted before a relogin or a logout must stop validating the moment
// the session registry no longer carries its JTI.
func TestStaleTokenRevokedByReloginAndLogout(t *testing.T) {
	svc, _ := newTestAuthService(t)
	user := &model.User{ID: 11, Email: "erin@example.com", Role: model.RoleStudent}
	ctx := context.Background()

	first, err := svc.GenerateToken(ctx, user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, first); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	second, err := svc.GenerateToken(ctx, user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, first); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("token from before the relogin err = %v, want ErrSessionRevoked", err)
	}

	if err := svc.ResetSession(ctx, user.ID); err != nil {
		t.Fatalf("ResetSession: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, second); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("token after logout err = %v, want ErrSessionRevoked", err)
	}
}

func TestValidateTokenFailsOpenOnSessionStoreOutage(t *testing.T) {
	svc, mr := newTestAuthService(t)
	user := &model.User{ID: 13, Email: "frank@example.com", Role: model.RoleTeacher}
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	mr.Close()
	claims, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken during outage: %v", err)
	}
	if claims.UserID != 13 {
		t.Errorf("claims.UserID = %d, want 13", claims.UserID)
	}
}

func TestResetSession(t *testing.T) {
	svc, mr := newTestAuthService(t)
	user := &model.User{ID: 5, Email: "dave@example.com", Role: model.RoleStudent}
	ctx := context.Background()

	if _, err := svc.GenerateToken(ctx, user); err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if err := svc.ResetSession(ctx, 5); err != nil {
		t.Fatalf("ResetSession: %v", err)
	}
	if mr.Exists(config.CacheKey.UserSessionKey(5)) {
		t.Error("session key survived reset")
	}
}
