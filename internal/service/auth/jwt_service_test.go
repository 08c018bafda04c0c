package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/domain"
)

const testSecret = "test-secret-key-thats-long-enough-for-hmac"

func newTestService(t *testing.T) *hmacJWTService {
	t.Helper()
	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return svc.(*hmacJWTService)
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "too-short"})
	if err == nil {
		t.Fatal("Expected an error for a short secret")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	token, err := svc.GenerateToken(ctx, userID, domain.RoleManager)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token == "" {
		t.Fatal("Expected a non-empty token")
	}

	claims, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("Expected user ID %s, got %s", userID, claims.UserID)
	}
	if claims.Role != domain.RoleManager {
		t.Errorf("Expected role %s, got %s", domain.RoleManager, claims.Role)
	}
	if claims.Subject != userID.String() {
		t.Errorf("Expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.ExpiresAt.IsZero() {
		t.Error("Expected a non-zero expiry")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	// Issue in the past, beyond lifetime plus clock skew.
	issuedAt := time.Now().Add(-2 * time.Hour)
	svc.timeFunc = func() time.Time { return issuedAt }

	token, err := svc.GenerateToken(ctx, uuid.New(), domain.RoleWorker)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	svc.timeFunc = time.Now
	_, err = svc.ValidateToken(ctx, token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenWithinClockSkew(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	// Expired one minute ago; inside the two-minute skew window.
	issuedAt := time.Now().Add(-svc.tokenLifetime - time.Minute)
	svc.timeFunc = func() time.Time { return issuedAt }

	token, err := svc.GenerateToken(ctx, uuid.New(), domain.RoleWorker)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	svc.timeFunc = time.Now
	if _, err := svc.ValidateToken(ctx, token); err != nil {
		t.Errorf("Expected token within skew to validate, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, uuid.New(), domain.RoleWorker)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	other, err := NewJWTService(config.AuthConfig{JWTSecret: "a-completely-different-32-char-secret!!"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = other.ValidateToken(ctx, token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateMalformedToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.ValidateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}

func TestValidateTokenWithUnknownRole(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, uuid.New(), domain.Role("INTERN"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = svc.ValidateToken(ctx, token)
	if !errors.Is(err, ErrMissingRole) {
		t.Errorf("Expected ErrMissingRole, got %v", err)
	}
}
