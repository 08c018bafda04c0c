package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/service/auth"
)

func newTestJWTService(t *testing.T) auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret: "test-secret-key-thats-long-enough-for-hmac",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return svc
}

// identityEcho records the identity the middleware put on the context.
type identityEcho struct {
	called bool
	userID uuid.UUID
	role   domain.Role
}

func (e *identityEcho) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.called = true
	e.userID, _ = shared.GetUserID(r.Context())
	e.role, _ = shared.GetRole(r.Context())
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticateValidToken(t *testing.T) {
	t.Parallel()

	jwtService := newTestJWTService(t)
	userID := uuid.New()
	token, err := jwtService.GenerateToken(context.Background(), userID, domain.RoleManager)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	echo := &identityEcho{}
	handler := NewAuthMiddleware(jwtService).Authenticate(echo)

	req := httptest.NewRequest(http.MethodGet, "/api/manager/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !echo.called {
		t.Fatal("Expected the next handler to be called")
	}
	if echo.userID != userID {
		t.Errorf("Expected user ID %s on the context, got %s", userID, echo.userID)
	}
	if echo.role != domain.RoleManager {
		t.Errorf("Expected role MANAGER on the context, got %s", echo.role)
	}
}

func TestAuthenticateRejectsBadHeaders(t *testing.T) {
	t.Parallel()

	jwtService := newTestJWTService(t)
	echo := &identityEcho{}
	handler := NewAuthMiddleware(jwtService).Authenticate(echo)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/manager/tasks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rec.Code)
			}
		})
	}
	if echo.called {
		t.Error("Expected the next handler never to be called")
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		role    domain.Role
		allowed []domain.Role
		want    int
	}{
		{"manager allowed", domain.RoleManager, []domain.Role{domain.RoleManager}, http.StatusOK},
		{"worker rejected on manager routes", domain.RoleWorker, []domain.Role{domain.RoleManager}, http.StatusForbidden},
		{"manager rejected on worker routes", domain.RoleManager, []domain.Role{domain.RoleWorker}, http.StatusForbidden},
		{"admin passes every check", domain.RoleAdmin, []domain.Role{domain.RoleWorker}, http.StatusOK},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			echo := &identityEcho{}
			handler := RequireRole(tc.allowed...)(echo)

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			req = req.WithContext(shared.WithIdentity(req.Context(), uuid.New(), tc.role))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("Expected status %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	t.Parallel()

	echo := &identityEcho{}
	handler := RequireRole(domain.RoleManager)(echo)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
	if echo.called {
		t.Error("Expected the next handler never to be called")
	}
}
