package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/service"
	"github.com/redis/go-redis/v9"
)

func newAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
	return service.NewAuthService(cfg, rdb, nil)
}

func tokenFor(t *testing.T, svc *service.AuthService, id int, role model.UserRole) string {
	t.Helper()
	token, err := svc.GenerateToken(context.Background(), &model.User{
		ID:    id,
		Name:  "Test User",
		Email: "user@example.com",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func setupRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", mw, func(c *gin.Context) {
		claims := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"email": claims.Email})
	})
	return r
}

func request(r *gin.Engine, header, query string) *httptest.ResponseRecorder {
	path := "/protected"
	if query != "" {
		path += "?token=" + query
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireJWT(t *testing.T) {
	svc := newAuthService(t)
	r := setupRouter(RequireJWT(svc))
	token := tokenFor(t, svc, 1, model.RoleStudent)

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"valid bearer", "Bearer " + token, "", http.StatusOK},
		{"case-insensitive scheme", "bearer " + token, "", http.StatusOK},
		{"query token not accepted", "", token, http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := request(r, tc.header, tc.query).Code; got != tc.want {
				t.Errorf("status = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRoleMiddlewares(t *testing.T) {
	svc := newAuthService(t)
	studentToken := tokenFor(t, svc, 1, model.RoleStudent)
	teacherToken := tokenFor(t, svc, 2, model.RoleTeacher)

	t.Run("student route rejects teacher", func(t *testing.T) {
		r := setupRouter(RequireStudentJWT(svc))
		if got := request(r, "Bearer "+teacherToken, "").Code; got != http.StatusForbidden {
			t.Errorf("status = %d, want 403", got)
		}
		if got := request(r, "Bearer "+studentToken, "").Code; got != http.StatusOK {
			t.Errorf("status = %d, want 200", got)
		}
	})

	t.Run("teacher route rejects student", func(t *testing.T) {
		r := setupRouter(RequireTeacherJWT(svc))
		if got := request(r, "Bearer "+studentToken, "").Code; got != http.StatusForbidden {
			t.Errorf("status = %d, want 403", got)
		}
		if got := request(r, "Bearer "+teacherToken, "").Code; got != http.StatusOK {
			t.Errorf("status = %d, want 200", got)
		}
	})
}

func TestRequireWSAuthQueryOnly(t *testing.T) {
	svc := newAuthService(t)
	r := setupRouter(RequireWSAuth(svc))
	token := tokenFor(t, svc, 1, model.RoleTeacher)

	if got := request(r, "", token).Code; got != http.StatusOK {
		t.Errorf("query token status = %d, want 200", got)
	}
	// Header-only auth does not satisfy the WS middleware.
	if got := request(r, "Bearer "+token, "").Code; got != http.StatusUnauthorized {
		t.Errorf("header token status = %d, want 401", got)
	}
}

// Tokens minted before a relogin or a logout must be turned away at the door,
// not just at the service layer.
func TestRequireJWTRejectsRevokedSession(t *testing.T) {
	svc := newAuthService(t)
	r := setupRouter(RequireJWT(svc))

	first := tokenFor(t, svc, 3, model.RoleStudent)
	if got := request(r, "Bearer "+first, "").Code; got != http.StatusOK {
		t.Fatalf("fresh token status = %d, want 200", got)
	}

	// A second login supersedes the first session.
	second := tokenFor(t, svc, 3, model.RoleStudent)
	if got := request(r, "Bearer "+first, "").Code; got != http.StatusUnauthorized {
		t.Errorf("pre-relogin token status = %d, want 401", got)
	}

	// Logout clears the session entirely.
	if err := svc.ResetSession(context.Background(), 3); err != nil {
		t.Fatalf("ResetSession: %v", err)
	}
	if got := request(r, "Bearer "+second, "").Code; got != http.StatusUnauthorized {
		t.Errorf("post-logout token status = %d, want 401", got)
	}
}
