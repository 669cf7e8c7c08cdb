package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-teaching-platform/internal/config"
	"ai-teaching-platform/utils"

	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

func newAuthRouter(t *testing.T) (*gin.Engine, *AuthMiddleware) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{JWTSecret: testSecret}
	auth := NewAuthMiddleware(cfg)
	return gin.New(), auth
}

func signToken(t *testing.T, userID, role string, expiresIn time.Duration) string {
	t.Helper()
	token, err := utils.GenerateJWT(userID, role, testSecret, expiresIn)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	router, auth := newAuthRouter(t)
	router.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	router, auth := newAuthRouter(t)
	router.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token := signToken(t, "user-1", "student", -time.Minute)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", w.Code)
	}
}

func TestRequireAuthSetsIdentityFromHeader(t *testing.T) {
	router, auth := newAuthRouter(t)

	var gotUser, gotRole string
	router.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		gotUser = GetUserID(c)
		gotRole = GetRole(c)
		c.Status(http.StatusOK)
	})

	token := signToken(t, "user-1", "student", time.Hour)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotUser != "user-1" || gotRole != "student" {
		t.Fatalf("identity not set: user=%q role=%q", gotUser, gotRole)
	}
}

func TestRequireAuthFallsBackToCookie(t *testing.T) {
	router, auth := newAuthRouter(t)

	var gotUser string
	router.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		gotUser = GetUserID(c)
		c.Status(http.StatusOK)
	})

	token := signToken(t, "user-2", "student", time.Hour)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotUser != "user-2" {
		t.Fatalf("expected user-2 from cookie, got %q", gotUser)
	}
}

func TestOptionalAuthNeverRejects(t *testing.T) {
	router, auth := newAuthRouter(t)

	var authed bool
	router.GET("/maybe", auth.OptionalAuth(), func(c *gin.Context) {
		authed = IsAuthenticated(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 without token, got %d", w.Code)
	}
	if authed {
		t.Fatal("request without token should not be authenticated")
	}

	token := signToken(t, "user-3", "admin", time.Hour)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/maybe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	if !authed {
		t.Fatal("request with valid token should be authenticated")
	}
}

func TestRequireRoleGuardsAdminRoutes(t *testing.T) {
	router, auth := newAuthRouter(t)
	roles := NewRoleMiddleware()

	router.POST("/admin", auth.RequireAuth(), roles.AdminGuard(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	studentToken := signToken(t, "user-4", "student", time.Hour)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+studentToken)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student, got %d", w.Code)
	}

	adminToken := signToken(t, "user-5", "admin", time.Hour)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}
}
