package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plancore/api/internal/httpx"
	"plancore/api/internal/security"
	"plancore/api/internal/service"
)

func newGuardedEngine(store service.PermissionStore, requiredCode string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := testAppConfig()
	perms := service.NewPermissionService(store, nil, 0, zerolog.Nop())

	engine := gin.New()
	engine.Use(Auth(cfg, perms, zerolog.Nop()))
	engine.GET("/guarded", RequirePermission(requiredCode), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return engine
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httpx.ErrorEnvelope {
	t.Helper()
	var envelope httpx.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return envelope
}

func TestRequirePermissionRejectsAnonymous(t *testing.T) {
	engine := newGuardedEngine(&fakePermissionStore{}, "plan.view")

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Status != http.StatusUnauthorized || envelope.Path != "/guarded" {
		t.Errorf("envelope = %+v, want status 401 and path /guarded", envelope)
	}
	if envelope.Timestamp.IsZero() {
		t.Error("envelope timestamp missing")
	}
}

func TestRequirePermissionRejectsMissingCode(t *testing.T) {
	engine := newGuardedEngine(&fakePermissionStore{codes: []string{"forecast.view"}}, "plan.view")

	token, err := security.IssueAccessToken(testSecret, "u-7", "avela", "planner", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if !strings.Contains(envelope.Message, "plan.view") {
		t.Errorf("403 message %q should name the missing permission", envelope.Message)
	}
}

func TestRequirePermissionAllowsExactMatch(t *testing.T) {
	engine := newGuardedEngine(&fakePermissionStore{codes: []string{"plan.view"}}, "plan.view")

	token, err := security.IssueAccessToken(testSecret, "u-7", "avela", "planner", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequirePermissionNoWildcardMatching(t *testing.T) {
	// Holding plan.* style or prefix codes must not satisfy plan.view.
	engine := newGuardedEngine(&fakePermissionStore{codes: []string{"plan", "plan.*", "plan.view.extra"}}, "plan.view")

	token, err := security.IssueAccessToken(testSecret, "u-7", "avela", "planner", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: only exact matches may pass", rec.Code)
	}
}

func TestRequireAuthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testAppConfig()
	perms := service.NewPermissionService(&fakePermissionStore{}, nil, 0, zerolog.Nop())

	engine := gin.New()
	engine.Use(Auth(cfg, perms, zerolog.Nop()))
	engine.GET("/me", RequireAuthenticated(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d, want 401", rec.Code)
	}

	token, err := security.IssueAccessToken(testSecret, "u-7", "avela", "planner", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated: status = %d, want 200", rec.Code)
	}
}
