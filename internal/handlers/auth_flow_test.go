package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"plancore/api/internal/config"
	"plancore/api/internal/middleware"
	"plancore/api/internal/models"
	"plancore/api/internal/repository"
	"plancore/api/internal/security"
	"plancore/api/internal/service"
)

const testSecret = "handlers-secret-handlers-secret!" // 32 bytes

type fakeUserStore struct {
	user models.User
}

func (f *fakeUserStore) FindByLogin(ctx context.Context, login string) (models.User, error) {
	if login != f.user.Username && login != f.user.Email {
		return models.User{}, repository.ErrUserNotFound
	}
	return f.user, nil
}

func (f *fakeUserStore) RecordLoginFailure(ctx context.Context, id string, threshold int) (int, bool, error) {
	f.user.FailedLoginCount++
	if f.user.FailedLoginCount >= threshold {
		f.user.IsLocked = true
	}
	return f.user.FailedLoginCount, f.user.IsLocked, nil
}

func (f *fakeUserStore) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	f.user.FailedLoginCount = 0
	return nil
}

type fakeAudit struct {
	entries []models.LoginLog
}

func (f *fakeAudit) Insert(ctx context.Context, entry models.LoginLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakePermissionStore struct {
	codes map[string][]string
}

func (f *fakePermissionStore) ActivePermissionCodesByRole(ctx context.Context, roleCode string) ([]string, error) {
	return f.codes[roleCode], nil
}

type fakeLoginLogReader struct{}

func (fakeLoginLogReader) List(ctx context.Context, limit int, offset int) ([]models.LoginLog, error) {
	return []models.LoginLog{{ID: "l-1", Username: "mwilson", LoginType: models.LoginTypeSuccess, CreatedAt: time.Now()}}, nil
}

type flowFixture struct {
	engine *gin.Engine
	perms  *fakePermissionStore
	audit  *fakeAudit
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := security.HashPassword("correct-horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	cfg := &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:        testSecret,
			JWTTTL:           time.Hour,
			LockoutThreshold: 5,
		},
	}

	users := &fakeUserStore{user: models.User{
		ID:           "u-1",
		Username:     "mwilson",
		Email:        "mwilson@example.com",
		FullName:     "Morgan Wilson",
		PasswordHash: hash,
		Role:         models.Role{ID: "r-1", Code: "planner", IsActive: true},
		IsActive:     true,
	}}
	audit := &fakeAudit{}
	permStore := &fakePermissionStore{codes: map[string][]string{
		"planner": {PermAuditView},
	}}

	logger := zerolog.Nop()
	authService := service.NewAuthService(users, audit, cfg, logger)
	perms := service.NewPermissionService(permStore, nil, 0, logger)

	h := HandlerSet{
		log:         logger,
		cfg:         cfg,
		authService: authService,
		perms:       perms,
		loginLogs:   fakeLoginLogReader{},
	}

	engine := gin.New()
	engine.Use(middleware.Auth(cfg, perms, logger))
	h.Register(engine.Group("/api"))

	return &flowFixture{engine: engine, perms: permStore, audit: audit}
}

func (f *flowFixture) login(t *testing.T, username string, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *flowFixture) get(t *testing.T, path string, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func TestLoginAndAuthorizationFlow(t *testing.T) {
	f := newFlowFixture(t)

	// Login with correct credentials yields a 3-segment bearer token.
	rec := f.login(t, "mwilson", "correct-horse")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var loginBody struct {
		Token     string `json:"token"`
		TokenType string `json:"tokenType"`
		User      struct {
			Username string `json:"username"`
			RoleCode string `json:"roleCode"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &loginBody); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if loginBody.TokenType != "Bearer" {
		t.Errorf("tokenType = %q, want Bearer", loginBody.TokenType)
	}
	if strings.Count(loginBody.Token, ".") != 2 {
		t.Fatalf("token %q is not 3-segment", loginBody.Token)
	}
	if loginBody.User.Username != "mwilson" || loginBody.User.RoleCode != "planner" {
		t.Errorf("user projection = %+v", loginBody.User)
	}
	token := loginBody.Token

	// A route guarded by a permission the role holds returns 200.
	if rec := f.get(t, "/api/admin/login-logs", token); rec.Code != http.StatusOK {
		t.Errorf("login-logs with audit.view: status = %d, want 200", rec.Code)
	}

	// A route guarded by a permission the role lacks returns 403.
	if rec := f.get(t, "/api/admin/roles", token); rec.Code != http.StatusForbidden {
		t.Errorf("roles without role.view: status = %d, want 403", rec.Code)
	}

	// No token returns 401.
	if rec := f.get(t, "/api/admin/login-logs", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	// A corrupted token returns 401.
	corrupted := "x" + token
	if rec := f.get(t, "/api/admin/login-logs", corrupted); rec.Code != http.StatusUnauthorized {
		t.Errorf("corrupted token: status = %d, want 401", rec.Code)
	}

	// Revoking the permission in the store takes effect on the very next
	// request; the token itself stays valid.
	f.perms.codes["planner"] = nil
	if rec := f.get(t, "/api/admin/login-logs", token); rec.Code != http.StatusForbidden {
		t.Errorf("after revocation: status = %d, want 403", rec.Code)
	}
	if rec := f.get(t, "/api/auth/me", token); rec.Code != http.StatusOK {
		t.Errorf("me after revocation: status = %d, want 200 (still authenticated)", rec.Code)
	}
}

func TestLoginFailureStatuses(t *testing.T) {
	f := newFlowFixture(t)

	if rec := f.login(t, "mwilson", "wrong-password"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", rec.Code)
	}
	if rec := f.login(t, "ghost", "whatever"); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: status = %d, want 401", rec.Code)
	}

	// The two 401 bodies must be indistinguishable.
	recWrong := f.login(t, "mwilson", "wrong-password")
	recGhost := f.login(t, "ghost", "whatever")
	var wrongEnvelope, ghostEnvelope map[string]any
	if err := json.Unmarshal(recWrong.Body.Bytes(), &wrongEnvelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(recGhost.Body.Bytes(), &ghostEnvelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wrongEnvelope["message"] != ghostEnvelope["message"] {
		t.Errorf("unknown-user and wrong-password messages differ: %q vs %q",
			wrongEnvelope["message"], ghostEnvelope["message"])
	}

	// Audit entries still record the distinction server-side.
	if len(f.audit.entries) < 2 {
		t.Fatalf("expected audit entries for failed attempts, got %d", len(f.audit.entries))
	}

	if rec := f.get(t, "/api/auth/me", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("me without token: status = %d, want 401", rec.Code)
	}
}

func TestLockedAndInactiveStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hash, err := security.HashPassword("correct-horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	cfg := &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:        testSecret,
			JWTTTL:           time.Hour,
			LockoutThreshold: 5,
		},
	}

	cases := []struct {
		name   string
		mutate func(*models.User)
		want   int
	}{
		{"locked", func(u *models.User) { u.IsLocked = true }, http.StatusForbidden},
		{"inactive", func(u *models.User) { u.IsActive = false }, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := models.User{
				ID:           "u-1",
				Username:     "mwilson",
				PasswordHash: hash,
				Role:         models.Role{Code: "planner"},
				IsActive:     true,
			}
			tc.mutate(&user)

			logger := zerolog.Nop()
			authService := service.NewAuthService(&fakeUserStore{user: user}, &fakeAudit{}, cfg, logger)
			h := HandlerSet{log: logger, cfg: cfg, authService: authService}

			engine := gin.New()
			engine.POST("/api/auth/login", h.Login)

			body, _ := json.Marshal(map[string]string{"username": "mwilson", "password": "correct-horse"})
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
