package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clubhub/internal/auth"
	"clubhub/internal/config"
	"clubhub/internal/model"
	"clubhub/internal/ratelimit"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:      "test-secret",
		JWTIssuer:      "test-issuer",
		JWTExpiresIn:   time.Hour,
		FrontendURL:    "http://localhost:5173",
		Environment:    "test",
		BodyLimitBytes: 1 << 20,
		BcryptCost:     4,
	}
}

func serve(t *testing.T, handler http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestHealthEndpoints(t *testing.T) {
	router := NewServer(testConfig(), nil, nil, nil, nil).Router()

	rec, _ := serve(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "OK" || health.Version != Version || health.Environment != "" {
		t.Fatalf("unexpected /health payload: %+v", health)
	}

	rec, _ = serve(t, router, http.MethodGet, "/api/health", "", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode api health: %v", err)
	}
	if health.Environment != "test" {
		t.Fatalf("expected environment in /api/health, got %+v", health)
	}

	rec, env := serve(t, router, http.MethodGet, "/api", "", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected api info, got %d %+v", rec.Code, env)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	router := NewServer(testConfig(), nil, nil, nil, nil).Router()

	rec, env := serve(t, router, http.MethodGet, "/api/nope", "", nil)
	if rec.Code != http.StatusNotFound || env.Success || env.Code != "route_not_found" {
		t.Fatalf("expected route_not_found 404, got %d %+v", rec.Code, env)
	}

	rec, env = serve(t, router, http.MethodPost, "/health", "", nil)
	if rec.Code != http.StatusMethodNotAllowed || env.Code != "method_not_allowed" {
		t.Fatalf("expected 405, got %d %+v", rec.Code, env)
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	cfg := testConfig()
	router := NewServer(cfg, nil, nil, nil, nil).Router()

	expired, err := auth.NewAccessToken(cfg.JWTSecret, cfg.JWTIssuer, -time.Minute, "22222222-2222-2222-2222-222222222222", "a@example.com")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	foreign, err := auth.NewAccessToken("other-secret", cfg.JWTIssuer, time.Hour, "22222222-2222-2222-2222-222222222222", "a@example.com")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	cases := []struct {
		name  string
		token string
		code  string
	}{
		{"missing", "", "missing_token"},
		{"garbage", "not-a-jwt", "invalid_token"},
		{"wrong secret", foreign, "invalid_token"},
		{"expired", expired, "expired_token"},
	}
	for _, tc := range cases {
		rec, env := serve(t, router, http.MethodGet, "/api/auth/me", tc.token, nil)
		if rec.Code != http.StatusUnauthorized || env.Code != tc.code {
			t.Fatalf("%s: expected 401 %s, got %d %+v", tc.name, tc.code, rec.Code, env)
		}
	}
}

func TestRoleGuards(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		guard func(http.Handler) http.Handler
		role  string
		want  int
	}{
		{requireMember, model.RoleMember, http.StatusNoContent},
		{requireMember, "guest", http.StatusForbidden},
		{requireExecutive, model.RoleMember, http.StatusForbidden},
		{requireExecutive, model.RoleExecutive, http.StatusNoContent},
		{requireExecutive, model.RoleAdmin, http.StatusNoContent},
		{requireAdmin, model.RoleExecutive, http.StatusForbidden},
		{requireAdmin, model.RoleAdmin, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = withIdentity(req, &model.User{ID: "u1", Role: tc.role}, &auth.Claims{})
		rec := httptest.NewRecorder()
		tc.guard(ok).ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("role %s: expected %d, got %d", tc.role, tc.want, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	requireMember(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	router := NewServer(testConfig(), nil, nil, nil, nil).Router()

	rec, env := serve(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     "not-an-email",
		"password":  "123",
		"firstName": "A",
		"lastName":  "B",
	})
	if rec.Code != http.StatusBadRequest || env.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %d %+v", rec.Code, env)
	}
	fields := map[string]bool{}
	for _, fe := range env.Errors {
		fields[fe.Field] = true
	}
	if !fields["email"] || !fields["password"] || fields["firstName"] || fields["lastName"] {
		t.Fatalf("unexpected field errors: %+v", env.Errors)
	}

	rec, env = serve(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "a@example.com",
		"password": "secret1",
		"nickname": "x",
	})
	if rec.Code != http.StatusBadRequest || env.Code != "invalid_request" {
		t.Fatalf("expected invalid_request for unknown field, got %d %+v", rec.Code, env)
	}

	rec, env = serve(t, router, http.MethodPost, "/api/auth/login", "", "{")
	if rec.Code != http.StatusBadRequest || env.Code != "invalid_request" {
		t.Fatalf("expected invalid_request for malformed body, got %d %+v", rec.Code, env)
	}

	rec, env = serve(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     "ada@example.com",
		"password":  "secret1",
		"firstName": "Ada",
		"lastName":  "   ",
	})
	if rec.Code != http.StatusBadRequest || len(env.Errors) != 1 || env.Errors[0].Field != "lastName" {
		t.Fatalf("expected a lastName error, got %d %+v", rec.Code, env.Errors)
	}
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	router := NewServer(testConfig(), nil, nil, nil, nil).Router()

	rec, env := serve(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     "ada@example.com",
		"password":  strings.Repeat("a", 73),
		"firstName": "Ada",
		"lastName":  "Lovelace",
	})
	if rec.Code != http.StatusBadRequest || len(env.Errors) != 1 || env.Errors[0].Field != "password" {
		t.Fatalf("expected a password field error, got %d %+v", rec.Code, env)
	}

	// Under the character limit but over bcrypt's 72 bytes; rejected before any storage access.
	rec, env = serve(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     "ada@example.com",
		"password":  strings.Repeat("é", 40),
		"firstName": "Ada",
		"lastName":  "Lovelace",
	})
	if rec.Code != http.StatusBadRequest || env.Code != "password_too_long" {
		t.Fatalf("expected password_too_long, got %d %+v", rec.Code, env)
	}
}

func TestApplicationValidation(t *testing.T) {
	router := NewServer(testConfig(), nil, nil, nil, nil).Router()

	rec, env := serve(t, router, http.MethodPost, "/api/membership/apply", "", map[string]string{
		"firstName":  "Ada",
		"lastName":   "Lovelace",
		"email":      "ada@example.com",
		"motivation": "too short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(env.Errors) != 1 || env.Errors[0].Field != "motivation" {
		t.Fatalf("expected a motivation error, got %+v", env.Errors)
	}
	if !strings.Contains(env.Errors[0].Message, "50") {
		t.Fatalf("expected min length in message, got %q", env.Errors[0].Message)
	}
}

func TestBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.BodyLimitBytes = 64
	router := NewServer(cfg, nil, nil, nil, nil).Router()

	rec, env := serve(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "a@example.com",
		"password": strings.Repeat("x", 200),
	})
	if rec.Code != http.StatusRequestEntityTooLarge || env.Code != "payload_too_large" {
		t.Fatalf("expected 413, got %d %+v", rec.Code, env)
	}
}

func TestInvalidPathIDIsNotFound(t *testing.T) {
	router := NewServer(testConfig(), nil, nil, nil, nil).Router()

	rec, env := serve(t, router, http.MethodGet, "/api/partners/not-a-uuid", "", nil)
	if rec.Code != http.StatusNotFound || env.Code != "partner_not_found" {
		t.Fatalf("expected partner_not_found, got %d %+v", rec.Code, env)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, time.Hour)
	router := NewServer(testConfig(), nil, nil, nil, limiter).Router()

	for i := 0; i < 2; i++ {
		rec, _ := serve(t, router, http.MethodGet, "/api/health", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
		if rec.Header().Get("RateLimit-Limit") != "2" {
			t.Fatalf("expected RateLimit-Limit header, got %q", rec.Header().Get("RateLimit-Limit"))
		}
	}
	rec, env := serve(t, router, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusTooManyRequests || env.Code != "too_many_requests" {
		t.Fatalf("expected 429, got %d %+v", rec.Code, env)
	}
	if rec.Header().Get("RateLimit-Remaining") != "0" {
		t.Fatalf("expected no remaining requests, got %q", rec.Header().Get("RateLimit-Remaining"))
	}

	rec, _ = serve(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to bypass the limiter, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig()
	router := NewServer(cfg, nil, nil, nil, nil).Router()

	req := httptest.NewRequest(http.MethodOptions, "/api/exams", nil)
	req.Header.Set("Origin", cfg.FrontendURL)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != cfg.FrontendURL {
		t.Fatalf("expected allowed origin %s, got %q", cfg.FrontendURL, got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/exams", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allowed origin for foreign site, got %q", got)
	}
}

func TestServerErrorHidesMessageInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "production"
	s := NewServer(cfg, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	s.serverError(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), errors.New("pq: relation missing"))
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusInternalServerError || strings.Contains(env.Message, "relation") {
		t.Fatalf("expected hidden message, got %d %+v", rec.Code, env)
	}

	s.cfg.Environment = "development"
	rec = httptest.NewRecorder()
	s.serverError(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), errors.New("pq: relation missing"))
	if !strings.Contains(rec.Body.String(), "relation missing") {
		t.Fatalf("expected error text outside production, got %s", rec.Body.String())
	}
}

func TestParsePage(t *testing.T) {
	cases := []struct {
		query  string
		page   int
		limit  int
		offset int
	}{
		{"", 1, 10, 0},
		{"page=3&limit=5", 3, 5, 10},
		{"page=0&limit=-1", 1, 10, 0},
		{"page=abc&limit=1000", 1, maxPageSize, 0},
	}
	for _, tc := range cases {
		p := parsePage(httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil), 10)
		if p.Page != tc.page || p.Limit != tc.limit || p.Offset != tc.offset {
			t.Fatalf("%q: got %+v", tc.query, p)
		}
	}

	if got := (page{Page: 1, Limit: 10}).of(21).Pages; got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}
	if got := (page{Page: 1, Limit: 10}).of(0).Pages; got != 0 {
		t.Fatalf("expected 0 pages, got %d", got)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		"Basic abc":     "",
		"Bearerabc":     "",
		"Bearer a b":    "a b",
		"BEARER token1": "token1",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Fatalf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestHumanize(t *testing.T) {
	if got := humanize("activity_full"); got != "Activity full" {
		t.Fatalf("got %q", got)
	}
	if got := humanize(""); got != "" {
		t.Fatalf("got %q", got)
	}
}
