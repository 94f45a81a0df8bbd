package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	otpAuth "github.com/MrEthical07/otpAuth"
)

var otpInBody = regexp.MustCompile(`[0-9]{4,10}`)

type captureMailer struct {
	codes chan string
}

func (m *captureMailer) Send(_ context.Context, _, _, body string) error {
	m.codes <- otpInBody.FindString(body)
	return nil
}

func (m *captureMailer) waitForCode(t *testing.T) string {
	t.Helper()
	select {
	case code := <-m.codes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("no otp email delivered")
		return ""
	}
}

type stubProvider struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]otpAuth.UserRecord
}

func newStubProvider(emails ...string) *stubProvider {
	p := &stubProvider{users: make(map[string]otpAuth.UserRecord)}
	for _, email := range emails {
		p.nextID++
		p.users[email] = otpAuth.UserRecord{ID: p.nextID, Email: email, Name: "Test User", Active: true}
	}
	return p
}

func (p *stubProvider) FindByEmail(_ context.Context, email string) (otpAuth.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	user, ok := p.users[email]
	if !ok {
		return otpAuth.UserRecord{}, errors.New("user not found")
	}
	return user, nil
}

func (p *stubProvider) FindByID(_ context.Context, id int64) (otpAuth.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, user := range p.users {
		if user.ID == id {
			return user, nil
		}
	}
	return otpAuth.UserRecord{}, errors.New("user not found")
}

func (p *stubProvider) Exists(_ context.Context, email string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.users[email]
	return ok, nil
}

func (p *stubProvider) Create(_ context.Context, email, name string) (otpAuth.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	user := otpAuth.UserRecord{ID: p.nextID, Email: email, Name: name, Active: true, CreatedAt: time.Now()}
	p.users[email] = user
	return user, nil
}

func (p *stubProvider) UpdateName(_ context.Context, id int64, name string) (otpAuth.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for email, user := range p.users {
		if user.ID == id {
			user.Name = name
			p.users[email] = user
			return user, nil
		}
	}
	return otpAuth.UserRecord{}, errors.New("user not found")
}

func (p *stubProvider) Deactivate(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for email, user := range p.users {
		if user.ID == id {
			user.Active = false
			p.users[email] = user
			return nil
		}
	}
	return errors.New("user not found")
}

type apiFixture struct {
	router *gin.Engine
	mailer *captureMailer
}

func newAPIFixture(t *testing.T, mutate func(*otpAuth.Config)) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := otpAuth.DefaultConfig()
	cfg.JWT.Secret = []byte("handler-test-secret-handler-test-secret!")
	cfg.Blacklist.SweepInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}

	mailer := &captureMailer{codes: make(chan string, 16)}
	engine, err := otpAuth.New().
		WithConfig(cfg).
		WithUserProvider(newStubProvider("alice@example.com")).
		WithMailer(mailer).
		WithLogger(zerolog.Nop()).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	router := gin.New()
	RegisterRoutes(router, engine)

	return &apiFixture{router: router, mailer: mailer}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) login(t *testing.T, email string) tokenResponse {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/v1/auth/request-otp", gin.H{"email": email}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := f.mailer.waitForCode(t)

	rec = f.do(t, http.MethodPost, "/api/v1/auth/verify-otp", gin.H{"email": email, "otp": code}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tokens tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	return tokens
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestOTPUnknownEmailLegacyBody(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/request-otp", gin.H{"email": "nobody@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"INVALID MAIL"}`, rec.Body.String())
}

func TestRequestOTPMissingBody(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/request-otp", gin.H{}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body validationProblem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
	assert.Equal(t, []string{"is required"}, body.Errors["email"])
	assert.False(t, body.Timestamp.IsZero())
}

func TestRequestOTPRateLimitHeaders(t *testing.T) {
	f := newAPIFixture(t, func(cfg *otpAuth.Config) {
		cfg.RateLimit.RequestEmailCapacity = 1
		cfg.RateLimit.RequestEmailRefillMin = 0.001
	})

	rec := f.do(t, http.MethodPost, "/api/v1/auth/request-otp", gin.H{"email": "alice@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f.mailer.waitForCode(t)

	rec = f.do(t, http.MethodPost, "/api/v1/auth/request-otp", gin.H{"email": "alice@example.com"}, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	var body problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
	assert.Equal(t, "Too Many Requests", body.Title)
	assert.Equal(t, "/api/v1/auth/request-otp", body.Instance)
	assert.Equal(t, retryAfter, body.RetryAfter)
	assert.False(t, body.Timestamp.IsZero())
}

func TestVerifyOTPWrongCode(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/request-otp", gin.H{"email": "alice@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	code := f.mailer.waitForCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	rec = f.do(t, http.MethodPost, "/api/v1/auth/verify-otp", gin.H{"email": "alice@example.com", "otp": wrong}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t, nil)

	tokens := f.login(t, "alice@example.com")
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, int64(900), tokens.ExpiresIn)

	rec := f.do(t, http.MethodGet, "/api/v1/users/me", nil, bearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice@example.com", me.Email)

	rec = f.do(t, http.MethodPost, "/api/v1/auth/refresh", gin.H{"refreshToken": tokens.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/auth/logout",
		gin.H{"refreshToken": tokens.RefreshToken, "reason": "test logout"},
		bearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/auth/refresh", gin.H{"refreshToken": tokens.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/users/me", nil, bearer(tokens.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardRejectsMissingToken(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/users/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/users/me", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutWithoutTokensSucceeds(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/logout", gin.H{}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["sessionsTerminated"])
}

func TestLogoutAllIsIdempotent(t *testing.T) {
	f := newAPIFixture(t, nil)

	// No bearer at all.
	rec := f.do(t, http.MethodPost, "/api/v1/auth/logout-all", gin.H{}, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// An unreadable bearer token gets the same generic success.
	rec = f.do(t, http.MethodPost, "/api/v1/auth/logout-all", gin.H{},
		map[string]string{"Authorization": "Bearer garbage-token"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSignupAndDuplicate(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/users", gin.H{"email": "bob@example.com", "name": "Bob"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "bob@example.com", user.Email)
	assert.True(t, user.Active)

	rec = f.do(t, http.MethodPost, "/api/v1/users", gin.H{"email": "bob@example.com", "name": "Bob"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateNameAndDeactivate(t *testing.T) {
	f := newAPIFixture(t, nil)

	tokens := f.login(t, "alice@example.com")

	rec := f.do(t, http.MethodPatch, "/api/v1/users/me", gin.H{"name": "Alice Renamed"}, bearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "Alice Renamed", user.Name)

	rec = f.do(t, http.MethodDelete, "/api/v1/users/me", nil, bearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Deactivation revoked the session and flagged the account.
	rec = f.do(t, http.MethodGet, "/api/v1/users/me", nil, bearer(tokens.AccessToken))
	assert.Contains(t, []int{http.StatusUnauthorized, http.StatusForbidden}, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	tokens := f.login(t, "alice@example.com")

	rec := f.do(t, http.MethodGet, "/api/v1/users/me/stats", nil, bearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, stats, "totalLogins")
	assert.Contains(t, stats, "totalFailures")
}

func TestInvalidateRefreshTokensRequiresBearer(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/invalidate-refresh-tokens", gin.H{}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tokens := f.login(t, "alice@example.com")
	rec = f.do(t, http.MethodPost, "/api/v1/auth/invalidate-refresh-tokens",
		gin.H{"reason": "rotation"}, bearer(tokens.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestForceLogoutEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	f.login(t, "alice@example.com")

	rec := f.do(t, http.MethodPost, "/api/v1/auth/force-logout",
		gin.H{"email": "alice@example.com", "reason": "admin action"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/auth/force-logout",
		gin.H{"email": "nobody@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyOTPExhaustionReturnsUnauthorized(t *testing.T) {
	f := newAPIFixture(t, func(cfg *otpAuth.Config) {
		cfg.OTP.MaxAttempts = 1
	})

	rec := f.do(t, http.MethodPost, "/api/v1/auth/request-otp", gin.H{"email": "alice@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	code := f.mailer.waitForCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	rec = f.do(t, http.MethodPost, "/api/v1/auth/verify-otp", gin.H{"email": "alice@example.com", "otp": wrong}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// The attempt that burns the budget is indistinguishable from any other
	// failed verify.
	rec = f.do(t, http.MethodPost, "/api/v1/auth/verify-otp", gin.H{"email": "alice@example.com", "otp": wrong}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid or expired otp"}`, rec.Body.String())
}
