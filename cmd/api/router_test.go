package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postbox/postbox/internal/auth"
	"github.com/postbox/postbox/internal/cache"
	"github.com/postbox/postbox/internal/config"
	"github.com/postbox/postbox/internal/handler"
	"github.com/postbox/postbox/internal/metrics"
	"github.com/postbox/postbox/internal/repository/memory"
	"github.com/postbox/postbox/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                "development",
		StoreBackend:          config.StoreBackendMemory,
		SessionSecret:         "router-test-secret-with-enough-bytes",
		SessionTTL:            time.Hour,
		SessionCookieName:     "session",
		RateLimitLoginEnabled: true,
		RateLimitLoginRPM:     1,
		RateLimitLoginBurst:   3,
		RateLimitAPIEnabled:   true,
		RateLimitAPIRPM:       600,
		RateLimitAPIBurst:     100,
		MaxRequestBodySize:    64 << 10,
		MetricsEnabled:        true,
	}
}

type testApp struct {
	router  http.Handler
	metrics *metrics.PrometheusRecorder
	redis   *miniredis.Miniredis
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewFromClient(client)

	tokens, err := auth.NewTokenIssuer(cfg.SessionSecret)
	require.NoError(t, err)

	store := memory.New()
	prom := metrics.NewPrometheus()

	deps := routerDeps{
		Config:   cfg,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Identity: service.NewIdentityService(store, c, tokens, cfg.SessionTTL, prom),
		Messages: service.NewMessageService(store, prom),
		Limiter:  c,
		Recorder: prom,
		Metrics:  prom,
		Health: []handler.Dependency{
			{Name: "memory", Checker: store},
			{Name: "redis", Checker: c},
		},
	}

	return &testApp{router: setupRouter(deps), metrics: prom, redis: mr}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) register(t *testing.T, email, name string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "name": name, "password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	return user.ID
}

func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

type messageBody struct {
	ID       string `json:"id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	DidRead  bool   `json:"did_read"`
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []messageBody {
	t.Helper()
	var resp struct {
		Data []messageBody `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func TestRouter_InboxScenario(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitLoginBurst = 10
	app := newTestApp(t, cfg)

	aliceID := app.register(t, "alice@example.com", "Alice")
	bobID := app.register(t, "bob@example.com", "Bob")
	alice := app.login(t, "alice@example.com")
	bob := app.login(t, "bob@example.com")

	for _, subject := range []string{"first", "second"} {
		rec := app.do(t, http.MethodPost, "/api/v1/messages", alice, map[string]string{
			"receiver": bobID, "subject": subject, "message": "hi " + subject,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := app.do(t, http.MethodGet, "/api/v1/messages/unread", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unread := decodeList(t, rec)
	require.Len(t, unread, 2)
	assert.Equal(t, "first", unread[0].Subject)
	assert.Equal(t, aliceID, unread[0].Sender)
	assert.False(t, unread[0].DidRead)

	rec = app.do(t, http.MethodGet, "/api/v1/messages/unread", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeList(t, rec))
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/v1/messages", bob, nil)
	all := decodeList(t, rec)
	require.Len(t, all, 2)
	assert.True(t, all[0].DidRead)

	// The sender may delete as well as the receiver.
	rec = app.do(t, http.MethodDelete, "/api/v1/messages/"+all[0].ID, alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	carol := func() string {
		app.register(t, "carol@example.com", "Carol")
		return app.login(t, "carol@example.com")
	}()
	rec = app.do(t, http.MethodDelete, "/api/v1/messages/"+all[1].ID, carol, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodDelete, "/api/v1/messages/"+all[0].ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/messages/latest", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var latest struct {
		Data *messageBody `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.NotNil(t, latest.Data)
	assert.Equal(t, "second", latest.Data.Subject)

	rec = app.do(t, http.MethodPost, "/api/v1/auth/logout", bob, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/me", bob, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"not authenticated","code":"NOT_AUTHENTICATED"}`, rec.Body.String())
}

func TestRouter_LoginRateLimited(t *testing.T) {
	app := newTestApp(t, testConfig())
	app.register(t, "alice@example.com", "Alice")

	wrong := map[string]string{"email": "alice@example.com", "password": "nope"}
	for i := 0; i < 3; i++ {
		rec := app.do(t, http.MethodPost, "/api/v1/auth/login", "", wrong)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := app.do(t, http.MethodPost, "/api/v1/auth/login", "", wrong)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestRouter_RequiresJSONBody(t *testing.T) {
	app := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("email=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_ProbesAndMetrics(t *testing.T) {
	app := newTestApp(t, testConfig())

	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"memory":"ok","redis":"ok"}}`, rec.Body.String())

	app.register(t, "alice@example.com", "Alice")
	rec = app.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "postbox_users_registered_total 1")

	app.redis.Close()
	rec = app.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	deps := routerDeps{
		Config:   testConfig(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder: metrics.NewNoop(),
	}
	r := setupRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	app := newTestApp(t, testConfig())

	rec := app.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPut, "/healthz", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
