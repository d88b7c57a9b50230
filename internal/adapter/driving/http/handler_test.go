package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/credreview/internal/adapter/driving/http"
	"github.com/ericfisherdev/credreview/internal/application"
	"github.com/ericfisherdev/credreview/internal/domain/model"
	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockRangeLookup struct {
	mu     sync.Mutex
	ranges map[string]map[string]int
	fail   map[string]bool
}

func (m *mockRangeLookup) FetchRange(_ context.Context, prefix string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[prefix] {
		return nil, errors.New("upstream unavailable")
	}
	return m.ranges[prefix], nil
}

type mockProber struct {
	result model.ProbeResult
	got    string
}

func (m *mockProber) Probe(_ context.Context, rawURL string) model.ProbeResult {
	m.got = rawURL
	return m.result
}

type mockHistoryStore struct {
	mu      sync.Mutex
	entries []model.ProbeHistoryEntry
	err     error
	site    string
	limit   int
}

func (m *mockHistoryStore) Record(_ context.Context, site string, result model.ProbeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, model.ProbeHistoryEntry{Site: site, Result: result, CheckedAt: testTime})
	return nil
}

func (m *mockHistoryStore) ListRecent(_ context.Context, site string, limit int) ([]model.ProbeHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.site, m.limit = site, limit
	return m.entries, m.err
}

type mockIdentity struct {
	authErr     error
	profile     map[string]any
	exchangeErr error
	gotCode     string
}

func (m *mockIdentity) AuthURL(state string) (string, error) {
	if m.authErr != nil {
		return "", m.authErr
	}
	return "https://accounts.example/auth?state=" + state, nil
}

func (m *mockIdentity) ExchangeProfile(_ context.Context, code string) (map[string]any, error) {
	m.gotCode = code
	return m.profile, m.exchangeErr
}

type mockHealth struct{ err error }

func (m *mockHealth) Check(context.Context) error { return m.err }

// --- Test helpers ---

var testTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

// hunter2 hashes to F3BBBD66A63D4BF1747940578EC3D0103530E21D.
const (
	hunter2Prefix = "F3BBB"
	hunter2Suffix = "D66A63D4BF1747940578EC3D0103530E21D"
)

type deps struct {
	lookup   *mockRangeLookup
	prober   *mockProber
	history  *mockHistoryStore
	identity *mockIdentity
	health   *mockHealth
}

func newDeps() *deps {
	return &deps{
		lookup: &mockRangeLookup{
			ranges: map[string]map[string]int{hunter2Prefix: {hunter2Suffix: 17}},
			fail:   map[string]bool{},
		},
		prober:   &mockProber{result: model.UnknownProbeResult()},
		history:  &mockHistoryStore{},
		identity: &mockIdentity{},
		health:   &mockHealth{},
	}
}

func setupMux(d *deps, maxBatch int) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	checker := application.NewBreachChecker(d.lookup, 6, maxBatch, logger)
	probes := application.NewProbeService(d.prober, nil, d.history, 0, logger)

	var identity driven.IdentityProvider
	if d.identity != nil {
		identity = d.identity
	}

	health := application.NewHealthService(logger, application.HealthCheck{Name: "database", Check: d.health.Check})

	h := httphandler.NewHandler(checker, probes, d.history, identity, health, logger)
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, h)
	return httphandler.ApplyMiddleware(mux, logger)
}

func do(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

// --- Tests ---

func TestCheckPwned(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		failHunter bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "batch",
			body:       `{"passwords":["hunter2","correct horse battery staple"]}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"counts":[17,0]}`,
		},
		{
			name:       "single password",
			body:       `{"password":"hunter2"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"counts":[17]}`,
		},
		{
			name:       "failed prefix is null",
			body:       `{"passwords":["hunter2","x"]}`,
			failHunter: true,
			wantStatus: http.StatusOK,
			wantBody:   `{"counts":[null,0]}`,
		},
		{
			name:       "missing field",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"passwords required"}`,
		},
		{
			name:       "not json",
			body:       `passwords=1`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"passwords required"}`,
		},
		{
			name:       "empty batch",
			body:       `{"passwords":[]}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"no passwords"}`,
		},
		{
			name:       "oversized batch",
			body:       `{"passwords":["a","b","c","d"]}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"too_many_passwords"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeps()
			d.lookup.fail[hunter2Prefix] = tt.failHunter
			mux := setupMux(d, 3)

			rec := do(t, mux, http.MethodPost, "/api/check-pwned", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestCheckPwned_MethodNotAllowed(t *testing.T) {
	rec := do(t, setupMux(newDeps(), 500), http.MethodGet, "/api/check-pwned", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCheckPwned_AtBatchLimit(t *testing.T) {
	passwords := make([]string, 500)
	for i := range passwords {
		passwords[i] = fmt.Sprintf("pw-%d", i)
	}
	body, err := json.Marshal(map[string]any{"passwords": passwords})
	require.NoError(t, err)

	rec := do(t, setupMux(newDeps(), 500), http.MethodPost, "/api/check-pwned", string(body))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp httphandler.CheckResponse
	decodeJSON(t, rec, &resp)
	assert.Len(t, resp.Counts, 500)
}

func TestProbe(t *testing.T) {
	d := newDeps()
	d.prober.result = model.ProbeResult{Status: model.SiteStatusAlive, HTTPStatus: intPtr(200), TimeMs: intPtr(31)}
	mux := setupMux(d, 500)

	rec := do(t, mux, http.MethodPost, "/api/probe", `{"url":"example.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive","httpStatus":200,"timeMs":31}`, rec.Body.String())
	assert.Equal(t, "example.com", d.prober.got)
	require.Len(t, d.history.entries, 1)
	assert.Equal(t, "example.com", d.history.entries[0].Site)
}

func TestProbe_UnknownIsStill200(t *testing.T) {
	rec := do(t, setupMux(newDeps(), 500), http.MethodPost, "/api/probe", `{"url":"https://down.example"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"unknown","httpStatus":null,"timeMs":null}`, rec.Body.String())
}

func TestProbe_BadRequests(t *testing.T) {
	mux := setupMux(newDeps(), 500)

	for _, body := range []string{`{}`, `{"url":"  "}`, `{"url":42}`, `nope`} {
		rec := do(t, mux, http.MethodPost, "/api/probe", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"Missing url"}`, rec.Body.String(), body)
	}

	rec := do(t, mux, http.MethodGet, "/api/probe", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProbeHistory(t *testing.T) {
	d := newDeps()
	d.history.entries = []model.ProbeHistoryEntry{{
		Site:      "https://a.example",
		Result:    model.ProbeResult{Status: model.SiteStatusDead, HTTPStatus: intPtr(404), TimeMs: intPtr(9)},
		CheckedAt: testTime,
	}}
	mux := setupMux(d, 500)

	rec := do(t, mux, http.MethodGet, "/api/probe/history?site=https://a.example&limit=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"site":"https://a.example","status":"dead","httpStatus":404,"timeMs":9,"checked_at":"2026-02-10T12:00:00Z"}]`, rec.Body.String())
	assert.Equal(t, "https://a.example", d.history.site)
	assert.Equal(t, 5, d.history.limit)
}

func TestProbeHistory_Errors(t *testing.T) {
	d := newDeps()
	mux := setupMux(d, 500)

	rec := do(t, mux, http.MethodGet, "/api/probe/history?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	d.history.err = errors.New("disk I/O error")
	rec = do(t, mux, http.MethodGet, "/api/probe/history", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk")
}

func TestHealth(t *testing.T) {
	d := newDeps()
	mux := setupMux(d, 500)

	rec := do(t, mux, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp httphandler.HealthResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	require.Len(t, resp.Components, 1)
	assert.Equal(t, "database", resp.Components[0].Name)

	d.health.err = errors.New("database is locked")
	rec = do(t, mux, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "database is locked", resp.Components[0].Error)
}

func TestAuthURL(t *testing.T) {
	rec := do(t, setupMux(newDeps(), 500), http.MethodGet, "/api/auth/url", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp httphandler.AuthURLResponse
	decodeJSON(t, rec, &resp)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "https://accounts.example/auth?state="+cookies[0].Value, resp.URL)
}

func TestAuthURL_NotConfigured(t *testing.T) {
	d := newDeps()
	d.identity.authErr = fmt.Errorf("%w: client id missing", driven.ErrIdentityNotConfigured)

	rec := do(t, setupMux(d, 500), http.MethodGet, "/api/auth/url", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"google client id not configured"}`, rec.Body.String())
}

func TestAuthCallback(t *testing.T) {
	d := newDeps()
	d.identity.profile = map[string]any{"email": "ada@example.com", "name": "</script><script>alert(1)</script>"}
	mux := setupMux(d, 500)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: "credreview_oauth_state", Value: "s1"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", d.identity.gotCode)
	body := rec.Body.String()
	assert.Contains(t, body, "ada@example.com")
	assert.Contains(t, body, "postMessage")
	assert.NotContains(t, body, "</script><script>alert(1)")
}

func TestAuthCallback_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		cookie     string
		exchange   error
		wantStatus int
	}{
		{name: "missing code", target: "/api/auth/callback?state=s1", cookie: "s1", wantStatus: http.StatusBadRequest},
		{name: "state mismatch", target: "/api/auth/callback?code=c&state=other", cookie: "s1", wantStatus: http.StatusBadRequest},
		{name: "no state cookie", target: "/api/auth/callback?code=c&state=s1", wantStatus: http.StatusBadRequest},
		{name: "exchange failure", target: "/api/auth/callback?code=c&state=s1", cookie: "s1", exchange: errors.New("invalid_grant"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeps()
			d.identity.exchangeErr = tt.exchange
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "credreview_oauth_state", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			setupMux(d, 500).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func intPtr(v int) *int { return &v }
