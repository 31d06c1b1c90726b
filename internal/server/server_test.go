package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/router/internal/admission"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	"github.com/Chative-core-poc-v1/router/internal/retrieval"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []model.ConversationRequest
	tenants []model.TenantConfig
	err     error
}

func (f *fakeRunner) Invoke(_ context.Context, req model.ConversationRequest, tenant model.TenantConfig) (*model.ConversationState, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.tenants = append(f.tenants, tenant)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := &model.ConversationState{Request: req, Tenant: tenant}
	s.Route = model.RouteGeneralQuery
	s.Answer = "hello"
	return s, nil
}

type constEmbedder struct{}

func (constEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

type fixture struct {
	engine  *gin.Engine
	runner  *fakeRunner
	tenants *admission.TenantStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tenants := admission.NewTenantStore(model.TenantDefaultsConfig{RatePerMinute: 60, RatePerHour: 1000})
	limiter := admission.NewMemoryLimiter()
	store := retrieval.NewMemoryStore("")
	runner := &fakeRunner{}

	engine, err := New(Deps{
		Tenants:   tenants,
		Admitter:  admission.NewAdmitter(limiter),
		Rates:     limiter,
		Runner:    runner,
		Retriever: retrieval.NewRetriever(store, constEmbedder{}, nil, retrieval.Config{TopK: 4}),
		Ingestor:  retrieval.NewIngestor(constEmbedder{}, store, 500, 50),
	})
	require.NoError(t, err)
	return &fixture{engine: engine, runner: runner, tenants: tenants}
}

func (f *fixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func chatBody(tenant, query string) map[string]string {
	return map[string]string{"tenant_id": tenant, "user_id": "u1", "session_id": "s1", "query": query}
}

func decodeChat(t *testing.T, w *httptest.ResponseRecorder) model.ChatResponse {
	t.Helper()
	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestNewRequiresCoreDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestChatTenantResolution(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		payload string
		want    string
	}{
		{name: "header wins", header: "t9", payload: "t2", want: "t9"},
		{name: "payload when no header", payload: "t2", want: "t2"},
		{name: "default", want: "t1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			headers := map[string]string{}
			if tt.header != "" {
				headers[headerTenantID] = tt.header
			}
			w := f.do(http.MethodPost, "/chat", chatBody(tt.payload, "hi"), headers)
			require.Equal(t, http.StatusOK, w.Code)
			require.Len(t, f.runner.calls, 1)
			assert.Equal(t, tt.want, f.runner.calls[0].TenantID)
			assert.Equal(t, tt.want, f.runner.tenants[0].TenantID)
			assert.Equal(t, defaultLocale, f.runner.calls[0].Locale)
		})
	}
}

func TestChatReturnsGraphResponse(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/chat", chatBody("t1", "hi"), map[string]string{headerRequestID: "req-7"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, model.RouteGeneralQuery, resp.Route)
	assert.Equal(t, "hello", resp.Answer)
	assert.False(t, resp.Refusal.IsRefused)
	assert.Equal(t, "req-7", w.Header().Get(headerRequestID))
}

func TestChatRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/chat", map[string]string{"query": "hi"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.runner.calls)
}

func TestChatRateLimited(t *testing.T) {
	f := newFixture(t)
	cfg := f.tenants.Get("t1")
	cfg.RateLimitPerMinute = 1
	_, err := f.tenants.Put(cfg)
	require.NoError(t, err)

	first := f.do(http.MethodPost, "/chat", chatBody("t1", "hi"), nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := f.do(http.MethodPost, "/chat", chatBody("t1", "hi again"), nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	resp := decodeChat(t, second)
	assert.True(t, resp.Refusal.IsRefused)
	assert.Equal(t, model.RouteClarify, resp.Route)
	assert.Contains(t, resp.Answer, "Rate limit exceeded")
	assert.Len(t, f.runner.calls, 1)
}

func TestChatGuardrailRefusal(t *testing.T) {
	f := newFixture(t)
	cfg := f.tenants.Get("t1")
	cfg.SensitivePromptPatterns = []string{"password"}
	_, err := f.tenants.Put(cfg)
	require.NoError(t, err)

	w := f.do(http.MethodPost, "/chat", chatBody("t1", "what is the admin PASSWORD"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.True(t, resp.Refusal.IsRefused)
	assert.NotEmpty(t, resp.Refusal.Reason)
	assert.Empty(t, f.runner.calls)
}

func TestChatRunnerErrorIsGeneric(t *testing.T) {
	f := newFixture(t)
	f.runner.err = errors.New("dial tcp 10.0.0.3:5432: connection refused")

	w := f.do(http.MethodPost, "/chat", chatBody("t1", "hi"), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestTenantConfigRoundTrip(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/admin/tenants/acme/config", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cfg model.TenantConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, "acme", cfg.TenantID)
	assert.Len(t, cfg.AllowedRoutes, len(model.AllRoutes))

	update := map[string]any{
		"tenant_id":             "someone-else",
		"blocked_tools":         []string{model.ToolPriceCompare},
		"rate_limit_per_minute": 5,
		"rate_limit_per_hour":   50,
		"allowed_routes":        []string{"diet-nutrition", "CLARIFY"},
	}
	w = f.do(http.MethodPut, "/admin/tenants/acme/config", update, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored := f.tenants.Get("acme")
	assert.Equal(t, "acme", stored.TenantID)
	assert.Equal(t, 5, stored.RateLimitPerMinute)
	assert.Equal(t, []model.Route{model.RouteDietNutrition, model.RouteClarify}, stored.AllowedRoutes)
	assert.True(t, stored.BlocksTool(model.ToolPriceCompare))
}

func TestTenantConfigRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body any
	}{
		{name: "negative limit", body: map[string]any{"rate_limit_per_minute": -1}},
		{name: "unknown route", body: map[string]any{"allowed_routes": []string{"WEATHER"}}},
		{name: "bad regex", body: map[string]any{"refusal_rules": []map[string]string{{"type": "regex", "pattern": "("}}}},
		{name: "not json", body: "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPut, "/admin/tenants/acme/config", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRateLimitSnapshot(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/admin/tenants/t1/ratelimit", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.do(http.MethodPost, "/chat", chatBody("t1", "hi"), nil)
	f.do(http.MethodPost, "/chat", chatBody("t1", "hi"), nil)

	w = f.do(http.MethodGet, "/admin/tenants/t1/ratelimit", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap model.TenantRateLimit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.RequestsPerMinute)
	assert.Equal(t, 2, snap.RequestsPerHour)
}

func TestVaultIngestAndDebug(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/debug/vault/u1?q=oats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	ingest := map[string]any{
		"tenant_id": "t1",
		"user_id":   "u1",
		"documents": []map[string]string{{"text": "Oats are high in fibre.", "source": "notes"}},
	}
	w = f.do(http.MethodPost, "/admin/vault/ingest", ingest, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"tenant_id":"t1","user_id":"u1","chunks":1}`, w.Body.String())

	w = f.do(http.MethodGet, "/debug/vault/u1?q=oats", nil, map[string]string{headerTenantID: "t1"})
	require.Equal(t, http.StatusOK, w.Code)
	var got vaultDebugResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, "notes:0", got.Chunks[0].ChunkID)
	assert.Equal(t, retrieval.MethodSimilarity, got.Method)

	w = f.do(http.MethodGet, "/debug/vault/u1?q=oats", nil, map[string]string{headerTenantID: "t2"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got.Chunks)
}

func TestVaultIngestValidation(t *testing.T) {
	f := newFixture(t)
	bodies := []any{
		map[string]any{"tenant_id": "t1", "user_id": "u1"},
		map[string]any{"tenant_id": "t1", "user_id": "u1", "documents": []map[string]string{{"source": "x"}}},
		map[string]any{"user_id": "u1", "documents": []map[string]string{{"text": "a"}}},
	}
	for _, b := range bodies {
		w := f.do(http.MethodPost, "/admin/vault/ingest", b, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w := f.do(http.MethodGet, "/debug/vault/u1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/chat", chatBody("t1", "hi"), nil)
	w := f.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestTenantConfigPartialUpdateKeepsDefaults(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPut, "/admin/tenants/acme/config", map[string]any{
		"sensitive_prompt_patterns": []string{"password"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "null")

	var stored model.TenantConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, 60, stored.RateLimitPerMinute)
	assert.Equal(t, 1000, stored.RateLimitPerHour)
	assert.Equal(t, model.AllRoutes, stored.AllowedRoutes)
	assert.Equal(t, []string{"password"}, stored.SensitivePromptPatterns)
	assert.Equal(t, []string{}, stored.BlockedTools)

	w = f.do(http.MethodPost, "/chat", chatBody("acme", "hi"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeChat(t, w).Refusal.IsRefused)

	w = f.do(http.MethodPost, "/chat", chatBody("acme", "reset my password"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeChat(t, w).Refusal.IsRefused)
	assert.Len(t, f.runner.calls, 1)
}

func TestTenantConfigExplicitZeroCeiling(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPut, "/admin/tenants/acme/config", map[string]any{"rate_limit_per_minute": 0}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored := f.tenants.Get("acme")
	assert.Equal(t, 0, stored.RateLimitPerMinute)
	assert.Equal(t, 1000, stored.RateLimitPerHour)

	w = f.do(http.MethodPost, "/chat", chatBody("acme", "hi"), nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Empty(t, f.runner.calls)
}
