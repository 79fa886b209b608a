package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/internal/service/agent"
	"github.com/sandevgo/tuskmem/internal/service/extraction"
	"github.com/sandevgo/tuskmem/internal/service/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "secret"

type fakeAgent struct {
	mu      sync.Mutex
	turns   []agent.Turn
	resets  []string
	success bool
}

func (f *fakeAgent) HandleTurn(_ context.Context, turn agent.Turn) (agent.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn)
	return agent.Reply{Success: f.success, RequestID: turn.RequestID, Result: extraction.Default()}, nil
}

func (f *fakeAgent) ResetSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, sessionID)
	return nil
}

type fixture struct {
	router *gin.Engine
	agent  *fakeAgent
	memory *memory.Manager
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.ParseMemoryConfig(t.TempDir(), map[string]string{"MEMORY_PERSISTENCE_ENABLED": "false"})
	require.NoError(t, err)
	mgr, err := memory.NewManager(context.Background(), cfg)
	require.NoError(t, err)

	ag := &fakeAgent{success: true}
	router := NewRouter(context.Background(), &config.ServerConfig{BearerToken: token}, ag, mgr)
	return &fixture{router: router, agent: ag, memory: mgr}
}

func (f *fixture) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestInfo(t *testing.T) {
	f := newFixture(t, testToken)

	w := f.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, core.TuskName, decode(t, w)["service"])
}

func TestTestExtraction(t *testing.T) {
	f := newFixture(t, "")
	raw := `AgentRunResult(data=AgentOutput(response='The capital of France is Paris.', confidence=0.9, sentiment='positive'))`
	body, err := json.Marshal(map[string]string{"text": raw})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/test-extraction", string(body), "")
	require.Equal(t, http.StatusOK, w.Code)

	out := decode(t, w)
	assert.Equal(t, "The capital of France is Paris.", out["response"])
	assert.Equal(t, 0.9, out["confidence"])
	assert.Equal(t, "positive", out["sentiment"])
	assert.Equal(t, raw, out["raw_output"])
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name        string
		serverToken string
		clientToken string
		want        int
	}{
		{name: "server token missing", serverToken: "", clientToken: "anything", want: http.StatusInternalServerError},
		{name: "client token missing", serverToken: testToken, clientToken: "", want: http.StatusUnauthorized},
		{name: "client token wrong", serverToken: testToken, clientToken: "nope", want: http.StatusUnauthorized},
		{name: "ok", serverToken: testToken, clientToken: testToken, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.serverToken)
			w := f.do(t, http.MethodGet, "/api/sessions/s1/formatted", "", tt.clientToken)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRunAgent(t *testing.T) {
	f := newFixture(t, testToken)

	w := f.do(t, http.MethodPost, "/api/agent",
		`{"query":"hi","user_id":"u1","request_id":"r1","session_id":"s1"}`, testToken)
	require.Equal(t, http.StatusOK, w.Code)

	out := decode(t, w)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "r1", out["request_id"])
	require.Len(t, f.agent.turns, 1)
	assert.Equal(t, agent.Turn{Query: "hi", UserID: "u1", RequestID: "r1", SessionID: "s1"}, f.agent.turns[0])

	w = f.do(t, http.MethodPost, "/api/agent", `{"user_id":"u1","session_id":"s1"}`, testToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHistory(t *testing.T) {
	f := newFixture(t, testToken)
	ctx := context.Background()
	for _, content := range []string{"one", "two", "three"} {
		_, err := f.memory.StoreMessage(ctx, "s1", "u1", content, core.RoleHuman, nil)
		require.NoError(t, err)
	}

	w := f.do(t, http.MethodGet, "/api/sessions/s1/history?limit=2", "", testToken)
	require.Equal(t, http.StatusOK, w.Code)

	items, ok := decode(t, w)["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, "two", items[0].(map[string]any)["content"])
	assert.Equal(t, "three", items[1].(map[string]any)["content"])

	w = f.do(t, http.MethodGet, "/api/sessions/s1/history?limit=x", "", testToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/sessions/s1/formatted", "", testToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User: one\n\nUser: two\n\nUser: three\n\n", decode(t, w)["history"])
}

func TestClearEndpoints(t *testing.T) {
	f := newFixture(t, testToken)
	ctx := context.Background()
	_, err := f.memory.StoreMessage(ctx, "s1", "u1", "hello", core.RoleHuman, nil)
	require.NoError(t, err)

	w := f.do(t, http.MethodDelete, "/api/sessions/s1", "", testToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"s1"}, f.agent.resets)

	w = f.do(t, http.MethodDelete, "/api/memory", "", testToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.memory.GetConversationHistory("", 0))
}

func TestUpdateConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "resize", body: `{"section":"short_term","key":"max_size","value":3}`, want: http.StatusOK},
		{name: "string value", body: `{"section":"general","key":"token_limit","value":"2000"}`, want: http.StatusOK},
		{name: "unknown section", body: `{"section":"nope","key":"max_size","value":3}`, want: http.StatusBadRequest},
		{name: "unknown key", body: `{"section":"short_term","key":"nope","value":3}`, want: http.StatusBadRequest},
		{name: "invalid value", body: `{"section":"short_term","key":"max_size","value":0}`, want: http.StatusBadRequest},
		{name: "fractional value", body: `{"section":"short_term","key":"max_size","value":3.7}`, want: http.StatusBadRequest},
		{name: "missing key", body: `{"section":"short_term"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testToken)
			w := f.do(t, http.MethodPatch, "/api/memory/config", tt.body, testToken)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestUpdateConfig_ResizeKeepsNewest(t *testing.T) {
	f := newFixture(t, testToken)
	ctx := context.Background()
	for _, content := range []string{"a", "b", "c", "d"} {
		_, err := f.memory.StoreMessage(ctx, "s1", "u1", content, core.RoleHuman, nil)
		require.NoError(t, err)
	}

	w := f.do(t, http.MethodPatch, "/api/memory/config", `{"section":"short_term","key":"max_size","value":2}`, testToken)
	require.Equal(t, http.StatusOK, w.Code)

	history := f.memory.GetConversationHistory("s1", 0)
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].Content())
	assert.Equal(t, "d", history[1].Content())
	assert.Equal(t, 2, f.memory.Config().ShortTerm.MaxSize)
}
