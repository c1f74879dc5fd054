package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/adapters/file"
	"github.com/aretw0/waypoint/pkg/domain"
)

func newEngine(t *testing.T) *waypoint.Engine {
	t.Helper()
	eng, err := waypoint.New(context.Background(), "",
		waypoint.WithLoader(file.NewFSLoader(waypoint.BundledFlows())))
	require.NoError(t, err)
	return eng
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestOnboarding_FullSession(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, "POST", "/onboarding/start", map[string]any{"flow_id": "career_onboarding_v1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	start := decodeBody(t, w)
	sessionID := start["session_id"].(string)
	assert.Equal(t, "q_stage", start["node"].(map[string]any)["id"])

	answers := []struct {
		node   string
		answer any
	}{
		{"q_stage", "working"},
		{"q_interest", "people"},
		{"q_goal", "job"},
	}
	for _, a := range answers {
		w = do(t, h, "POST", "/onboarding/answer", map[string]any{"session_id": sessionID, "node_id": a.node, "answer": a.answer})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	step := decodeBody(t, w)
	assert.Equal(t, false, step["done"])
	assert.Equal(t, "q_city", step["node"].(map[string]any)["id"])
	assert.Nil(t, step["result"])

	w = do(t, h, "POST", "/onboarding/answer", map[string]any{"session_id": sessionID, "node_id": "q_city", "answer": "Delhi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	final := decodeBody(t, w)
	assert.Equal(t, true, final["done"])
	assert.Nil(t, final["node"])

	result := final["result"].(map[string]any)
	assert.Equal(t, "career_summary_v1", result["renderer"])
	summary := result["summary"].(map[string]any)
	assert.Equal(t, []any{"social"}, summary["top_traits"])
	assert.Equal(t, "Delhi", summary["variables"].(map[string]any)["city"])
	assert.Equal(t, []any{}, result["recommendations"].(map[string]any)["careers"])

	w = do(t, h, "GET", "/onboarding/session/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["done"])

	w = do(t, h, "DELETE", "/onboarding/session/"+sessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "GET", "/onboarding/session/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOnboarding_NumberAnswerKeepsKind(t *testing.T) {
	eng := newEngine(t)
	h := NewHandler(eng)

	start := decodeBody(t, do(t, h, "POST", "/onboarding/start", map[string]any{"flow_id": "career_onboarding_v1"}))
	sessionID := start["session_id"].(string)

	for _, step := range []string{
		`{"session_id":"` + sessionID + `","node_id":"q_stage","answer":"college"}`,
		`{"session_id":"` + sessionID + `","node_id":"q_interest","answer":"build"}`,
		`{"session_id":"` + sessionID + `","node_id":"q_goal","answer":"study"}`,
		`{"session_id":"` + sessionID + `","node_id":"q_budget","answer":2.5}`,
	} {
		w := do(t, h, "POST", "/onboarding/answer", step)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	sc, err := eng.Session(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.Number(2.5), sc.Variables["budget"])
}

func TestOnboarding_Errors(t *testing.T) {
	h := NewHandler(newEngine(t))
	start := decodeBody(t, do(t, h, "POST", "/onboarding/start", map[string]any{"flow_id": "career_onboarding_v1"}))
	sessionID := start["session_id"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		detail string
	}{
		{"unknown flow", "POST", "/onboarding/start", map[string]any{"flow_id": "nope"}, 404, "Flow not found"},
		{"missing flow id", "POST", "/onboarding/start", map[string]any{}, 400, ""},
		{"malformed json", "POST", "/onboarding/start", "{", 400, ""},
		{"unknown session", "POST", "/onboarding/answer", map[string]any{"session_id": "nope", "node_id": "q_stage", "answer": "school"}, 404, "Session not found"},
		{"node mismatch", "POST", "/onboarding/answer", map[string]any{"session_id": sessionID, "node_id": "q_city", "answer": "x"}, 400, "Node mismatch"},
		{"object answer", "POST", "/onboarding/answer", `{"session_id":"` + sessionID + `","node_id":"q_stage","answer":{"a":1}}`, 400, ""},
		{"unknown session view", "GET", "/onboarding/session/nope", nil, 404, "Session not found"},
		{"unknown flow graph", "GET", "/flows/nope/graph", nil, 404, "Flow not found"},
		{"unknown route", "GET", "/nope", nil, 404, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			body := decodeBody(t, w)
			require.Contains(t, body, "detail")
			if tt.detail != "" {
				assert.Equal(t, tt.detail, body["detail"])
			}
		})
	}

	// The rejected answers must not have moved the session.
	w := do(t, h, "GET", "/onboarding/session/"+sessionID, nil)
	assert.Equal(t, "q_stage", decodeBody(t, w)["node"].(map[string]any)["id"])
}

func TestFlowsEndpoints(t *testing.T) {
	eng := newEngine(t)
	h := NewHandler(eng)

	w := do(t, h, "GET", "/flows", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var flows []flowSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flows))
	require.Len(t, flows, 1)
	assert.Equal(t, "career_onboarding_v1", flows[0].ID)
	assert.Equal(t, 7, flows[0].Nodes)

	w = do(t, h, "GET", "/flows/career_onboarding_v1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "q_stage", decodeBody(t, w)["start_node_id"])

	start, err := eng.Start(context.Background(), "career_onboarding_v1")
	require.NoError(t, err)

	w = do(t, h, "GET", "/flows/career_onboarding_v1/graph?session_id="+start.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD"))
	assert.Contains(t, w.Body.String(), "class q_stage current;")
}

func TestMetaEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "waypoint_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := NewHandler(newEngine(t), WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	w := do(t, h, "GET", "/", nil)
	assert.Equal(t, map[string]any{"status": "ok", "message": "Onboarding API running"}, decodeBody(t, w))

	w = do(t, h, "GET", "/info", nil)
	info := decodeBody(t, w)
	assert.Equal(t, waypoint.Version, info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	w = do(t, h, "GET", "/openapi.yaml", nil)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = do(t, h, "GET", "/swagger", nil)
	assert.Contains(t, w.Body.String(), "swagger-ui")

	w = do(t, h, "GET", "/metrics", nil)
	assert.Contains(t, w.Body.String(), "waypoint_test_total 1")
}

func TestHealth(t *testing.T) {
	ok := NewHandler(newEngine(t), WithHealthCheck("store", func(context.Context) error { return nil }))
	w := do(t, ok, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := NewHandler(newEngine(t), WithHealthCheck("store", func(context.Context) error { return errors.New("connection refused") }))
	w = do(t, down, "GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "store: connection refused")
}

func TestCORS(t *testing.T) {
	h := NewHandler(newEngine(t), WithCORSOrigins("http://localhost:3000"))

	req := httptest.NewRequest("OPTIONS", "/onboarding/start", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type", w.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSpecDocumentsRoutes(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)

	for _, path := range []string{
		"/", "/health", "/info", "/onboarding/start", "/onboarding/answer",
		"/onboarding/session/{sessionId}", "/flows", "/flows/{flowId}",
		"/flows/{flowId}/graph", "/events", "/metrics",
	} {
		assert.NotNil(t, doc.Paths.Find(path), "undocumented route %s", path)
	}
}

// syncRecorder guards the body so the test can read while the handler streams.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestSubscribeEvents_Session(t *testing.T) {
	eng := newEngine(t)
	h := NewHandler(eng)

	start, err := eng.Start(context.Background(), "career_onboarding_v1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}
	req := httptest.NewRequest("GET", "/events?session_id="+start.SessionID, nil).WithContext(ctx)

	finished := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(finished)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(rec.String(), "event: ping")
	}, 2*time.Second, 10*time.Millisecond)

	w := do(t, h, "POST", "/onboarding/answer", map[string]any{"session_id": start.SessionID, "node_id": "q_stage", "answer": "school"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		return strings.Contains(rec.String(), `"stage":"school"`)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.String(), `"current_node_id":"q_stream"`)

	cancel()
	<-finished
}

func TestSubscribeEvents_GlobalWithoutWatcher(t *testing.T) {
	h := NewHandler(newEngine(t))
	w := do(t, h, "GET", "/events", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())
	ch, done := sm.Subscribe("s")
	assert.Equal(t, 1, sm.Subscribers("s"))

	sm.Broadcast("s", "hello")
	sm.Broadcast("other", "ignored")
	assert.Equal(t, "hello", <-ch)

	for i := 0; i < 20; i++ {
		sm.Broadcast("s", "flood") // overflow is dropped, never blocks
	}

	done()
	done()
	assert.Equal(t, 0, sm.Subscribers("s"))
}

func TestSubmitAnswer_Sanitized(t *testing.T) {
	eng := newEngine(t)
	h := NewHandler(eng)
	start := decodeBody(t, do(t, h, "POST", "/onboarding/start", map[string]any{"flow_id": "career_onboarding_v1"}))
	sessionID := start["session_id"].(string)

	w := do(t, h, "POST", "/onboarding/answer", map[string]any{"session_id": sessionID, "node_id": "q_stage", "answer": strings.Repeat("a", 5000)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["detail"], "maximum allowed size")

	w = do(t, h, "POST", "/onboarding/answer", map[string]any{"session_id": sessionID, "node_id": "q_stage", "answer": "school\u0007"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sc, err := eng.Session(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.String("school"), sc.Answers["q_stage"])
	assert.Equal(t, "q_stream", sc.CurrentNodeID)
}
