package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/pkg/adapters/file"
)

type rpcResponse struct {
	Result map[string]any `json:"result"`
	Error  map[string]any `json:"error"`
}

func newServer(t *testing.T) *Server {
	t.Helper()
	eng, err := waypoint.New(context.Background(), "",
		waypoint.WithLoader(file.NewFSLoader(waypoint.BundledFlows())))
	require.NoError(t, err)
	return NewServer(eng)
}

func rpc(t *testing.T, s *Server, method string, params any) rpcResponse {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)

	resp := s.MCPServer().HandleMessage(context.Background(), raw)
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var out rpcResponse
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	require.Nil(t, out.Error, string(data))
	return out
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) map[string]any {
	t.Helper()
	return rpc(t, s, "tools/call", map[string]any{"name": name, "arguments": args}).Result
}

func structured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	require.NotEqual(t, true, result["isError"], "tool failed: %v", result["content"])
	out, ok := result["structuredContent"].(map[string]any)
	require.True(t, ok, "missing structured content: %v", result)
	return out
}

func TestListTools(t *testing.T) {
	s := newServer(t)
	res := rpc(t, s, "tools/list", map[string]any{}).Result

	var names []string
	for _, tool := range res["tools"].([]any) {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{"list_flows", "start_session", "submit_answer", "get_session", "get_graph"}, names)
}

func TestSessionThroughTools(t *testing.T) {
	s := newServer(t)

	flows := structured(t, callTool(t, s, "list_flows", nil))
	require.Len(t, flows["flows"], 1)
	assert.Equal(t, "career_onboarding_v1", flows["flows"].([]any)[0].(map[string]any)["id"])

	start := structured(t, callTool(t, s, "start_session", map[string]any{"flow_id": "career_onboarding_v1"}))
	sessionID := start["session_id"].(string)
	require.NotEmpty(t, sessionID)

	steps := []struct {
		node   string
		answer any
	}{
		{"q_stage", "college"},
		{"q_interest", "create"},
		{"q_goal", "study"},
		{"q_budget", 3},
		{"q_city", "Pune"},
	}
	var last map[string]any
	for _, step := range steps {
		last = structured(t, callTool(t, s, "submit_answer", map[string]any{
			"session_id": sessionID, "node_id": step.node, "answer": step.answer,
		}))
	}
	assert.Equal(t, true, last["done"])
	summary := last["result"].(map[string]any)["summary"].(map[string]any)
	assert.Equal(t, []any{"creative"}, summary["top_traits"])
	assert.Equal(t, float64(3), summary["variables"].(map[string]any)["budget"])

	view := structured(t, callTool(t, s, "get_session", map[string]any{"session_id": sessionID}))
	assert.Equal(t, true, view["done"])
}

func TestToolErrors(t *testing.T) {
	s := newServer(t)

	res := callTool(t, s, "start_session", map[string]any{"flow_id": "missing"})
	assert.Equal(t, true, res["isError"])

	start := structured(t, callTool(t, s, "start_session", map[string]any{"flow_id": "career_onboarding_v1"}))
	res = callTool(t, s, "submit_answer", map[string]any{
		"session_id": start["session_id"], "node_id": "q_city", "answer": "x",
	})
	assert.Equal(t, true, res["isError"])

	res = callTool(t, s, "get_session", map[string]any{"session_id": "nope"})
	assert.Equal(t, true, res["isError"])
}

func TestGetGraph(t *testing.T) {
	s := newServer(t)
	start := structured(t, callTool(t, s, "start_session", map[string]any{"flow_id": "career_onboarding_v1"}))

	res := callTool(t, s, "get_graph", map[string]any{"flow_id": "career_onboarding_v1", "session_id": start["session_id"]})
	content := res["content"].([]any)[0].(map[string]any)
	assert.Contains(t, content["text"], "graph TD")
	assert.Contains(t, content["text"], "class q_stage current;")

	res = callTool(t, s, "get_graph", map[string]any{"flow_id": "missing"})
	assert.Equal(t, true, res["isError"])
}

func TestFlowsResource(t *testing.T) {
	s := newServer(t)
	res := rpc(t, s, "resources/read", map[string]any{"uri": FlowsURI}).Result

	contents := res["contents"].([]any)
	require.Len(t, contents, 1)
	item := contents[0].(map[string]any)
	assert.Equal(t, "application/json", item["mimeType"])
	assert.Contains(t, item["text"], `"start_node_id":"q_stage"`)
}
