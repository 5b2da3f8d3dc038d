package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphstore/pkg/config"
	"github.com/orneryd/graphstore/pkg/graphstore"
	"github.com/orneryd/graphstore/pkg/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := graphstore.NewStore(storage.NewMemoryEngine())
	cfg := &config.Config{Server: config.ServerConfig{Address: "127.0.0.1:0"}}
	srv := New(store, cfg)
	ts := httptest.NewServer(srv.recoveryMiddleware(srv.loggingMiddleware(srv.buildRouter())))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, body map[string]any) (*http.Response, replyEnvelope) {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/execute", "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	defer resp.Body.Close()
	var env replyEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestExecuteCreateGraphAndNode(t *testing.T) {
	ts := newTestServer(t)

	resp, env := postJSON(t, ts, map[string]any{"type": "CreateGraph", "properties": map[string]any{"name": "g"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, env.ID)
	graphID := env.ID

	resp, env = postJSON(t, ts, map[string]any{
		"type":       "CreateNode",
		"graph_id":   graphID,
		"properties": map[string]any{"label": "alice"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, env.ID)
	nodeID := env.ID

	resp, env = postJSON(t, ts, map[string]any{"type": "ReadNode", "node_id": nodeID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.Node)
	assert.Equal(t, "alice", env.Node.Properties["label"])
}

func TestExecuteUnknownCommandTypeIsBadRequest(t *testing.T) {
	ts := newTestServer(t)
	resp, env := postJSON(t, ts, map[string]any{"type": "NotARealCommand"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.ID)
}

func TestExecuteUndoOnEmptyStackIsUnprocessable(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := postJSON(t, ts, map[string]any{"type": "Undo"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatsCountsRequestsAndErrors(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts, map[string]any{"type": "CreateGraph"})
	postJSON(t, ts, map[string]any{"type": "NotARealCommand"})

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.GreaterOrEqual(t, stats["request_count"], float64(2))
	assert.GreaterOrEqual(t, stats["error_count"], float64(1))
}

func TestEdgeEnvelopeRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	_, env := postJSON(t, ts, map[string]any{"type": "CreateGraph"})
	graphID := env.ID

	_, env = postJSON(t, ts, map[string]any{"type": "CreateNode", "graph_id": graphID})
	a := env.ID
	_, env = postJSON(t, ts, map[string]any{"type": "CreateNode", "graph_id": graphID})
	b := env.ID

	resp, env := postJSON(t, ts, map[string]any{
		"type":       "CreateEdge",
		"graph_id":   graphID,
		"from":       a,
		"to":         b,
		"properties": map[string]any{"since": 2020},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	edgeID := env.ID

	resp, env = postJSON(t, ts, map[string]any{
		"type": "ReadEdgeProperties",
		"edge": map[string]any{"id": edgeID, "from": a, "to": b},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.Properties)
	assert.EqualValues(t, 2020, env.Properties["since"])
	assert.NotEmpty(t, edgeID)
}
