package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/localflow/core/config"
	"github.com/localflow/core/internal/app"
	"github.com/localflow/core/llm"
)

func newTestCore(t *testing.T) *app.Core {
	t.Helper()
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Store.Dir = t.TempDir()

	core, err := app.New(cfg, llm.NewFakeProvider().WithResponse("42"), slog.Default())
	require.NoError(t, err)
	return core
}

func TestHealth(t *testing.T) {
	core := newTestCore(t)
	srv := httptest.NewServer(NewRouter(core))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "localflow", body["service"])
}

func TestListTools(t *testing.T) {
	core := newTestCore(t)
	srv := httptest.NewServer(NewRouter(core))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/tools")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out)
}

func TestRunByWorkflowID(t *testing.T) {
	core := newTestCore(t)

	nodes := []any{
		map[string]any{"id": "in", "display_type": "custom", "position": map[string]any{"x": 0, "y": 0}, "data": map[string]any{"label": "in", "type_id": "text-input", "config": map[string]any{"text": "hello"}}},
		map[string]any{"id": "out", "display_type": "custom", "position": map[string]any{"x": 0, "y": 0}, "data": map[string]any{"label": "out", "type_id": "debug", "config": map[string]any{}}},
	}
	edges := []any{
		map[string]any{"id": "e1", "source": "in", "target": "out"},
	}
	saved, err := core.Store.Save("Test Flow", nodes, edges, "", "")
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(core))
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"workflowId": saved.ID})
	resp, err := srv.Client().Post(srv.URL+"/run", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, true, out["success"])
}

func TestRunMissingSelectorIsBadRequest(t *testing.T) {
	core := newTestCore(t)
	srv := httptest.NewServer(NewRouter(core))
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{})
	resp, err := srv.Client().Post(srv.URL+"/run", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 400, resp.StatusCode)
}

func TestChatEndpoint(t *testing.T) {
	core := newTestCore(t)
	srv := httptest.NewServer(NewRouter(core))
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"message": "hello there"})
	resp, err := srv.Client().Post(srv.URL+"/chat", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
}

func TestMetricsEndpointReflectsTraffic(t *testing.T) {
	core := newTestCore(t)
	srv := httptest.NewServer(NewRouter(core))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	metricsResp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()

	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "localflow_http_requests_total")
	require.True(t, strings.Contains(string(body), `route="/health"`))
}

func TestWorkflowCRUD(t *testing.T) {
	core := newTestCore(t)
	srv := httptest.NewServer(NewRouter(core))
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"name": "My Flow", "nodes": []any{}, "edges": []any{}})
	resp, err := srv.Client().Post(srv.URL+"/workflows", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))
	resp.Body.Close()
	id := saved["id"].(string)

	getResp, err := srv.Client().Get(srv.URL + "/workflows/" + id)
	require.NoError(t, err)
	require.Equal(t, 200, getResp.StatusCode)
	getResp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/workflows/"+id, nil)
	require.NoError(t, err)
	delResp, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, 204, delResp.StatusCode)
	delResp.Body.Close()
}
