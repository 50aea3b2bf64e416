package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiredms/docbridge/api"
	"github.com/spiredms/docbridge/bridge"
)

const testRepo = "testrepo"

// newGateway starts a mock Documentum backend plus a gateway wired to it and
// returns both servers.
func newGateway(t *testing.T, mux *http.ServeMux) (gateway *httptest.Server, backend *httptest.Server) {
	t.Helper()
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.HandleFunc("GET /repositories/"+testRepo, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "repo-1",
			"name": testRepo,
			"servers": []any{
				map[string]any{"version": "16.7.0000"},
			},
		})
	})
	backend = httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := bridge.NewRegistry(bridge.DefaultConfig(), logger)
	svc := bridge.NewService(reg, logger)
	a := api.New(svc, api.WithLogger(logger))
	gateway = httptest.NewServer(a.Router())
	t.Cleanup(gateway.Close)
	return gateway, backend
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func connect(t *testing.T, gateway, backend *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, gateway.URL+"/api/v1/connect", map[string]any{
		"endpoint":   backend.URL,
		"repository": testRepo,
		"username":   "jdoe",
		"password":   "secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessionID, _ := body["sessionId"].(string)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func TestHealth(t *testing.T) {
	gateway, _ := newGateway(t, nil)
	resp, body := doJSON(t, http.MethodGet, gateway.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "UP", body["status"])
}

func TestStatus(t *testing.T) {
	gateway, _ := newGateway(t, nil)
	resp, body := doJSON(t, http.MethodGet, gateway.URL+"/api/v1/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "docbridge", body["service"])
	assert.Equal(t, api.Version, body["version"])
}

func TestConnectValidation(t *testing.T) {
	gateway, _ := newGateway(t, nil)
	resp, body := doJSON(t, http.MethodPost, gateway.URL+"/api/v1/connect", map[string]any{
		"repository": testRepo,
		"username":   "jdoe",
		"password":   "secret",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["message"], "endpoint")
	assert.NotEmpty(t, body["timestamp"])
}

func TestConnectRejectsUnknownFields(t *testing.T) {
	gateway, _ := newGateway(t, nil)
	resp, body := doJSON(t, http.MethodPost, gateway.URL+"/api/v1/connect", map[string]any{
		"endpoint": "http://x", "repository": testRepo,
		"username": "jdoe", "password": "secret", "bogus": true,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestSessionLifecycle(t *testing.T) {
	gateway, backend := newGateway(t, nil)
	sessionID := connect(t, gateway, backend)

	resp, body := doJSON(t, http.MethodGet, gateway.URL+"/api/v1/session/"+sessionID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, testRepo, body["repository"])
	assert.Equal(t, "jdoe", body["user"])

	resp, body = doJSON(t, http.MethodGet, gateway.URL+"/api/v1/session/"+sessionID+"/valid", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])

	resp, _ = doJSON(t, http.MethodPost, gateway.URL+"/api/v1/disconnect", map[string]any{
		"sessionId": sessionID,
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, gateway.URL+"/api/v1/session/"+sessionID+"/valid", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	gateway, _ := newGateway(t, nil)
	resp, body := doJSON(t, http.MethodGet, gateway.URL+"/api/v1/session/rest-nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SESSION_NOT_FOUND", body["code"])
}

func TestEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/testrepo/users/ghost", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	gateway, backend := newGateway(t, mux)
	sessionID := connect(t, gateway, backend)

	resp, body := doJSON(t, http.MethodGet,
		gateway.URL+"/api/v1/users/ghost?sessionId="+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "OBJECT_NOT_FOUND", body["code"])
	assert.Contains(t, body["message"], "ghost")

	// Rejected by the gateway's own classifier; the backend never sees it.
	resp, body = doJSON(t, http.MethodPost, gateway.URL+"/api/v1/dql", map[string]any{
		"sessionId": sessionID,
		"query":     "SELECT COUNT(*) FROM dm_document",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "AGGREGATE_QUERY_NOT_SUPPORTED", body["code"])
}

func TestDQLValidation(t *testing.T) {
	gateway, backend := newGateway(t, nil)
	sessionID := connect(t, gateway, backend)

	resp, body := doJSON(t, http.MethodPost, gateway.URL+"/api/v1/dql", map[string]any{
		"sessionId": sessionID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	resp, body = doJSON(t, http.MethodPost, gateway.URL+"/api/v1/dql", map[string]any{
		"query": "SELECT r_object_id FROM dm_document",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestMissingSessionIDQueryParam(t *testing.T) {
	gateway, _ := newGateway(t, nil)
	resp, body := doJSON(t, http.MethodGet, gateway.URL+"/api/v1/cabinets", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["message"], "sessionId")
}

func TestMetricsEndpoint(t *testing.T) {
	gateway, backend := newGateway(t, nil)
	connect(t, gateway, backend)

	resp, err := http.Get(gateway.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "docbridge_http_requests_total")
	assert.Contains(t, string(raw), "docbridge_active_sessions 1")
}

func TestOpenAPISpecServed(t *testing.T) {
	gateway, _ := newGateway(t, nil)
	resp, err := http.Get(gateway.URL + "/api/v1/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "openapi: 3.0.3")
}
