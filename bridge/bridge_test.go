package bridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const testRepo = "testrepo"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backendServer is a mock backend. The repository route doubles as the
// connect probe and, when a dql query parameter is present, the query
// endpoint; tests that exercise DQL set the dql hook.
type backendServer struct {
	*httptest.Server
	mux *http.ServeMux
	dql http.HandlerFunc
}

// newBackend starts a mock backend that answers the connect probe for
// testRepo and delegates everything else to mux.
func newBackend(t *testing.T, mux *http.ServeMux) *backendServer {
	t.Helper()
	b := &backendServer{mux: mux}
	mux.HandleFunc("GET /repositories/"+testRepo, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("dql") && b.dql != nil {
			b.dql(w, r)
			return
		}
		writeBackendJSON(t, w, map[string]any{
			"id":   "repo-1",
			"name": testRepo,
			"servers": []any{
				map[string]any{"version": "16.7.0000"},
			},
		})
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func writeBackendJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/vnd.emc.documentum+json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// connectedService connects a session to the backend and returns the service
// and session id.
func connectedService(t *testing.T, backendURL string, cfg Config) (*Service, string) {
	t.Helper()
	reg := NewRegistry(cfg, testLogger())
	res, err := reg.Connect(context.Background(), ConnectParams{
		Endpoint:   backendURL,
		Repository: testRepo,
		Username:   "jdoe",
		Password:   "secret",
	})
	require.NoError(t, err)
	return NewService(reg, testLogger()), res.SessionID
}

// entryPage builds a backend list page with the given entries, with a "next"
// link when more pages follow.
func entryPage(entries []map[string]any, hasNext bool) map[string]any {
	page := map[string]any{"entries": toAnySlice(entries)}
	if hasNext {
		page["links"] = []any{
			map[string]any{"rel": "next", "href": "ignored"},
		}
	}
	return page
}

func toAnySlice(entries []map[string]any) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e
	}
	return out
}
