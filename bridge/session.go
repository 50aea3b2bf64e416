package bridge

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spiredms/docbridge/docclient"
)

// session holds the connection state for one authenticated backend session.
// The registry owns its lifetime; mutable fields are guarded by mu.
type session struct {
	id            string
	client        *docclient.Client
	repository    string
	username      string
	password      string
	endpoint      string
	serverVersion string
	sessionStart  time.Time

	mu           sync.Mutex
	lastActivity time.Time
	dqlChecked   bool
	dqlAvailable bool
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *session) lastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// dqlState returns the cached DQL availability tri-state.
func (s *session) dqlState() (checked, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dqlChecked, s.dqlAvailable
}

func (s *session) setDQLAvailable(available bool) {
	s.mu.Lock()
	s.dqlChecked = true
	s.dqlAvailable = available
	s.mu.Unlock()
}

func (s *session) info() SessionInfo {
	return SessionInfo{
		SessionID:     s.id,
		Connected:     true,
		Repository:    s.repository,
		User:          s.username,
		Endpoint:      s.endpoint,
		SessionStart:  s.sessionStart,
		LastActivity:  s.lastActive(),
		ServerVersion: s.serverVersion,
	}
}

// Registry is the concurrent in-memory store of backend sessions. It is the
// only mutable shared state in the gateway besides the type-schema caches.
type Registry struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewRegistry creates an empty session registry.
func NewRegistry(cfg Config, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:      cfg.withDefaults(),
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// ConnectParams are the credentials and target of a connect operation.
type ConnectParams struct {
	Repository string
	Endpoint   string
	Username   string
	Password   string
}

// ConnectResult is returned from a successful connect.
type ConnectResult struct {
	SessionID      string         `json:"sessionId"`
	RepositoryInfo RepositoryInfo `json:"repositoryInfo"`
}

// Connect validates the endpoint and credentials against the backend and, on
// success, stores a new session and returns its identifier.
func (r *Registry) Connect(ctx context.Context, params ConnectParams) (ConnectResult, error) {
	endpoint := strings.TrimSpace(params.Endpoint)
	if endpoint == "" {
		return ConnectResult{}, wrapErr(ErrConnection, "REST endpoint URL is required")
	}
	endpoint = strings.TrimRight(endpoint, "/")

	r.logger.Info("connecting to repository",
		"repository", params.Repository, "endpoint", endpoint)

	client := docclient.New(endpoint, params.Username, params.Password)

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.timeout())
	defer cancel()

	resp, err := client.Get(callCtx, "/repositories/"+params.Repository, nil)
	switch {
	case docclient.IsStatus(err, 401):
		return ConnectResult{}, wrapErr(ErrConnection, "Authentication failed. Check your credentials.")
	case docclient.IsStatus(err, 404):
		return ConnectResult{}, wrapErr(ErrConnection, "Repository %q not found.", params.Repository)
	case err != nil:
		var se *docclient.StatusError
		if errors.As(err, &se) {
			return ConnectResult{}, wrapErr(ErrConnection, "REST connection failed: %d - %s", se.StatusCode, se.Body)
		}
		return ConnectResult{}, wrapErr(ErrConnection, "Cannot connect to REST endpoint: %s", endpoint)
	case resp == nil:
		return ConnectResult{}, wrapErr(ErrConnection, "No response from REST endpoint")
	}

	now := time.Now()
	sess := &session{
		id:            "rest-" + uuid.NewString(),
		client:        client,
		repository:    params.Repository,
		username:      params.Username,
		password:      params.Password,
		endpoint:      endpoint,
		serverVersion: extractServerVersion(resp),
		sessionStart:  now,
		lastActivity:  now,
	}

	r.mu.Lock()
	r.sessions[sess.id] = sess
	r.mu.Unlock()

	r.logger.Info("session established",
		"session_id", sess.id, "user", params.Username, "repository", params.Repository)

	return ConnectResult{
		SessionID: sess.id,
		RepositoryInfo: RepositoryInfo{
			Name:          params.Repository,
			ID:            stringValue(resp["id"]),
			ServerVersion: sess.serverVersion,
			Endpoint:      endpoint,
		},
	}, nil
}

// Disconnect removes the session if present. Absence is not an error.
func (r *Registry) Disconnect(sessionID string) {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if ok {
		r.logger.Info("session disconnected", "session_id", sessionID)
	}
}

// SessionInfo returns the caller-visible state of a session.
func (r *Registry) SessionInfo(sessionID string) (SessionInfo, error) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return SessionInfo{}, wrapErr(ErrSessionNotFound, "Session not found: %s", sessionID)
	}
	return sess.info(), nil
}

// IsValid reports whether the session exists. It never errors.
func (r *Registry) IsValid(sessionID string) bool {
	r.mu.RLock()
	_, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	return ok
}

// get returns the session and extends its life. This is the single touch
// point: every backend-calling operation goes through here.
func (r *Registry) get(sessionID string) (*session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, wrapErr(ErrSessionNotFound, "Session not found: %s", sessionID)
	}
	sess.touch()
	return sess, nil
}

// RunSweeper removes idle-expired sessions on a periodic timer until ctx is
// cancelled. Intended to run in its own goroutine for the process lifetime.
func (r *Registry) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.sweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepExpired()
		}
	}
}

// sweepExpired removes every session idle longer than the session timeout.
// Candidates are collected under the read lock so concurrent lookups for
// live sessions are not held up behind deletions.
func (r *Registry) sweepExpired() {
	cutoff := time.Now().Add(-r.cfg.sessionTimeout())

	var expired []string
	r.mu.RLock()
	for id, sess := range r.sessions {
		if sess.lastActive().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	if len(expired) == 0 {
		return
	}
	r.mu.Lock()
	for _, id := range expired {
		// Re-check under the write lock; the session may have been touched
		// between collection and deletion.
		if sess, ok := r.sessions[id]; ok && sess.lastActive().Before(cutoff) {
			delete(r.sessions, id)
			r.logger.Info("expired idle session", "session_id", id)
		}
	}
	r.mu.Unlock()
}

// ActiveSessions reports the number of live sessions.
func (r *Registry) ActiveSessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown drops all sessions. Called when the process is stopping.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	n := len(r.sessions)
	r.sessions = make(map[string]*session)
	r.mu.Unlock()
	r.logger.Info("cleared all sessions on shutdown", "count", n)
}

func extractServerVersion(resp map[string]any) string {
	servers, ok := resp["servers"].([]any)
	if !ok || len(servers) == 0 {
		return ""
	}
	first, ok := servers[0].(map[string]any)
	if !ok {
		return ""
	}
	return stringValue(first["version"])
}
