package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spiredms/docbridge/bridge"
)

// requireSessionID extracts the sessionId query parameter, writing a
// validation error when it is absent.
func requireSessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "sessionId: Session ID is required")
		return "", false
	}
	return sessionID, true
}

// Health handles GET /health.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

// Status handles GET /api/v1/status.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Service:     "docbridge",
		Version:     Version,
		Backend:     "REST",
		Description: "Documentum REST Services gateway",
	})
}

// Connect handles POST /connect.
// Validates the credentials against the backend and returns a session id
// for subsequent requests.
func (a *API) Connect(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ConnectRequest](w, r)
	if !ok {
		return
	}
	switch {
	case req.Endpoint == "":
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "endpoint: Endpoint URL is required")
		return
	case req.Repository == "":
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "repository: Repository is required")
		return
	case req.Username == "":
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "username: Username is required")
		return
	case req.Password == "":
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "password: Password is required")
		return
	}

	result, err := a.svc.Registry().Connect(r.Context(), bridge.ConnectParams{
		Endpoint:   req.Endpoint,
		Repository: req.Repository,
		Username:   req.Username,
		Password:   req.Password,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Disconnect handles POST /disconnect. Disconnecting an unknown session is
// not an error.
func (a *API) Disconnect(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[DisconnectRequest](w, r)
	if !ok {
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "sessionId: Session ID is required")
		return
	}
	a.svc.Registry().Disconnect(req.SessionID)
	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /session/{sessionID}.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := a.svc.Registry().SessionInfo(chi.URLParam(r, "sessionID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// SessionValid handles GET /session/{sessionID}/valid.
func (a *API) SessionValid(w http.ResponseWriter, r *http.Request) {
	valid := a.svc.Registry().IsValid(chi.URLParam(r, "sessionID"))
	writeJSON(w, http.StatusOK, SessionValidResponse{Valid: valid})
}

// ExecuteDQL handles POST /dql.
func (a *API) ExecuteDQL(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[DQLRequest](w, r)
	if !ok {
		return
	}
	switch {
	case req.SessionID == "":
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "sessionId: Session ID is required")
		return
	case req.Query == "":
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "query: Query is required")
		return
	}

	result, err := a.svc.ExecuteQuery(r.Context(), req.SessionID, req.Query)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DQLAvailable handles GET /dql/available.
func (a *API) DQLAvailable(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	available, err := a.svc.IsDQLAvailable(r.Context(), sessionID)
	if err != nil {
		mapError(w, err)
		return
	}
	msg := "DQL is available on this server"
	if !available {
		msg = "DQL is not available on this server. Use native REST endpoints for users, groups, types, etc."
	}
	writeJSON(w, http.StatusOK, DQLAvailableResponse{Available: available, Message: msg})
}

// GetObject handles GET /objects/{objectID}.
func (a *API) GetObject(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	rec, err := a.svc.GetObject(r.Context(), sessionID, chi.URLParam(r, "objectID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateObject handles POST /objects.
func (a *API) CreateObject(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreateObjectRequest](w, r)
	if !ok {
		return
	}
	switch {
	case req.SessionID == "":
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "sessionId: Session ID is required")
		return
	case req.ObjectType == "":
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "objectType: Object type is required")
		return
	}

	rec, err := a.svc.CreateObject(r.Context(), req.SessionID, bridge.CreateObjectParams{
		ObjectType: req.ObjectType,
		ObjectName: req.ObjectName,
		FolderPath: req.FolderPath,
		Attributes: req.Attributes,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateObject handles POST /objects/{objectID}.
func (a *API) UpdateObject(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[UpdateObjectRequest](w, r)
	if !ok {
		return
	}
	switch {
	case req.SessionID == "":
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "sessionId: Session ID is required")
		return
	case len(req.Attributes) == 0:
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "attributes: Attributes are required")
		return
	}

	rec, err := a.svc.UpdateObject(r.Context(), req.SessionID, chi.URLParam(r, "objectID"), req.Attributes)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteObject handles DELETE /objects/{objectID}.
func (a *API) DeleteObject(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	allVersions := r.URL.Query().Get("allVersions") == "true"
	if err := a.svc.DeleteObject(r.Context(), sessionID, chi.URLParam(r, "objectID"), allVersions); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cabinets handles GET /cabinets.
func (a *API) Cabinets(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	items, hasMore, err := a.svc.Cabinets(r.Context(), sessionID)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ObjectListResponse{Items: items, HasMore: hasMore})
}

// FolderContents handles GET /objects/{folderID}/contents.
func (a *API) FolderContents(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	items, hasMore, err := a.svc.FolderContents(r.Context(), sessionID, chi.URLParam(r, "folderID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ObjectListResponse{Items: items, HasMore: hasMore})
}

// Checkout handles PUT /objects/{objectID}/lock.
func (a *API) Checkout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	rec, err := a.svc.Checkout(r.Context(), sessionID, chi.URLParam(r, "objectID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CancelCheckout handles DELETE /objects/{objectID}/lock.
func (a *API) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	if err := a.svc.CancelCheckout(r.Context(), sessionID, chi.URLParam(r, "objectID")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkin handles POST /objects/{objectID}/versions.
func (a *API) Checkin(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	versionLabel := r.URL.Query().Get("versionLabel")
	if versionLabel == "" {
		versionLabel = "CURRENT"
	}
	rec, err := a.svc.Checkin(r.Context(), sessionID, chi.URLParam(r, "objectID"), versionLabel)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListTypes handles GET /types.
func (a *API) ListTypes(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	items, hasMore, err := a.svc.ListTypes(r.Context(), sessionID, r.URL.Query().Get("pattern"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TypeListResponse{Items: items, HasMore: hasMore})
}

// GetType handles GET /types/{typeName}.
func (a *API) GetType(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	desc, err := a.svc.GetType(r.Context(), sessionID, chi.URLParam(r, "typeName"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// ListUsers handles GET /users.
func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	items, hasMore, err := a.svc.ListUsers(r.Context(), sessionID, r.URL.Query().Get("pattern"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Items: items, HasMore: hasMore})
}

// GetUser handles GET /users/{userName}.
func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	user, err := a.svc.GetUser(r.Context(), sessionID, chi.URLParam(r, "userName"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GroupsForUser handles GET /users/{userName}/groups.
func (a *API) GroupsForUser(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	items, hasMore, err := a.svc.GroupsForUser(r.Context(), sessionID, chi.URLParam(r, "userName"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupListResponse{Items: items, HasMore: hasMore})
}

// ListGroups handles GET /groups.
func (a *API) ListGroups(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	items, hasMore, err := a.svc.ListGroups(r.Context(), sessionID, r.URL.Query().Get("pattern"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupListResponse{Items: items, HasMore: hasMore})
}

// GetGroup handles GET /groups/{groupName}.
func (a *API) GetGroup(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	group, err := a.svc.GetGroup(r.Context(), sessionID, chi.URLParam(r, "groupName"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// ParentGroups handles GET /groups/{groupName}/parents.
func (a *API) ParentGroups(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	items, hasMore, err := a.svc.ParentGroups(r.Context(), sessionID, chi.URLParam(r, "groupName"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupListResponse{Items: items, HasMore: hasMore})
}
