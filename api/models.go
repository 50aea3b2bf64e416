package api

import (
	"time"

	"github.com/spiredms/docbridge/bridge"
)

// ConnectRequest is the JSON body for POST /connect.
type ConnectRequest struct {
	// Endpoint is the base URL of the backend REST services,
	// e.g. https://documentum.example.com/dctm-rest.
	Endpoint   string `json:"endpoint"`
	Repository string `json:"repository"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// DisconnectRequest is the JSON body for POST /disconnect.
type DisconnectRequest struct {
	SessionID string `json:"sessionId"`
}

// DQLRequest is the JSON body for POST /dql.
type DQLRequest struct {
	SessionID string `json:"sessionId"`
	Query     string `json:"query"`
}

// DQLAvailableResponse is returned from GET /dql/available.
type DQLAvailableResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// CreateObjectRequest is the JSON body for POST /objects.
type CreateObjectRequest struct {
	SessionID  string         `json:"sessionId"`
	ObjectType string         `json:"objectType"`
	ObjectName string         `json:"objectName,omitempty"`
	FolderPath string         `json:"folderPath,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// UpdateObjectRequest is the JSON body for POST /objects/{objectID}.
type UpdateObjectRequest struct {
	SessionID  string         `json:"sessionId"`
	Attributes map[string]any `json:"attributes"`
}

// ObjectListResponse is returned from listing endpoints. HasMore is true
// when the backend listing was truncated at the page cap.
type ObjectListResponse struct {
	Items   []bridge.ObjectRecord `json:"items"`
	HasMore bool                  `json:"hasMore"`
}

// TypeListResponse is returned from GET /types.
type TypeListResponse struct {
	Items   []bridge.TypeDescriptor `json:"items"`
	HasMore bool                    `json:"hasMore"`
}

// UserListResponse is returned from GET /users.
type UserListResponse struct {
	Items   []bridge.UserRecord `json:"items"`
	HasMore bool                `json:"hasMore"`
}

// GroupListResponse is returned from GET /groups and the membership lookups.
type GroupListResponse struct {
	Items   []bridge.GroupRecord `json:"items"`
	HasMore bool                 `json:"hasMore"`
}

// SessionValidResponse is returned from GET /session/{sessionID}/valid.
type SessionValidResponse struct {
	Valid bool `json:"valid"`
}

// StatusResponse is returned from GET /api/v1/status.
type StatusResponse struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Backend     string `json:"backend"`
	Description string `json:"description"`
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
