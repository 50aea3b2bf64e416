package bridge

import "time"

// RepositoryInfo describes the repository a session is connected to.
// Immutable once constructed at connect time.
type RepositoryInfo struct {
	Name          string `json:"name"`
	ID            string `json:"id"`
	ServerVersion string `json:"serverVersion,omitempty"`
	Endpoint      string `json:"endpoint"`
}

// SessionInfo is the caller-visible view of a live session.
type SessionInfo struct {
	SessionID     string    `json:"sessionId"`
	Connected     bool      `json:"connected"`
	Repository    string    `json:"repository"`
	User          string    `json:"user"`
	Endpoint      string    `json:"endpoint"`
	SessionStart  time.Time `json:"sessionStart"`
	LastActivity  time.Time `json:"lastActivity"`
	ServerVersion string    `json:"serverVersion,omitempty"`
}

// ObjectRecord is the gateway's stable projection of a backend object.
// PermissionLevel is 1 (NONE) through 7 (DELETE); zero means the backend
// supplied no recognizable permission.
type ObjectRecord struct {
	ObjectID            string         `json:"objectId"`
	Type                string         `json:"type"`
	Name                string         `json:"name"`
	Attributes          map[string]any `json:"attributes,omitempty"`
	PermissionLevel     int            `json:"permissionLevel,omitempty"`
	PermissionLabel     string         `json:"permissionLabel,omitempty"`
	ExtendedPermissions []string       `json:"extendedPermissions,omitempty"`
}

// TypeDescriptor describes a backend object type and its attribute schema.
type TypeDescriptor struct {
	Name       string                `json:"name"`
	SuperType  string                `json:"superType"`
	SystemType bool                  `json:"systemType"`
	Category   string                `json:"category"`
	Attributes []AttributeDescriptor `json:"attributes"`
}

// AttributeDescriptor describes one attribute of a type. Inherited is true
// when the attribute name also appears on the resolved super-type.
type AttributeDescriptor struct {
	Name         string `json:"name"`
	DataType     string `json:"dataType"`
	Length       int    `json:"length"`
	Repeating    bool   `json:"repeating"`
	Required     bool   `json:"required"`
	DefaultValue string `json:"defaultValue,omitempty"`
	Inherited    bool   `json:"inherited"`
}

// ColumnDescriptor describes one column of a query result. Columns are
// inferred from the first row of the first page.
type ColumnDescriptor struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Length    int    `json:"length"`
	Repeating bool   `json:"repeating"`
}

// QueryResult is the aggregated result of a DQL query across all pages.
type QueryResult struct {
	Columns         []ColumnDescriptor `json:"columns"`
	Rows            []map[string]any   `json:"rows"`
	RowCount        int                `json:"rowCount"`
	HasMore         bool               `json:"hasMore"`
	ExecutionTimeMs int64              `json:"executionTimeMs"`
}

// UserRecord is a flat projection of a backend user object.
type UserRecord struct {
	ObjectID      string `json:"objectId"`
	UserName      string `json:"userName"`
	UserOSName    string `json:"userOsName"`
	UserAddress   string `json:"userAddress"`
	UserState     string `json:"userState"`
	DefaultFolder string `json:"defaultFolder"`
	UserGroupName string `json:"userGroupName"`
	SuperUser     bool   `json:"superUser"`
}

// GroupRecord is a flat projection of a backend group object. UsersNames and
// GroupsNames are always non-nil.
type GroupRecord struct {
	ObjectID    string   `json:"objectId"`
	GroupName   string   `json:"groupName"`
	Description string   `json:"description"`
	GroupClass  string   `json:"groupClass"`
	GroupAdmin  string   `json:"groupAdmin"`
	Private     bool     `json:"isPrivate"`
	UsersNames  []string `json:"usersNames"`
	GroupsNames []string `json:"groupsNames"`
}
