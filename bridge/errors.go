package bridge

import (
	"errors"
	"fmt"
)

// Error kinds for the gateway. Operations wrap these sentinels so callers
// can branch with errors.Is while still seeing a condition-specific message.
var (
	// ErrConnection indicates a connect-time failure: endpoint missing,
	// credentials rejected, repository unknown, or backend unreachable.
	ErrConnection = errors.New("connection error")
	// ErrSessionNotFound indicates the session id does not exist, was
	// disconnected, or has expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrObjectNotFound indicates the referenced object, type, folder,
	// user, or group does not exist on the backend.
	ErrObjectNotFound = errors.New("object not found")
	// ErrDQLNotAvailable indicates DQL execution is disabled on the backend.
	ErrDQLNotAvailable = errors.New("dql not available")
	// ErrAggregateQuery indicates a query was rejected because its
	// projection computes summary values without per-row object identity.
	ErrAggregateQuery = errors.New("aggregate query not supported")
	// ErrDQL indicates any other DQL execution failure.
	ErrDQL = errors.New("dql error")
	// ErrBackend wraps unexpected backend failures and parse errors.
	ErrBackend = errors.New("backend error")
)

// bridgeError pairs an error kind with a condition-specific message.
type bridgeError struct {
	kind error
	msg  string
}

func (e *bridgeError) Error() string { return e.msg }
func (e *bridgeError) Unwrap() error { return e.kind }

func wrapErr(kind error, format string, args ...any) error {
	return &bridgeError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Code returns the stable machine-readable code for an error, used by the
// HTTP layer in error response bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrConnection):
		return "CONNECTION_ERROR"
	case errors.Is(err, ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, ErrObjectNotFound):
		return "OBJECT_NOT_FOUND"
	case errors.Is(err, ErrDQLNotAvailable):
		return "DQL_NOT_AVAILABLE"
	case errors.Is(err, ErrAggregateQuery):
		return "AGGREGATE_QUERY_NOT_SUPPORTED"
	case errors.Is(err, ErrDQL):
		return "DQL_ERROR"
	case errors.Is(err, ErrBackend):
		return "REST_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

const dqlNotAvailableMsg = "DQL is not available on this Documentum REST Services endpoint. " +
	"DQL may be disabled in the server configuration."

func errDQLNotAvailable(details string) error {
	if details == "" {
		return wrapErr(ErrDQLNotAvailable, dqlNotAvailableMsg)
	}
	return wrapErr(ErrDQLNotAvailable,
		"DQL is not available on this Documentum REST Services endpoint. %s", details)
}

func errAggregateQuery(query string) error {
	const msg = "aggregate DQL queries (GROUP BY, COUNT, etc.) are not supported " +
		"by the REST Services result model"
	if query == "" {
		return wrapErr(ErrAggregateQuery, msg)
	}
	return wrapErr(ErrAggregateQuery, "%s. Query: %s", msg, truncateQuery(query))
}

func truncateQuery(query string) string {
	const max = 100
	if len(query) > max {
		return query[:max] + "..."
	}
	return query
}
