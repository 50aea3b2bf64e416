package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/spiredms/docbridge/bridge"
)

// maxBodySize bounds request bodies; gateway payloads are small JSON
// documents.
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Code:      code,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	})
}

// mapError renders a bridge error with its stable code and the fixed
// transport status for that condition.
func mapError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bridge.ErrSessionNotFound),
		errors.Is(err, bridge.ErrObjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bridge.ErrConnection),
		errors.Is(err, bridge.ErrDQLNotAvailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrAggregateQuery),
		errors.Is(err, bridge.ErrDQL):
		status = http.StatusBadRequest
	}
	writeError(w, status, bridge.Code(err), err.Error())
}

// decodeJSON decodes a request body into T, writing a validation error
// response and returning ok=false when the body is malformed.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body: "+err.Error())
		return v, false
	}
	// Reject trailing garbage after the JSON document.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body: unexpected trailing data")
		return v, false
	}
	return v, true
}
