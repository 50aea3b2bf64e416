package bridge

import (
	"encoding/json"
)

// opTag identifies a sub-operation inside a batch request. Results are
// correlated by tag rather than by position.
type opTag string

const (
	opGetObject      opTag = "getObject"
	opGetPermissions opTag = "getPermissions"
	opUpdateObject   opTag = "updateObject"
	opCheckout       opTag = "checkout"
	opCheckin        opTag = "checkin"
)

// batchRequest is the backend's batch envelope. on-error CONTINUE lets a
// failed permissions fetch come back alongside a successful primary result.
type batchRequest struct {
	Transactional bool             `json:"transactional"`
	Sequential    bool             `json:"sequential"`
	OnError       string           `json:"on-error"`
	Operations    []batchOperation `json:"operations"`
}

type batchOperation struct {
	ID      opTag     `json:"id"`
	Request batchCall `json:"request"`
}

type batchCall struct {
	Method  string        `json:"method"`
	URI     string        `json:"uri"`
	Entity  string        `json:"entity,omitempty"`
	Headers []batchHeader `json:"headers,omitempty"`
}

type batchHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func permissionsCall(repository, objectID string) batchCall {
	return batchCall{
		Method: "GET",
		URI:    "/repositories/" + repository + "/objects/" + objectID + "/permissions",
	}
}

// newReadBatch fetches an object and its permissions in one round trip.
// Pure reads need no ordering, so the batch is not sequential.
func newReadBatch(repository, objectID string) batchRequest {
	return batchRequest{
		OnError: "CONTINUE",
		Operations: []batchOperation{
			{ID: opGetObject, Request: batchCall{
				Method: "GET",
				URI:    "/repositories/" + repository + "/objects/" + objectID,
			}},
			{ID: opGetPermissions, Request: permissionsCall(repository, objectID)},
		},
	}
}

// newWriteBatch combines a write with a dependent permissions read.
// Sequential execution guarantees the write is durable before the read runs.
func newWriteBatch(repository, objectID string, tag opTag, method, uri, entity string) batchRequest {
	write := batchCall{Method: method, URI: uri}
	if entity != "" {
		write.Entity = entity
		write.Headers = []batchHeader{{Name: "Content-Type", Value: documentumMediaType}}
	}
	return batchRequest{
		Sequential: true,
		OnError:    "CONTINUE",
		Operations: []batchOperation{
			{ID: tag, Request: write},
			{ID: opGetPermissions, Request: permissionsCall(repository, objectID)},
		},
	}
}

// newCheckinBatch carries only the checkin itself. The new version may get a
// different object id, so its permissions are fetched in a follow-up call
// once that id is known.
func newCheckinBatch(repository, objectID, entity string) batchRequest {
	checkin := batchCall{
		Method: "POST",
		URI:    "/repositories/" + repository + "/objects/" + objectID + "/versions?object-id=" + objectID,
	}
	if entity != "" {
		checkin.Entity = entity
		checkin.Headers = []batchHeader{{Name: "Content-Type", Value: documentumMediaType}}
	}
	return batchRequest{
		OnError:    "CONTINUE",
		Operations: []batchOperation{{ID: opCheckin, Request: checkin}},
	}
}

// batchResult is one sub-operation's outcome. The entity is the raw
// JSON-encoded string the backend nests inside the envelope.
type batchResult struct {
	status int
	entity string
}

// parseBatchEnvelope indexes a batch response's per-operation results by tag.
func parseBatchEnvelope(resp map[string]any) map[opTag]batchResult {
	results := make(map[opTag]batchResult)
	operations, ok := resp["operations"].([]any)
	if !ok {
		return results
	}
	for _, item := range operations {
		operation, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tag := opTag(stringValue(operation["id"]))
		response, ok := operation["response"].(map[string]any)
		if !ok {
			continue
		}
		status := 0
		if f, ok := response["status"].(float64); ok {
			status = int(f)
		}
		results[tag] = batchResult{
			status: status,
			entity: stringValue(response["entity"]),
		}
	}
	return results
}

// extractBatchObject resolves the primary operation of a parsed envelope into
// an ObjectRecord, merging the permissions sub-result when present. A 404 on
// the primary operation means the object does not exist; any other failure
// status is a backend error. An unparseable permissions entity is logged and
// skipped, but a batch without a usable primary result is a hard failure.
func (s *Service) extractBatchObject(results map[opTag]batchResult, primary opTag, objectID string) (ObjectRecord, error) {
	res, ok := results[primary]
	if !ok {
		return ObjectRecord{}, wrapErr(ErrObjectNotFound, "Object not found: %s", objectID)
	}
	if res.status == 404 {
		return ObjectRecord{}, wrapErr(ErrObjectNotFound, "Object not found: %s", objectID)
	}
	if res.status >= 400 {
		return ObjectRecord{}, wrapErr(ErrBackend,
			"%s operation failed with status %d: %s", primary, res.status, res.entity)
	}
	if res.entity == "" {
		return ObjectRecord{}, wrapErr(ErrBackend, "no usable %s result in batch response", primary)
	}

	var objectData map[string]any
	if err := json.Unmarshal([]byte(res.entity), &objectData); err != nil {
		return ObjectRecord{}, wrapErr(ErrBackend, "failed to parse %s response: %v", primary, err)
	}
	rec := extractObjectRecord(objectData)

	if perm, ok := results[opGetPermissions]; ok && perm.status == 200 && perm.entity != "" {
		var permData map[string]any
		if err := json.Unmarshal([]byte(perm.entity), &permData); err != nil {
			s.logger.Warn("failed to parse permissions response", "error", err)
		} else {
			applyPermissions(permData, &rec)
		}
	}

	return rec, nil
}
