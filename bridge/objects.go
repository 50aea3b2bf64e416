package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/spiredms/docbridge/docclient"
)

// objectIDPattern matches a bare backend object id, distinguishing it from a
// folder path in create requests.
var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{16}$`)

// CreateObjectParams describes a new object. FolderPath is either a folder
// object id or a path like /Cabinet/Folder; it is ignored for cabinets.
type CreateObjectParams struct {
	ObjectType string
	ObjectName string
	FolderPath string
	Attributes map[string]any
}

// GetObject fetches an object and its permissions in one batch round trip.
func (s *Service) GetObject(ctx context.Context, sessionID, objectID string) (ObjectRecord, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return ObjectRecord{}, err
	}
	results, err := s.postBatch(ctx, sess, newReadBatch(sess.repository, objectID))
	if err != nil {
		return ObjectRecord{}, objectError(err, objectID, "Failed to get object")
	}
	return s.extractBatchObject(results, opGetObject, objectID)
}

// Cabinets lists the repository's cabinets across all pages.
func (s *Service) Cabinets(ctx context.Context, sessionID string) ([]ObjectRecord, bool, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return nil, false, err
	}
	entries, hasMore, err := s.collectEntries(func(page int) (map[string]any, error) {
		return s.listPage(ctx, sess, "/repositories/"+sess.repository+"/cabinets", nil, page)
	})
	if err != nil {
		return nil, false, backendError(err, "Failed to get cabinets")
	}
	return entryRecords(entries), hasMore, nil
}

// FolderContents lists the objects directly inside a folder across all pages.
func (s *Service) FolderContents(ctx context.Context, sessionID, folderID string) ([]ObjectRecord, bool, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return nil, false, err
	}
	entries, hasMore, err := s.collectEntries(func(page int) (map[string]any, error) {
		return s.listPage(ctx, sess,
			"/repositories/"+sess.repository+"/folders/"+folderID+"/objects", nil, page)
	})
	if err != nil {
		if docclient.IsStatus(err, 404) {
			return nil, false, wrapErr(ErrObjectNotFound, "Folder not found: %s", folderID)
		}
		return nil, false, backendError(err, "Failed to list folder")
	}
	return entryRecords(entries), hasMore, nil
}

// CreateObject creates a document, folder, or cabinet depending on the
// requested type. Non-cabinet objects are filed under the resolved parent
// folder. Permissions on the new object are fetched best-effort.
func (s *Service) CreateObject(ctx context.Context, sessionID string, params CreateObjectParams) (ObjectRecord, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return ObjectRecord{}, err
	}

	properties := map[string]any{"r_object_type": params.ObjectType}
	if params.ObjectName != "" {
		properties["object_name"] = params.ObjectName
	}
	for name, value := range s.normalizeAttributes(ctx, sessionID, params.ObjectType, params.Attributes) {
		properties[name] = value
	}
	payload := map[string]any{"properties": properties}

	var path string
	switch {
	case params.ObjectType == "dm_folder" || strings.HasSuffix(params.ObjectType, "_folder"):
		folderID, err := s.resolveFolderID(ctx, sess, params.FolderPath)
		if err != nil {
			return ObjectRecord{}, err
		}
		path = "/repositories/" + sess.repository + "/folders/" + folderID + "/folders"
	case params.ObjectType == "dm_cabinet" || strings.HasSuffix(params.ObjectType, "_cabinet"):
		path = "/repositories/" + sess.repository + "/cabinets"
	default:
		folderID, err := s.resolveFolderID(ctx, sess, params.FolderPath)
		if err != nil {
			return ObjectRecord{}, err
		}
		path = "/repositories/" + sess.repository + "/folders/" + folderID + "/documents"
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	resp, err := sess.client.Post(callCtx, path, payload)
	if err != nil {
		return ObjectRecord{}, backendError(err, "Failed to create object")
	}
	if resp == nil {
		return ObjectRecord{}, wrapErr(ErrBackend, "No response from create")
	}

	rec := extractObjectRecord(resp)
	s.populatePermissions(ctx, sess, &rec)
	return rec, nil
}

// UpdateObject applies attribute changes to an object. Repeating attributes
// are normalized to lists based on the object's type schema before the write.
func (s *Service) UpdateObject(ctx context.Context, sessionID, objectID string, attributes map[string]any) (ObjectRecord, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return ObjectRecord{}, err
	}

	objectType := s.objectType(ctx, sess, objectID)
	payload, err := json.Marshal(map[string]any{
		"properties": s.normalizeAttributes(ctx, sessionID, objectType, attributes),
	})
	if err != nil {
		return ObjectRecord{}, wrapErr(ErrBackend, "Failed to update object: %v", err)
	}

	batch := newWriteBatch(sess.repository, objectID, opUpdateObject,
		"POST", "/repositories/"+sess.repository+"/objects/"+objectID, string(payload))
	results, err := s.postBatch(ctx, sess, batch)
	if err != nil {
		return ObjectRecord{}, objectError(err, objectID, "Failed to update object")
	}
	return s.extractBatchObject(results, opUpdateObject, objectID)
}

// DeleteObject deletes an object, either all versions or only the selected
// one.
func (s *Service) DeleteObject(ctx context.Context, sessionID, objectID string, allVersions bool) error {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return err
	}

	delVersion := "selected"
	if allVersions {
		delVersion = "all"
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	err = sess.client.Delete(callCtx, "/repositories/"+sess.repository+"/objects/"+objectID,
		url.Values{"del-version": {delVersion}})
	if err != nil {
		return objectError(err, objectID, "Failed to delete object")
	}
	return nil
}

// Checkout locks an object for the session's user.
func (s *Service) Checkout(ctx context.Context, sessionID, objectID string) (ObjectRecord, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return ObjectRecord{}, err
	}
	batch := newWriteBatch(sess.repository, objectID, opCheckout,
		"PUT", "/repositories/"+sess.repository+"/objects/"+objectID+"/lock", "")
	results, err := s.postBatch(ctx, sess, batch)
	if err != nil {
		return ObjectRecord{}, objectError(err, objectID, "Failed to checkout object")
	}
	return s.extractBatchObject(results, opCheckout, objectID)
}

// CancelCheckout releases an object's lock without creating a version.
func (s *Service) CancelCheckout(ctx context.Context, sessionID, objectID string) error {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	err = sess.client.Delete(callCtx,
		"/repositories/"+sess.repository+"/objects/"+objectID+"/lock", nil)
	if err != nil {
		return objectError(err, objectID, "Failed to cancel checkout")
	}
	return nil
}

// Checkin creates a new version of a checked-out object. The new version may
// carry a different object id, so its permissions are fetched in a separate
// call against the id the backend returned.
func (s *Service) Checkin(ctx context.Context, sessionID, objectID, versionLabel string) (ObjectRecord, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return ObjectRecord{}, err
	}

	entity := ""
	if versionLabel != "" {
		// r_version_label is repeating and must be sent as a list.
		payload, err := json.Marshal(map[string]any{
			"properties": map[string]any{"r_version_label": []string{versionLabel}},
		})
		if err != nil {
			return ObjectRecord{}, wrapErr(ErrBackend, "Failed to checkin object: %v", err)
		}
		entity = string(payload)
	}

	results, err := s.postBatch(ctx, sess, newCheckinBatch(sess.repository, objectID, entity))
	if err != nil {
		return ObjectRecord{}, objectError(err, objectID, "Failed to checkin object")
	}
	rec, err := s.extractBatchObject(results, opCheckin, objectID)
	if err != nil {
		return ObjectRecord{}, err
	}
	s.populatePermissions(ctx, sess, &rec)
	return rec, nil
}

// postBatch posts a batch request and indexes the per-operation results.
func (s *Service) postBatch(ctx context.Context, sess *session, batch batchRequest) (map[opTag]batchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	resp, err := sess.client.Post(ctx, "/repositories/"+sess.repository+"/batches", batch)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, wrapErr(ErrBackend, "no response from batch request")
	}
	return parseBatchEnvelope(resp), nil
}

// resolveFolderID turns a folder reference into an object id. A value that
// already looks like an object id is used as-is; anything else is treated as
// a repository path and looked up.
func (s *Service) resolveFolderID(ctx context.Context, sess *session, folderPath string) (string, error) {
	if folderPath == "" {
		return "", wrapErr(ErrBackend, "Folder path is required for non-cabinet objects")
	}
	if objectIDPattern.MatchString(folderPath) {
		return folderPath, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	resp, err := sess.client.Get(ctx, "/repositories/"+sess.repository+"/folders",
		url.Values{"folder-path": {folderPath}})
	if err != nil {
		return "", backendError(err, "Failed to resolve folder path")
	}
	for _, entry := range entryList(resp) {
		if id := lastPathSegment(stringValue(entry["id"])); id != "" {
			return id, nil
		}
	}
	return "", wrapErr(ErrObjectNotFound, "Folder not found: %s", folderPath)
}

// objectType fetches an object's type name, defaulting to dm_sysobject when
// the lookup fails. The default disables repeating-attribute normalization
// for custom attributes but never blocks the update itself.
func (s *Service) objectType(ctx context.Context, sess *session, objectID string) string {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	resp, err := sess.client.Get(ctx,
		"/repositories/"+sess.repository+"/objects/"+objectID, nil)
	if err != nil {
		s.logger.Warn("failed to get object type, defaulting to dm_sysobject",
			"object_id", objectID, "error", err)
		return "dm_sysobject"
	}
	if props := objectProperties(resp); props != nil {
		if t := stringValue(props["r_object_type"]); t != "" {
			return t
		}
	}
	return "dm_sysobject"
}

// repeatingAttributes returns the repeating attribute names of a type. The
// result is cached for the life of the process; a failed schema lookup caches
// an empty set so a broken type does not trigger a lookup per write.
func (s *Service) repeatingAttributes(ctx context.Context, sessionID, typeName string) map[string]struct{} {
	if cached, ok := s.repeatingAttrs.Load(typeName); ok {
		return cached.(map[string]struct{})
	}
	v, _, _ := s.sf.Do("repeating:"+typeName, func() (any, error) {
		if cached, ok := s.repeatingAttrs.Load(typeName); ok {
			return cached, nil
		}
		set := make(map[string]struct{})
		desc, err := s.GetType(ctx, sessionID, typeName)
		if err != nil {
			s.logger.Warn("failed to get type schema, attributes will not be normalized",
				"type", typeName, "error", err)
		} else {
			for _, attr := range desc.Attributes {
				if attr.Repeating {
					set[attr.Name] = struct{}{}
				}
			}
		}
		s.repeatingAttrs.Store(typeName, set)
		return set, nil
	})
	return v.(map[string]struct{})
}

// normalizeAttributes wraps scalar values of repeating attributes in
// single-element lists, which is the shape the backend requires.
func (s *Service) normalizeAttributes(ctx context.Context, sessionID, typeName string, attributes map[string]any) map[string]any {
	if len(attributes) == 0 {
		return attributes
	}
	repeating := s.repeatingAttributes(ctx, sessionID, typeName)
	if len(repeating) == 0 {
		return attributes
	}
	normalized := make(map[string]any, len(attributes))
	for name, value := range attributes {
		if _, ok := repeating[name]; ok && value != nil {
			if _, isList := value.([]any); !isList {
				normalized[name] = []any{value}
				continue
			}
		}
		normalized[name] = value
	}
	return normalized
}

// populatePermissions fetches an object's permissions and merges them into
// the record. Permissions are supplementary, so failures are logged and the
// record is returned without them.
func (s *Service) populatePermissions(ctx context.Context, sess *session, rec *ObjectRecord) {
	if rec.ObjectID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	resp, err := sess.client.Get(ctx,
		"/repositories/"+sess.repository+"/objects/"+rec.ObjectID+"/permissions", nil)
	switch {
	case docclient.IsStatus(err, 404):
		// Non-sysobjects have no permission set.
		s.logger.Debug("no permissions available for object", "object_id", rec.ObjectID)
	case err != nil:
		s.logger.Warn("failed to fetch permissions",
			"object_id", rec.ObjectID, "error", err)
	case resp != nil:
		applyPermissions(resp, rec)
	}
}

func entryRecords(entries []map[string]any) []ObjectRecord {
	records := make([]ObjectRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, extractEntryRecord(entry))
	}
	return records
}

// objectError maps a raw backend failure on a single-object operation: 404
// means the object does not exist, everything else is a backend error.
func objectError(err error, objectID, action string) error {
	if docclient.IsStatus(err, 404) {
		return wrapErr(ErrObjectNotFound, "Object not found: %s", objectID)
	}
	return backendError(err, action)
}

func backendError(err error, action string) error {
	var se *docclient.StatusError
	if errors.As(err, &se) {
		return wrapErr(ErrBackend, "%s: %s", action, se.Body)
	}
	return wrapErr(ErrBackend, "%s: %v", action, err)
}
