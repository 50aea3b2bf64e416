package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBatchEnvelope answers a batch request with per-operation results in
// the backend's envelope shape.
func writeBatchEnvelope(t *testing.T, w http.ResponseWriter, ops map[opTag]batchResult) {
	t.Helper()
	operations := []any{}
	for tag, res := range ops {
		operations = append(operations, map[string]any{
			"id": string(tag),
			"response": map[string]any{
				"status": res.status,
				"entity": res.entity,
			},
		})
	}
	writeBackendJSON(t, w, map[string]any{"operations": operations})
}

func decodeBatchRequest(t *testing.T, r *http.Request) batchRequest {
	t.Helper()
	var req batchRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestGetObjectBatchFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repositories/testrepo/batches", func(w http.ResponseWriter, r *http.Request) {
		req := decodeBatchRequest(t, r)
		require.Len(t, req.Operations, 2)
		assert.Equal(t, opGetObject, req.Operations[0].ID)
		assert.Equal(t, "/repositories/testrepo/objects/0900000180001234",
			req.Operations[0].Request.URI)
		assert.Equal(t, opGetPermissions, req.Operations[1].ID)

		writeBatchEnvelope(t, w, map[opTag]batchResult{
			opGetObject: {status: 200, entity: mustJSON(t, map[string]any{
				"properties": map[string]any{
					"r_object_id":   "0900000180001234",
					"r_object_type": "dm_document",
					"object_name":   "report.docx",
				},
			})},
			opGetPermissions: {status: 200, entity: mustJSON(t, map[string]any{
				"basic-permission": "READ",
			})},
		})
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	rec, err := svc.GetObject(context.Background(), sid, "0900000180001234")
	require.NoError(t, err)
	assert.Equal(t, "report.docx", rec.Name)
	assert.Equal(t, "dm_document", rec.Type)
	assert.Equal(t, 3, rec.PermissionLevel)
	assert.Equal(t, "READ", rec.PermissionLabel)
}

func TestGetObjectNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repositories/testrepo/batches", func(w http.ResponseWriter, r *http.Request) {
		writeBatchEnvelope(t, w, map[opTag]batchResult{
			opGetObject:      {status: 404, entity: "no such object"},
			opGetPermissions: {status: 404, entity: "no such object"},
		})
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	_, err := svc.GetObject(context.Background(), sid, "0900000180009999")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestUpdateObjectWrapsRepeatingAttributes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/testrepo/objects/0900000180001234", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(t, w, map[string]any{
			"properties": map[string]any{"r_object_type": "custom_doc"},
		})
	})
	mux.HandleFunc("GET /repositories/testrepo/types/custom_doc", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(t, w, map[string]any{
			"name": "custom_doc",
			"properties": []any{
				map[string]any{"name": "keywords", "type": "string", "repeating": true},
				map[string]any{"name": "object_name", "type": "string"},
			},
		})
	})
	var updateEntity string
	mux.HandleFunc("POST /repositories/testrepo/batches", func(w http.ResponseWriter, r *http.Request) {
		req := decodeBatchRequest(t, r)
		require.Len(t, req.Operations, 2)
		assert.True(t, req.Sequential)
		updateEntity = req.Operations[0].Request.Entity

		writeBatchEnvelope(t, w, map[opTag]batchResult{
			opUpdateObject: {status: 200, entity: mustJSON(t, map[string]any{
				"properties": map[string]any{
					"r_object_id": "0900000180001234",
					"keywords":    []any{"finance"},
				},
			})},
		})
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	_, err := svc.UpdateObject(context.Background(), sid, "0900000180001234", map[string]any{
		"keywords":    "finance",
		"object_name": "renamed.docx",
	})
	require.NoError(t, err)

	var payload struct {
		Properties map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal([]byte(updateEntity), &payload))
	assert.Equal(t, []any{"finance"}, payload.Properties["keywords"],
		"scalar value of a repeating attribute must be wrapped in a list")
	assert.Equal(t, "renamed.docx", payload.Properties["object_name"])
}

func TestCreateObjectResolvesFolderPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/testrepo/folders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Corporate/Reports", r.URL.Query().Get("folder-path"))
		writeBackendJSON(t, w, entryPage([]map[string]any{
			{"id": "http://host/repositories/testrepo/folders/0b00000180000200"},
		}, false))
	})
	mux.HandleFunc("POST /repositories/testrepo/folders/0b00000180000200/documents", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Properties map[string]any `json:"properties"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "dm_document", payload.Properties["r_object_type"])
		assert.Equal(t, "new.docx", payload.Properties["object_name"])
		writeBackendJSON(t, w, map[string]any{
			"properties": map[string]any{
				"r_object_id":   "0900000180005555",
				"r_object_type": "dm_document",
				"object_name":   "new.docx",
			},
		})
	})
	mux.HandleFunc("GET /repositories/testrepo/objects/0900000180005555/permissions", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	rec, err := svc.CreateObject(context.Background(), sid, CreateObjectParams{
		ObjectType: "dm_document",
		ObjectName: "new.docx",
		FolderPath: "/Corporate/Reports",
	})
	require.NoError(t, err)
	assert.Equal(t, "0900000180005555", rec.ObjectID)
	assert.Zero(t, rec.PermissionLevel, "missing permission set is not an error")
}

func TestCreateObjectUnknownFolderPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/testrepo/folders", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(t, w, entryPage(nil, false))
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	_, err := svc.CreateObject(context.Background(), sid, CreateObjectParams{
		ObjectType: "dm_document",
		FolderPath: "/No/Such/Folder",
	})
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Contains(t, err.Error(), "/No/Such/Folder")
}

func TestCreateObjectCabinetSkipsFolderResolution(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repositories/testrepo/cabinets", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(t, w, map[string]any{
			"properties": map[string]any{
				"r_object_id":   "0c00000180000300",
				"r_object_type": "dm_cabinet",
				"object_name":   "Archive",
			},
		})
	})
	mux.HandleFunc("GET /repositories/testrepo/objects/0c00000180000300/permissions", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(t, w, map[string]any{"basic-permission": "DELETE"})
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	rec, err := svc.CreateObject(context.Background(), sid, CreateObjectParams{
		ObjectType: "dm_cabinet",
		ObjectName: "Archive",
	})
	require.NoError(t, err)
	assert.Equal(t, "dm_cabinet", rec.Type)
	assert.Equal(t, 7, rec.PermissionLevel)
}

func TestDeleteObjectVersionSelector(t *testing.T) {
	mux := http.NewServeMux()
	var delVersion string
	mux.HandleFunc("DELETE /repositories/testrepo/objects/0900000180001234", func(w http.ResponseWriter, r *http.Request) {
		delVersion = r.URL.Query().Get("del-version")
		w.WriteHeader(http.StatusNoContent)
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	require.NoError(t, svc.DeleteObject(context.Background(), sid, "0900000180001234", true))
	assert.Equal(t, "all", delVersion)

	require.NoError(t, svc.DeleteObject(context.Background(), sid, "0900000180001234", false))
	assert.Equal(t, "selected", delVersion)
}

func TestCheckinFetchesPermissionsForNewVersion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repositories/testrepo/batches", func(w http.ResponseWriter, r *http.Request) {
		req := decodeBatchRequest(t, r)
		require.Len(t, req.Operations, 1)
		assert.Equal(t, opCheckin, req.Operations[0].ID)
		assert.Contains(t, req.Operations[0].Request.Entity, "r_version_label")

		// The new version comes back under a different object id.
		writeBatchEnvelope(t, w, map[opTag]batchResult{
			opCheckin: {status: 200, entity: mustJSON(t, map[string]any{
				"properties": map[string]any{
					"r_object_id": "0900000180007777",
					"object_name": "report.docx",
				},
			})},
		})
	})
	permissionsFetched := false
	mux.HandleFunc("GET /repositories/testrepo/objects/0900000180007777/permissions", func(w http.ResponseWriter, r *http.Request) {
		permissionsFetched = true
		writeBackendJSON(t, w, map[string]any{"basic-permission": "VERSION"})
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	rec, err := svc.Checkin(context.Background(), sid, "0900000180001234", "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "0900000180007777", rec.ObjectID)
	assert.True(t, permissionsFetched, "permissions must be fetched against the new version's id")
	assert.Equal(t, 5, rec.PermissionLevel)
}

func TestCabinetsListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/testrepo/cabinets", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(t, w, entryPage([]map[string]any{
			{
				"id":      "http://host/repositories/testrepo/cabinets/0c00000180000105",
				"title":   "Templates",
				"summary": "dm_cabinet 0c00000180000105",
			},
		}, false))
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	cabinets, hasMore, err := svc.Cabinets(context.Background(), sid)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, cabinets, 1)
	assert.Equal(t, "0c00000180000105", cabinets[0].ObjectID)
	assert.Equal(t, "Templates", cabinets[0].Name)
}

func TestFolderContentsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/testrepo/folders/0b00000180009999/objects", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	_, _, err := svc.FolderContents(context.Background(), sid, "0b00000180009999")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
