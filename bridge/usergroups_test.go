package bridge

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupsBackend(t *testing.T) *backendServer {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/testrepo/groups", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(t, w, entryPage([]map[string]any{
			{
				"id": "http://host/repositories/testrepo/groups/editors",
				"content": map[string]any{
					"properties": map[string]any{
						"group_name":  "editors",
						"users_names": []any{"jdoe", "asmith"},
					},
				},
			},
			{
				"id": "http://host/repositories/testrepo/groups/publishers",
				"content": map[string]any{
					"properties": map[string]any{
						"group_name":   "publishers",
						"users_names":  []any{"asmith"},
						"groups_names": []any{"editors"},
					},
				},
			},
		}, false))
	})
	return newBackend(t, mux)
}

func TestListUsersFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/testrepo/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("inline"))
		assert.Equal(t, "starts-with(user_name,'j')", r.URL.Query().Get("filter"))
		writeBackendJSON(t, w, entryPage([]map[string]any{
			{
				"id": "http://host/repositories/testrepo/users/jdoe",
				"content": map[string]any{
					"properties": map[string]any{
						"user_name":    "jdoe",
						"user_address": "jdoe@example.com",
					},
				},
			},
		}, false))
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	users, hasMore, err := svc.ListUsers(context.Background(), sid, "j")
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, users, 1)
	assert.Equal(t, "jdoe", users[0].UserName)
	assert.Equal(t, "jdoe@example.com", users[0].UserAddress)
}

func TestGetUserNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/testrepo/users/{name}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	_, err := svc.GetUser(context.Background(), sid, "ghost")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestGetGroup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/testrepo/groups/editors", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(t, w, map[string]any{
			"properties": map[string]any{
				"group_name":  "editors",
				"users_names": []any{"jdoe"},
			},
		})
	})
	backend := newBackend(t, mux)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	group, err := svc.GetGroup(context.Background(), sid, "editors")
	require.NoError(t, err)
	assert.Equal(t, "editors", group.GroupName)
	assert.Equal(t, []string{"jdoe"}, group.UsersNames)
}

func TestGroupsForUser(t *testing.T) {
	backend := groupsBackend(t)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	groups, _, err := svc.GroupsForUser(context.Background(), sid, "jdoe")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "editors", groups[0].GroupName)

	groups, _, err = svc.GroupsForUser(context.Background(), sid, "asmith")
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestParentGroups(t *testing.T) {
	backend := groupsBackend(t)
	svc, sid := connectedService(t, backend.URL, DefaultConfig())

	parents, _, err := svc.ParentGroups(context.Background(), sid, "editors")
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, "publishers", parents[0].GroupName)

	parents, _, err = svc.ParentGroups(context.Background(), sid, "publishers")
	require.NoError(t, err)
	assert.Empty(t, parents)
}
