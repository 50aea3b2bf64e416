package bridge

import (
	"context"
	"net/url"

	"github.com/spiredms/docbridge/docclient"
)

// ListUsers lists repository users across all pages, optionally restricted
// to user names starting with pattern.
func (s *Service) ListUsers(ctx context.Context, sessionID, pattern string) ([]UserRecord, bool, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return nil, false, err
	}

	extra := url.Values{"inline": {"true"}}
	if pattern != "" {
		extra.Set("filter", "starts-with(user_name,'"+pattern+"')")
	}
	entries, hasMore, err := s.collectEntries(func(page int) (map[string]any, error) {
		return s.listPage(ctx, sess, "/repositories/"+sess.repository+"/users", extra, page)
	})
	if err != nil {
		return nil, false, backendError(err, "Failed to list users")
	}

	users := make([]UserRecord, 0, len(entries))
	for _, entry := range entries {
		if content := entryContent(entry); content != nil {
			users = append(users, extractUserRecord(content))
		}
	}
	return users, hasMore, nil
}

// GetUser fetches a single user by name.
func (s *Service) GetUser(ctx context.Context, sessionID, userName string) (UserRecord, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return UserRecord{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	resp, err := sess.client.Get(callCtx, "/repositories/"+sess.repository+"/users/"+userName, nil)
	if err != nil {
		if docclient.IsStatus(err, 404) {
			return UserRecord{}, wrapErr(ErrObjectNotFound, "User not found: %s", userName)
		}
		return UserRecord{}, backendError(err, "Failed to get user")
	}
	if resp == nil {
		return UserRecord{}, wrapErr(ErrObjectNotFound, "User not found: %s", userName)
	}
	return extractUserRecord(resp), nil
}

// ListGroups lists repository groups across all pages, optionally restricted
// to group names starting with pattern.
func (s *Service) ListGroups(ctx context.Context, sessionID, pattern string) ([]GroupRecord, bool, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return nil, false, err
	}
	groups, hasMore, err := s.collectGroups(ctx, sess, pattern)
	if err != nil {
		return nil, false, err
	}
	return groups, hasMore, nil
}

// GetGroup fetches a single group by name, including its member lists.
func (s *Service) GetGroup(ctx context.Context, sessionID, groupName string) (GroupRecord, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return GroupRecord{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	resp, err := sess.client.Get(callCtx, "/repositories/"+sess.repository+"/groups/"+groupName, nil)
	if err != nil {
		if docclient.IsStatus(err, 404) {
			return GroupRecord{}, wrapErr(ErrObjectNotFound, "Group not found: %s", groupName)
		}
		return GroupRecord{}, backendError(err, "Failed to get group")
	}
	if resp == nil {
		return GroupRecord{}, wrapErr(ErrObjectNotFound, "Group not found: %s", groupName)
	}
	return extractGroupRecord(resp), nil
}

// GroupsForUser returns the groups that list userName as a direct user
// member. The backend exposes membership only on the group side, so this
// walks the full group listing and filters on users_names.
func (s *Service) GroupsForUser(ctx context.Context, sessionID, userName string) ([]GroupRecord, bool, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return nil, false, err
	}
	groups, hasMore, err := s.collectGroups(ctx, sess, "")
	if err != nil {
		return nil, false, err
	}

	matches := make([]GroupRecord, 0)
	for _, group := range groups {
		if containsName(group.UsersNames, userName) {
			matches = append(matches, group)
		}
	}
	return matches, hasMore, nil
}

// ParentGroups returns the groups that list groupName as a direct group
// member, filtered from the full group listing on groups_names.
func (s *Service) ParentGroups(ctx context.Context, sessionID, groupName string) ([]GroupRecord, bool, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return nil, false, err
	}
	groups, hasMore, err := s.collectGroups(ctx, sess, "")
	if err != nil {
		return nil, false, err
	}

	matches := make([]GroupRecord, 0)
	for _, group := range groups {
		if containsName(group.GroupsNames, groupName) {
			matches = append(matches, group)
		}
	}
	return matches, hasMore, nil
}

func (s *Service) collectGroups(ctx context.Context, sess *session, pattern string) ([]GroupRecord, bool, error) {
	extra := url.Values{"inline": {"true"}}
	if pattern != "" {
		extra.Set("filter", "starts-with(group_name,'"+pattern+"')")
	}
	entries, hasMore, err := s.collectEntries(func(page int) (map[string]any, error) {
		return s.listPage(ctx, sess, "/repositories/"+sess.repository+"/groups", extra, page)
	})
	if err != nil {
		return nil, false, backendError(err, "Failed to list groups")
	}

	groups := make([]GroupRecord, 0, len(entries))
	for _, entry := range entries {
		if content := entryContent(entry); content != nil {
			groups = append(groups, extractGroupRecord(content))
		}
	}
	return groups, hasMore, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
