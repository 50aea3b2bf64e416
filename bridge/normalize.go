package bridge

import (
	"strconv"
	"strings"
)

// The backend answers in three structurally different JSON shapes: a single
// object (properties nested under "content" or at the top level), a bare
// list entry (title/summary/id), and a batch envelope (handled in batch.go).
// The functions here convert each shape into the gateway's stable records.

// objectProperties picks the property map out of a single-object response.
// Preference order: content.properties, then top-level properties, then the
// response itself as a last resort.
func objectProperties(resp map[string]any) map[string]any {
	source := resp
	if content, ok := resp["content"].(map[string]any); ok {
		source = content
	}
	if props, ok := source["properties"].(map[string]any); ok {
		return props
	}
	return source
}

// extractObjectRecord converts a single-object response into an ObjectRecord.
func extractObjectRecord(resp map[string]any) ObjectRecord {
	props := objectProperties(resp)
	return ObjectRecord{
		ObjectID:   stringValue(props["r_object_id"]),
		Type:       stringValue(props["r_object_type"]),
		Name:       stringValue(props["object_name"]),
		Attributes: props,
	}
}

// extractEntryRecord converts a bare list entry (cabinet and folder listings)
// into an ObjectRecord. The entry id is a URL whose last path segment is the
// object id; the summary is a "type_name object_id" pair.
func extractEntryRecord(entry map[string]any) ObjectRecord {
	id := stringValue(entry["id"])
	summary := stringValue(entry["summary"])

	objectID := lastPathSegment(id)
	typeName := ""
	if i := strings.IndexByte(summary, ' '); i > 0 {
		typeName = summary[:i]
	}

	return ObjectRecord{
		ObjectID: objectID,
		Type:     typeName,
		Name:     stringValue(entry["title"]),
	}
}

// applyPermissions reconciles the backend's permission fields into the
// record. The basic permission arrives as either a string label or a number;
// both the numeric level and the uppercase label are populated from whichever
// is present. Unrecognized values leave both fields empty.
func applyPermissions(resp map[string]any, rec *ObjectRecord) {
	level := 0
	label := ""

	switch v := resp["basic-permission"].(type) {
	case string:
		label = v
		level = labelToPermit(v)
		if level < 0 {
			level = 0
		}
	case float64:
		level = int(v)
		label = permitToLabel(level)
		if label == "UNKNOWN" {
			level = 0
			label = ""
		}
	}

	if level > 0 {
		rec.PermissionLevel = level
		if label != "" {
			rec.PermissionLabel = strings.ToUpper(label)
		} else {
			rec.PermissionLabel = permitToLabel(level)
		}
	}

	rec.ExtendedPermissions = splitExtendedPermissions(stringValue(resp["extend-permissions"]))
}

// splitExtendedPermissions splits the backend's comma-separated extended
// permission string, dropping empty segments. Always returns a non-nil slice.
func splitExtendedPermissions(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// extractUserRecord projects a user response's property map into a UserRecord.
func extractUserRecord(resp map[string]any) UserRecord {
	props := flatProperties(resp)
	return UserRecord{
		ObjectID:      stringValue(props["r_object_id"]),
		UserName:      stringValue(props["user_name"]),
		UserOSName:    stringValue(props["user_os_name"]),
		UserAddress:   stringValue(props["user_address"]),
		UserState:     scalarString(props["user_state"]),
		DefaultFolder: stringValue(props["default_folder"]),
		UserGroupName: stringValue(props["user_group_name"]),
		SuperUser:     boolValue(props["r_is_superuser"]),
	}
}

// extractGroupRecord projects a group response's property map into a
// GroupRecord. Membership lists are never nil.
func extractGroupRecord(resp map[string]any) GroupRecord {
	props := flatProperties(resp)
	return GroupRecord{
		ObjectID:    stringValue(props["r_object_id"]),
		GroupName:   stringValue(props["group_name"]),
		Description: stringValue(props["description"]),
		GroupClass:  stringValue(props["group_class"]),
		GroupAdmin:  stringValue(props["group_admin"]),
		Private:     boolValue(props["is_private"]),
		UsersNames:  stringList(props["users_names"]),
		GroupsNames: stringList(props["groups_names"]),
	}
}

// flatProperties returns the top-level "properties" map, or the response
// itself when the backend omits the nesting.
func flatProperties(resp map[string]any) map[string]any {
	if props, ok := resp["properties"].(map[string]any); ok {
		return props
	}
	return resp
}

// lastPathSegment returns the substring after the final '/' in a URL, or
// empty when the value contains no path separator.
func lastPathSegment(u string) string {
	i := strings.LastIndexByte(u, '/')
	if i < 0 || i == len(u)-1 {
		return ""
	}
	return u[i+1:]
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// scalarString renders any scalar as its string form; used for fields the
// backend returns inconsistently as string or number.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode to float64; integral values are rendered
		// without a fractional part.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

// stringList coerces a decoded JSON array into a string slice, skipping
// non-string elements. Always returns a non-nil slice.
func stringList(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
