package bridge

import (
	"context"
	"net/url"
	"strings"

	"github.com/spiredms/docbridge/docclient"
)

// GetType fetches a type definition with its attribute schema. Attributes
// also present on the parent type are tagged inherited.
func (s *Service) GetType(ctx context.Context, sessionID, typeName string) (TypeDescriptor, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return TypeDescriptor{}, err
	}

	resp, err := s.fetchTypeRaw(ctx, sess, typeName)
	if err != nil {
		if docclient.IsStatus(err, 404) {
			return TypeDescriptor{}, wrapErr(ErrObjectNotFound, "Type not found: %s", typeName)
		}
		return TypeDescriptor{}, backendError(err, "Failed to get type")
	}
	if resp == nil {
		return TypeDescriptor{}, wrapErr(ErrObjectNotFound, "Type not found: %s", typeName)
	}

	return extractTypeDescriptor(resp, s.parentAttributeNames(ctx, sess, resp)), nil
}

// ListTypes lists type definitions across all pages, optionally restricted
// to names starting with pattern. Schemas are inlined so each entry carries
// its full attribute list.
func (s *Service) ListTypes(ctx context.Context, sessionID, pattern string) ([]TypeDescriptor, bool, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return nil, false, err
	}

	extra := url.Values{"inline": {"true"}}
	if pattern != "" {
		extra.Set("filter", "starts-with(name,'"+pattern+"')")
	}
	entries, hasMore, err := s.collectEntries(func(page int) (map[string]any, error) {
		return s.listPage(ctx, sess, "/repositories/"+sess.repository+"/types", extra, page)
	})
	if err != nil {
		return nil, false, backendError(err, "Failed to list types")
	}

	types := make([]TypeDescriptor, 0, len(entries))
	for _, entry := range entries {
		content := entryContent(entry)
		if content == nil {
			continue
		}
		types = append(types, extractTypeDescriptor(content, s.parentAttributeNames(ctx, sess, content)))
	}
	return types, hasMore, nil
}

func (s *Service) fetchTypeRaw(ctx context.Context, sess *session, typeName string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	return sess.client.Get(ctx, "/repositories/"+sess.repository+"/types/"+typeName, nil)
}

// parentAttributeNames returns the attribute names declared on a type's
// parent, fetched once per parent type name and cached process-wide. A
// missing or unreachable parent yields an empty set: the type's own schema
// is still served, just without inheritance tagging.
func (s *Service) parentAttributeNames(ctx context.Context, sess *session, typeResp map[string]any) map[string]struct{} {
	parentName := parentTypeName(typeResp)
	if parentName == "" {
		return nil
	}
	if cached, ok := s.ownAttrs.Load(parentName); ok {
		return cached.(map[string]struct{})
	}

	v, _, _ := s.sf.Do("parent:"+parentName, func() (any, error) {
		if cached, ok := s.ownAttrs.Load(parentName); ok {
			return cached, nil
		}
		resp, err := s.fetchTypeRaw(ctx, sess, parentName)
		if err != nil || resp == nil {
			s.logger.Debug("could not fetch parent type", "type", parentName, "error", err)
			return map[string]struct{}(nil), nil
		}
		names := make(map[string]struct{})
		for _, prop := range propertyList(resp) {
			if name := stringValue(prop["name"]); name != "" {
				names[name] = struct{}{}
			}
		}
		s.ownAttrs.Store(parentName, names)
		return names, nil
	})
	return v.(map[string]struct{})
}

// parentTypeName extracts the parent type's name from the "parent" link URL.
func parentTypeName(typeResp map[string]any) string {
	return lastPathSegment(stringValue(typeResp["parent"]))
}

func propertyList(resp map[string]any) []map[string]any {
	raw, ok := resp["properties"].([]any)
	if !ok {
		return nil
	}
	props := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if prop, ok := item.(map[string]any); ok {
			props = append(props, prop)
		}
	}
	return props
}

// extractTypeDescriptor maps a raw type response to a TypeDescriptor. The
// backend reports the super type as a link URL and attribute schemas under
// "properties"; a type is a system type when its category is "standard" or
// its name carries a dm_/dmi_ prefix.
func extractTypeDescriptor(resp map[string]any, inherited map[string]struct{}) TypeDescriptor {
	name := stringValue(resp["name"])
	category := stringValue(resp["category"])

	desc := TypeDescriptor{
		Name:      name,
		SuperType: parentTypeName(resp),
		Category:  category,
		SystemType: category == "standard" ||
			strings.HasPrefix(name, "dm_") || strings.HasPrefix(name, "dmi_"),
		Attributes: []AttributeDescriptor{},
	}

	for _, prop := range propertyList(resp) {
		attrName := stringValue(prop["name"])
		length := 0
		if f, ok := prop["length"].(float64); ok {
			length = int(f)
		}
		_, isInherited := inherited[attrName]
		desc.Attributes = append(desc.Attributes, AttributeDescriptor{
			Name:      attrName,
			DataType:  stringValue(prop["type"]),
			Length:    length,
			Repeating: prop["repeating"] == true,
			Required:  prop["notnull"] == true,
			Inherited: isInherited,
		})
	}
	return desc
}
