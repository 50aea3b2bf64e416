package bridge

import (
	"context"
	"net/url"
	"strconv"
)

// pageFetcher retrieves one page of a backend list response. Page numbers
// start at 1; a nil page means the backend had nothing to return.
type pageFetcher func(page int) (map[string]any, error)

// collectEntries drives fetch in strictly increasing page order, accumulating
// the entries of every page. It stops on a nil page, on a page without a
// "next" link, or at the MaxPages hard cap, in which case hasMore is true.
// A fetch error propagates immediately; partial results are never returned
// alongside an error. Entries carrying an id already seen are dropped, so an
// overlap between pages cannot duplicate rows.
func (s *Service) collectEntries(fetch pageFetcher) (entries []map[string]any, hasMore bool, err error) {
	seen := make(map[string]struct{})

	for page := 1; page <= s.cfg.MaxPages; page++ {
		resp, err := fetch(page)
		if err != nil {
			return nil, false, err
		}
		if resp == nil {
			return entries, false, nil
		}

		for _, entry := range entryList(resp) {
			if id := stringValue(entry["id"]); id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			entries = append(entries, entry)
		}

		if !hasNextLink(resp) {
			return entries, false, nil
		}
	}

	s.logger.Warn("reached maximum page limit, truncating result",
		"max_pages", s.cfg.MaxPages, "entries", len(entries))
	return entries, true, nil
}

// listPage fetches one page of a backend listing, adding the paging
// parameters to any endpoint-specific query.
func (s *Service) listPage(ctx context.Context, sess *session, path string, extra url.Values, page int) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.listTimeout())
	defer cancel()
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("items-per-page", strconv.Itoa(s.cfg.ItemsPerPage))
	q.Set("page", strconv.Itoa(page))
	return sess.client.Get(ctx, path, q)
}

// entryList returns the "entries" array of a list response as maps.
func entryList(resp map[string]any) []map[string]any {
	raw, ok := resp["entries"].([]any)
	if !ok {
		return nil
	}
	entries := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if entry, ok := item.(map[string]any); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// hasNextLink reports whether the response's link relations include "next".
// Its absence is the natural end of a listing.
func hasNextLink(resp map[string]any) bool {
	links, ok := resp["links"].([]any)
	if !ok {
		return false
	}
	for _, item := range links {
		if link, ok := item.(map[string]any); ok && stringValue(link["rel"]) == "next" {
			return true
		}
	}
	return false
}

// entryContent returns an entry's inlined "content" object, or nil when the
// listing was not requested inline.
func entryContent(entry map[string]any) map[string]any {
	content, _ := entry["content"].(map[string]any)
	return content
}
