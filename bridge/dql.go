package bridge

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spiredms/docbridge/docclient"
)

// availabilityProbe is a minimal query every repository can answer. It only
// tells us whether the backend executes DQL at all.
const availabilityProbe = "SELECT r_object_id FROM dm_docbase_config"

var aggregateFunctions = []string{"COUNT(", "SUM(", "AVG(", "MIN(", "MAX("}

// isAggregateQuery reports whether a DQL statement computes summary values
// without per-row object identity. The backend's result model materializes
// every row as an object view, which fails for such projections. GROUP BY is
// always aggregate; a projection using an aggregate function is aggregate
// unless it also selects r_object_id.
func isAggregateQuery(dql string) bool {
	upper := strings.ToUpper(dql)
	if strings.Contains(upper, "GROUP BY") {
		return true
	}
	from := strings.Index(upper, " FROM ")
	if !strings.HasPrefix(strings.TrimSpace(upper), "SELECT") || from < 0 {
		return false
	}
	projection := upper[:from]
	for _, fn := range aggregateFunctions {
		if strings.Contains(projection, fn) {
			return !strings.Contains(projection, "R_OBJECT_ID")
		}
	}
	return false
}

// ExecuteQuery runs a DQL statement on the session's repository, walking all
// result pages and aggregating rows into one QueryResult. Aggregate queries
// are rejected before touching the backend; availability is probed once per
// session and cached.
func (s *Service) ExecuteQuery(ctx context.Context, sessionID, dql string) (QueryResult, error) {
	dql = strings.TrimSpace(dql)
	if dql == "" {
		return QueryResult{}, wrapErr(ErrDQL, "DQL query must not be empty")
	}
	if isAggregateQuery(dql) {
		return QueryResult{}, errAggregateQuery(dql)
	}

	sess, err := s.reg.get(sessionID)
	if err != nil {
		return QueryResult{}, err
	}
	if err := s.ensureDQLAvailable(ctx, sess); err != nil {
		return QueryResult{}, err
	}

	start := time.Now()
	entries, hasMore, err := s.collectEntries(func(page int) (map[string]any, error) {
		return s.queryPage(ctx, sess, dql, page)
	})
	if err != nil {
		return QueryResult{}, s.classifyQueryError(sess, dql, err)
	}

	rows := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		content := entryContent(entry)
		if content == nil {
			continue
		}
		if props, ok := content["properties"].(map[string]any); ok {
			rows = append(rows, props)
		}
	}

	result := QueryResult{
		Columns:         inferColumns(rows),
		Rows:            rows,
		RowCount:        len(rows),
		HasMore:         hasMore,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
	s.logger.Info("dql query executed",
		"session_id", sessionID, "rows", result.RowCount,
		"has_more", result.HasMore, "elapsed_ms", result.ExecutionTimeMs)
	return result, nil
}

func (s *Service) queryPage(ctx context.Context, sess *session, dql string, page int) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.listTimeout())
	defer cancel()
	q := url.Values{
		"dql":            {dql},
		"items-per-page": {strconv.Itoa(s.cfg.ItemsPerPage)},
		"page":           {strconv.Itoa(page)},
	}
	return sess.client.Get(ctx, "/repositories/"+sess.repository, q)
}

// classifyQueryError maps a raw query failure to a bridge error. Some
// aggregate queries slip past the static classifier and only fail when the
// backend tries to materialize the result rows, so those failure signatures
// are recognized retroactively.
func (s *Service) classifyQueryError(sess *session, dql string, err error) error {
	var se *docclient.StatusError
	if !errors.As(err, &se) {
		return wrapErr(ErrConnection, "Cannot connect to REST endpoint: %s", err)
	}
	body := strings.ToLower(se.Body)
	switch {
	case strings.Contains(body, "queryresultitemview"),
		strings.Contains(body, "failed to instantiate") && strings.Contains(body, "id=null"):
		return errAggregateQuery(dql)
	case bodyIndicatesDQLDisabled(body):
		sess.setDQLAvailable(false)
		return errDQLNotAvailable("")
	default:
		return wrapErr(ErrDQL, "DQL execution failed: %s", se.Body)
	}
}

func bodyIndicatesDQLDisabled(lowerBody string) bool {
	return strings.Contains(lowerBody, "dql") &&
		(strings.Contains(lowerBody, "disabled") || strings.Contains(lowerBody, "not supported"))
}

// ensureDQLAvailable probes the repository once per session. Any probe
// failure means DQL cannot be used right now; only the explicit disabled
// signature caches the verdict, so a transient failure is re-probed on the
// next call.
func (s *Service) ensureDQLAvailable(ctx context.Context, sess *session) error {
	checked, available := sess.dqlState()
	if checked {
		if !available {
			return errDQLNotAvailable("")
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	q := url.Values{
		"dql":            {availabilityProbe},
		"items-per-page": {"1"},
	}
	_, err := sess.client.Get(ctx, "/repositories/"+sess.repository, q)
	if err == nil {
		sess.setDQLAvailable(true)
		return nil
	}

	var se *docclient.StatusError
	if errors.As(err, &se) && bodyIndicatesDQLDisabled(strings.ToLower(se.Body)) {
		sess.setDQLAvailable(false)
		s.logger.Warn("dql disabled on backend", "repository", sess.repository)
		return errDQLNotAvailable("")
	}
	s.logger.Warn("dql availability probe failed",
		"repository", sess.repository, "error", err)
	return errDQLNotAvailable("")
}

// IsDQLAvailable reports whether the session's repository accepts DQL,
// probing the backend on first use.
func (s *Service) IsDQLAvailable(ctx context.Context, sessionID string) (bool, error) {
	sess, err := s.reg.get(sessionID)
	if err != nil {
		return false, err
	}
	err = s.ensureDQLAvailable(ctx, sess)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrDQLNotAvailable):
		return false, nil
	default:
		return false, err
	}
}

// inferColumns derives column descriptors from the first row. The backend
// reports no result schema, so types are inferred from the JSON values:
// whole numbers are integers, lists mark a column repeating.
func inferColumns(rows []map[string]any) []ColumnDescriptor {
	if len(rows) == 0 {
		return []ColumnDescriptor{}
	}
	first := rows[0]
	names := make([]string, 0, len(first))
	for name := range first {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]ColumnDescriptor, 0, len(names))
	for _, name := range names {
		value := first[name]
		col := ColumnDescriptor{Name: name}
		if list, ok := value.([]any); ok {
			col.Repeating = true
			if len(list) > 0 {
				value = list[0]
			} else {
				value = nil
			}
		}
		col.Type = inferColumnType(value)
		if s, ok := value.(string); ok {
			col.Length = len(s)
		}
		columns = append(columns, col)
	}
	return columns
}

func inferColumnType(value any) string {
	switch v := value.(type) {
	case bool:
		return "BOOLEAN"
	case float64:
		if v == float64(int64(v)) {
			return "INTEGER"
		}
		return "DOUBLE"
	default:
		return "STRING"
	}
}
