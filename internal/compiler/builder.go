package compiler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"planql/internal/catalog"
	"planql/internal/domain"
	"planql/internal/metricdef"
	"planql/internal/sqltext"
	"planql/internal/temporal"
)

// query is the builder's working state for one compilation: everything it
// holds was produced by the catalog resolver, the metric registry, or the
// temporal expander — no unvalidated plan text reaches it directly.
type query struct {
	table   string // quoted FQN
	dims    []string
	metrics []metricdef.Resolved
	where   []string
	orderBy []string
	limit   int
	notes   []string
}

func newQuery(quotedTable string, defaultLimit int) *query {
	return &query{table: quotedTable, limit: defaultLimit}
}

func (q *query) addDimension(canonical, note string) {
	q.dims = append(q.dims, canonical)
	if note != "" {
		q.notes = append(q.notes, note)
	}
}

func (q *query) addMetric(m metricdef.Resolved) {
	q.metrics = append(q.metrics, m)
}

// outputs returns the names ORDER BY may target: resolved dimensions plus
// metric aliases.
func (q *query) outputs() []string {
	out := append([]string(nil), q.dims...)
	for _, m := range q.metrics {
		out = append(out, m.Output())
	}
	return out
}

// applyFilters expands the MES filter and the generic eq/in/like/ilike and
// raw where filters into WHERE conjuncts. Filter keys other than these are
// a collaborator concern and pass through untouched.
func (q *query) applyFilters(filters map[string]any, snap *catalog.Snapshot, tableID string, now time.Time) error {
	if len(filters) == 0 {
		return nil
	}

	if mes, ok := filters["MES"]; ok && mes != nil {
		expr, err := temporal.Expand(mes, now, q.table)
		if err != nil {
			return err
		}
		q.where = append(q.where, expr)
	}

	if raw, ok := filters["where"].(string); ok && strings.TrimSpace(raw) != "" {
		q.where = append(q.where, "("+strings.TrimSpace(raw)+")")
	}

	q.applyColumnFilter(filters["eq"], snap, tableID, func(col string, v any) string {
		return fmt.Sprintf("%s = %s", sqltext.QuoteIdent(col), sqltext.Literal(v))
	})
	q.applyColumnFilter(filters["in"], snap, tableID, func(col string, v any) string {
		vals, ok := v.([]any)
		if !ok || len(vals) == 0 {
			return ""
		}
		parts := make([]string, len(vals))
		for i, item := range vals {
			parts[i] = sqltext.Literal(item)
		}
		return fmt.Sprintf("%s IN (%s)", sqltext.QuoteIdent(col), strings.Join(parts, ", "))
	})
	q.applyColumnFilter(filters["like"], snap, tableID, func(col string, v any) string {
		return fmt.Sprintf("%s LIKE %s", sqltext.QuoteIdent(col), sqltext.Literal(v))
	})
	q.applyColumnFilter(filters["ilike"], snap, tableID, func(col string, v any) string {
		return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s)", sqltext.QuoteIdent(col), sqltext.Literal(v))
	})

	return nil
}

// applyColumnFilter renders one conjunct per filter entry whose column key
// resolves against the schema. Unknown columns are skipped, matching the
// loose contract planners rely on. Keys are sorted so compilation is
// deterministic.
func (q *query) applyColumnFilter(spec any, snap *catalog.Snapshot, tableID string, render func(col string, v any) string) {
	m, ok := spec.(map[string]any)
	if !ok {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		canonical, ok := snap.ResolveColumnStrict(k, tableID)
		if !ok {
			continue
		}
		if clause := render(canonical, m[k]); clause != "" {
			q.where = append(q.where, clause)
		}
	}
}

// applyOrdering validates each ORDER BY target against the output set.
// A target matching neither a dimension nor a metric alias is a hard
// error, never silently dropped.
func (q *query) applyOrdering(ordering []domain.Ordering) error {
	allowed := q.outputs()
	for _, o := range ordering {
		by := strings.TrimSpace(o.By)
		if by == "" {
			continue
		}
		matched := ""
		for _, name := range allowed {
			if strings.EqualFold(name, by) {
				matched = name
				break
			}
		}
		if matched == "" {
			return &domain.InvalidOrderByError{By: by, Allowed: allowed}
		}
		q.orderBy = append(q.orderBy, matched+" "+o.Direction())
	}
	return nil
}

// render produces the final SQL text. Empty WHERE/GROUP BY/ORDER BY
// clauses are omitted entirely, never rendered empty.
func (q *query) render() string {
	selectParts := make([]string, 0, len(q.dims)+len(q.metrics))
	for _, d := range q.dims {
		selectParts = append(selectParts, sqltext.QuoteIdent(d))
	}
	for _, m := range q.metrics {
		selectParts = append(selectParts, m.Fragment())
	}

	var b strings.Builder
	b.WriteString("SELECT\n  ")
	b.WriteString(strings.Join(selectParts, ",\n  "))
	b.WriteString("\nFROM ")
	b.WriteString(q.table)

	if len(q.where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(q.where, " AND "))
	}
	if len(q.dims) > 0 {
		quoted := make([]string, len(q.dims))
		for i, d := range q.dims {
			quoted[i] = sqltext.QuoteIdent(d)
		}
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(quoted, ", "))
	}
	if len(q.orderBy) > 0 {
		b.WriteString("\nORDER BY ")
		b.WriteString(strings.Join(q.orderBy, ", "))
	}
	fmt.Fprintf(&b, "\nLIMIT %d", q.limit)

	return b.String()
}
