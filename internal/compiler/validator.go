package compiler

import (
	"regexp"
	"strings"

	"planql/internal/domain"
)

// forbiddenKeywordRe matches DML/DDL and transaction-control keywords as
// standalone tokens anywhere in the assembled text.
var forbiddenKeywordRe = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|MERGE|DROP|ALTER|TRUNCATE|CREATE|GRANT|REVOKE|BEGIN|COMMIT|ROLLBACK)\b`)

var selectStarRe = regexp.MustCompile(`(?i)SELECT\s+\*`)

// validate enforces the hard safety rules on the assembled query and, on
// success, renders the final Result. Violations are rejected, never
// auto-fixed; no SQL text is ever returned for an unsafe query.
func validate(q *query) (*domain.Result, error) {
	if len(q.dims) == 0 && len(q.metrics) == 0 {
		return nil, domain.ErrUnsafeStatement("nothing to select: plan has no dimensions and no metrics")
	}
	for _, m := range q.metrics {
		if strings.TrimSpace(m.Expr) == "*" || strings.HasPrefix(strings.TrimSpace(m.Expr), "*") {
			return nil, domain.ErrUnsafeStatement("wildcard select is not allowed; enumerate columns explicitly")
		}
	}

	sql := q.render()

	// The builder's grammar emits exactly one statement; a separator can
	// only arrive through passthrough expression text.
	if strings.Contains(sql, ";") {
		return nil, domain.ErrUnsafeStatement("statement separator detected in assembled query")
	}
	if selectStarRe.MatchString(sql) {
		return nil, domain.ErrUnsafeStatement("wildcard select is not allowed; enumerate columns explicitly")
	}
	if kw := forbiddenKeywordRe.FindString(sql); kw != "" {
		return nil, domain.ErrUnsafeStatement("forbidden keyword %s in assembled query", strings.ToUpper(kw))
	}

	metricOutputs := make([]string, len(q.metrics))
	for i, m := range q.metrics {
		metricOutputs[i] = m.Output()
	}

	return &domain.Result{
		SQL:       sql,
		UsedTable: q.table,
		Dims:      append([]string(nil), q.dims...),
		Metrics:   metricOutputs,
		OrderBy:   append([]string(nil), q.orderBy...),
		Limit:     q.limit,
		Notes:     append([]string(nil), q.notes...),
	}, nil
}
