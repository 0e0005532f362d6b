// Package sqltext provides the low-level text utilities the compiler builds
// SQL from: identifier quoting, literal rendering, and lightweight scanning
// of user-supplied expressions. It has no dependencies on the rest of the
// module so both the metric registry and the statement builder can use it.
package sqltext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsBareIdentifier reports whether s is a single unquoted SQL identifier.
func IsBareIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// QuoteIdent wraps a simple identifier in BigQuery backticks. Already
// quoted or non-simple inputs are returned unchanged.
func QuoteIdent(name string) string {
	if name == "" {
		return name
	}
	if strings.HasPrefix(name, "`") && strings.HasSuffix(name, "`") {
		return name
	}
	if identRe.MatchString(name) {
		return "`" + name + "`"
	}
	return name
}

// QuoteTable backtick-quotes a fully-qualified project.dataset.table name.
func QuoteTable(fqn string) string {
	s := strings.TrimSpace(fqn)
	if strings.HasPrefix(s, "`") && strings.HasSuffix(s, "`") {
		return s
	}
	if len(strings.Split(s, ".")) == 3 {
		return "`" + s + "`"
	}
	return s
}

// Literal renders a filter value as a SQL literal. Strings are single-quoted
// with embedded quotes doubled; nil becomes NULL.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		// JSON numbers decode as float64; 'f' keeps big integral values
		// out of scientific notation.
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		s := fmt.Sprintf("%v", x)
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
}

var (
	trailingAliasRe = regexp.MustCompile(`(?i)\bAS\s+([A-Za-z_][A-Za-z0-9_]*)\s*$`)
	identTokenRe    = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// TrailingAlias extracts the alias from a trailing "AS <alias>" clause.
func TrailingAlias(expr string) (string, bool) {
	m := trailingAliasRe.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// exprKeywords are SQL function and keyword tokens skipped when scanning an
// expression for referenced columns.
var exprKeywords = map[string]bool{
	"SUM": true, "AVG": true, "COUNT": true, "MIN": true, "MAX": true,
	"AS": true, "CAST": true, "SAFE_CAST": true, "DISTINCT": true,
	"CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true,
	"NULL": true, "IF": true, "IFNULL": true, "NULLIF": true,
	"AND": true, "OR": true, "NOT": true, "IN": true, "IS": true,
	"BETWEEN": true, "LIKE": true,
	"DATE": true, "DATETIME": true, "TIMESTAMP": true,
	"EXTRACT": true, "DATE_TRUNC": true, "DATE_SUB": true, "DATE_ADD": true,
	"FORMAT_DATE": true, "CURRENT_DATE": true, "INTERVAL": true,
	"COALESCE": true, "ROUND": true, "FLOOR": true, "CEIL": true,
	"POWER": true, "ABS": true, "SAFE_DIVIDE": true, "LOWER": true, "UPPER": true,
	"TRUE": true, "FALSE": true,
	"OVER": true, "PARTITION": true, "BY": true, "ORDER": true,
	"INT64": true, "FLOAT64": true, "NUMERIC": true, "STRING": true, "BOOL": true,
	"MONTH": true, "YEAR": true, "DAY": true,
}

// ReferencedColumns returns the bare column identifiers an expression
// references, excluding any trailing alias segment and SQL keyword or
// function tokens. Only a trailing "AS <alias>" is cut away; an inner AS
// (a CAST type clause) leaves the rest of the expression scanned. Order
// follows first appearance; duplicates collapse.
func ReferencedColumns(expr string) []string {
	base := expr
	if loc := trailingAliasRe.FindStringIndex(expr); loc != nil {
		base = expr[:loc[0]]
	}
	seen := map[string]bool{}
	var out []string
	for _, tok := range identTokenRe.FindAllString(base, -1) {
		up := strings.ToUpper(tok)
		if exprKeywords[up] || seen[up] {
			continue
		}
		seen[up] = true
		out = append(out, tok)
	}
	return out
}
