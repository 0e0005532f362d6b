// Package temporal expands MES (YYYYMM) filter specifications into SQL
// boolean expressions. The evaluation clock is an explicit parameter so
// month-boundary behavior is deterministic under test.
package temporal

import (
	"fmt"
	"strings"
	"time"

	"planql/internal/domain"
)

const (
	minYYYYMM = 190001
	maxYYYYMM = 999912
)

// Expand turns the value of a plan's MES filter into a boolean expression
// over CAST(MES AS INT64). Supported shapes:
//
//   - shorthand strings: LAST_1M, LAST_3M, LAST_12M, YTD, MTD, LAST_AVAILABLE
//   - {"type": "range_ym", "from": YYYYMM, "to": YYYYMM}
//   - {"type": "year", "year": <int> | "this"}
//
// LAST_AVAILABLE compares against the table's own maximum month, so the
// expansion needs the quoted table identifier. Shorthand windows are
// inclusive of the current month. Unsupported shapes fail with
// InvalidFilterError.
func Expand(spec any, now time.Time, quotedTable string) (string, error) {
	switch f := spec.(type) {
	case string:
		return expandShorthand(f, now, quotedTable)
	case map[string]any:
		return expandObject(f, now)
	default:
		return "", domain.ErrInvalidFilter("unsupported MES filter shape %T", spec)
	}
}

func expandShorthand(code string, now time.Time, quotedTable string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "LAST_1M":
		return betweenMonths(addMonths(now, -1), now), nil
	case "LAST_3M":
		return betweenMonths(addMonths(now, -3), now), nil
	case "LAST_12M":
		return betweenMonths(addMonths(now, -12), now), nil
	case "YTD":
		return between(now.Year()*100+1, yyyymm(now)), nil
	case "MTD":
		// MES is month-grained: MTD collapses to the current month.
		return between(yyyymm(now), yyyymm(now)), nil
	case "LAST_AVAILABLE":
		return fmt.Sprintf("CAST(MES AS INT64) = (SELECT MAX(CAST(MES AS INT64)) FROM %s)", quotedTable), nil
	default:
		return "", domain.ErrInvalidFilter("unsupported MES shorthand %q", code)
	}
}

func expandObject(f map[string]any, now time.Time) (string, error) {
	typ, _ := f["type"].(string)

	switch typ {
	case "year", "between_year":
		y, err := resolveYear(f["year"], now)
		if err != nil {
			return "", err
		}
		return between(y*100+1, y*100+12), nil
	case "range_ym", "":
		// Untyped objects with from/to bounds are accepted as ranges.
		from, okFrom := f["from"]
		to, okTo := f["to"]
		if !okFrom || !okTo {
			if typ == "" {
				return "", domain.ErrInvalidFilter("unsupported MES filter object %v", f)
			}
			return "", domain.ErrInvalidFilter("range_ym filter requires both from and to")
		}
		lo, err := yyyymmValue(from)
		if err != nil {
			return "", err
		}
		hi, err := yyyymmValue(to)
		if err != nil {
			return "", err
		}
		if lo > hi {
			return "", domain.ErrInvalidFilter("MES range from %d exceeds to %d", lo, hi)
		}
		return between(lo, hi), nil
	default:
		return "", domain.ErrInvalidFilter("unsupported MES filter type %q", typ)
	}
}

// resolveYear accepts a literal year or the token "this", resolved against
// the injected clock.
func resolveYear(v any, now time.Time) (int, error) {
	switch y := v.(type) {
	case string:
		if strings.EqualFold(strings.TrimSpace(y), "this") {
			return now.Year(), nil
		}
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(y), "%d", &n); err == nil {
			return n, nil
		}
		return 0, domain.ErrInvalidFilter("invalid MES year %q", y)
	case int:
		return y, nil
	case float64:
		return int(y), nil
	default:
		return 0, domain.ErrInvalidFilter("invalid MES year value %v", v)
	}
}

// yyyymmValue parses and range-checks a YYYYMM bound.
func yyyymmValue(v any) (int, error) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case float64:
		n = int(x)
	case string:
		if _, err := fmt.Sscanf(strings.TrimSpace(x), "%d", &n); err != nil {
			return 0, domain.ErrInvalidFilter("invalid MES bound %q", x)
		}
	default:
		return 0, domain.ErrInvalidFilter("invalid MES bound %v", v)
	}
	if n < minYYYYMM || n > maxYYYYMM {
		return 0, domain.ErrInvalidFilter("MES bound %d outside [%d, %d]", n, minYYYYMM, maxYYYYMM)
	}
	if m := n % 100; m < 1 || m > 12 {
		return 0, domain.ErrInvalidFilter("MES bound %d has invalid month %02d", n, m)
	}
	return n, nil
}

// addMonths shifts a time by calendar months, normalized to the first of
// the month so year boundaries roll over correctly.
func addMonths(t time.Time, months int) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
}

func yyyymm(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

func betweenMonths(from, to time.Time) string {
	return between(yyyymm(from), yyyymm(to))
}

func between(from, to int) string {
	return fmt.Sprintf("CAST(MES AS INT64) BETWEEN %d AND %d", from, to)
}
