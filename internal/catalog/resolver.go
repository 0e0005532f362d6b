package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"planql/internal/domain"
)

// ResolveTable picks the table a plan compiles against: the first candidate
// present in the allowlist wins. When no candidate matches (or the list is
// empty) the configured default table is used; a non-empty candidate list
// with no match and no default fails with UnknownTableError.
func (s *Snapshot) ResolveTable(planTables []string) (string, error) {
	for _, t := range planTables {
		name := stripQuotes(t)
		if name == "" || strings.Contains(name, "<<") || strings.Contains(name, ">>") {
			continue
		}
		if _, ok := s.tableIndex[name]; ok {
			return name, nil
		}
	}
	if s.defaultTable != "" {
		return s.defaultTable, nil
	}
	if len(planTables) == 0 {
		return "", &domain.UnknownTableError{}
	}
	return "", &domain.UnknownTableError{Tables: planTables}
}

// ResolveDimension maps a plan dimension to a canonical column of tableID.
// Match tiers, strongest first: exact, case-insensitive, synonym, fuzzy.
// Soft corrections return a non-empty note; no match at all fails with
// UnknownColumnError carrying the closest rejected candidates.
func (s *Snapshot) ResolveDimension(name, tableID string) (string, string, error) {
	cols, ok := s.Columns(tableID)
	if !ok {
		return "", "", &domain.UnknownTableError{Tables: []string{tableID}}
	}

	for _, c := range cols {
		if c == name {
			return c, "", nil
		}
	}

	for _, c := range cols {
		if strings.EqualFold(c, name) {
			return c, fmt.Sprintf("dimension %q matched column %q case-insensitively", name, c), nil
		}
	}

	if canonical, ok := s.synonyms[normalize(name)]; ok {
		for _, c := range cols {
			if strings.EqualFold(c, canonical) {
				return c, fmt.Sprintf("dimension %q mapped to synonym %q", name, c), nil
			}
		}
	}

	if match, dist, ok := closestWithin(name, cols, s.tolerance); ok {
		note := fmt.Sprintf("dimension %q fuzzy-corrected to %q (confidence %.2f)", name, match, 1-dist)
		return match, note, nil
	}

	return "", "", &domain.UnknownColumnError{
		Column:     name,
		Table:      tableID,
		Candidates: ClosestCandidates(name, cols, 3),
	}
}

// ResolveColumnStrict maps a column reference inside an already-concrete
// SQL fragment (metric expressions, filter keys). Only exact and
// case-insensitive matches apply: fuzzy-correcting user-supplied SQL would
// silently change its meaning.
func (s *Snapshot) ResolveColumnStrict(name, tableID string) (string, bool) {
	cols, ok := s.Columns(tableID)
	if !ok {
		return "", false
	}
	for _, c := range cols {
		if c == name {
			return c, true
		}
	}
	for _, c := range cols {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// closestWithin returns the candidate with the smallest normalized edit
// distance not exceeding tolerance. Ties keep the earliest candidate.
func closestWithin(name string, candidates []string, tolerance float64) (string, float64, bool) {
	best := ""
	bestDist := tolerance + 1
	for _, c := range candidates {
		d := normalizedDistance(name, c)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	if best == "" || bestDist > tolerance {
		return "", 0, false
	}
	return best, bestDist, true
}

// ClosestCandidates ranks candidates by normalized edit distance to name
// and returns up to n of them, for error messages and clarification
// round-trips.
func ClosestCandidates(name string, candidates []string, n int) []string {
	type scored struct {
		name string
		dist float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{name: c, dist: normalizedDistance(name, c)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].name
	}
	return out
}

// normalizedDistance is the case-insensitive Levenshtein distance divided
// by the longer input length, so 0 is identical and 1 is fully distinct.
func normalizedDistance(a, b string) float64 {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	n := len([]rune(la))
	if m := len([]rune(lb)); m > n {
		n = m
	}
	if n == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(la, lb)) / float64(n)
}
