// Package catalog holds the read-only reference data the compiler resolves
// names against: allowed tables, their columns, and the synonym index.
//
// A Snapshot is immutable after construction. The Store swaps whole
// snapshots atomically so concurrent compilations never observe a partial
// reload.
package catalog

import (
	"regexp"
	"strings"
)

// Table describes one allowed fully-qualified table and its columns, in
// declaration order. Declaration order is the tie-break within a match tier.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

// Snapshot is one immutable view of the catalog.
type Snapshot struct {
	defaultTable string
	tables       []Table
	tableIndex   map[string]int    // stripped table name -> tables index
	synonyms     map[string]string // normalized synonym -> canonical column
	tolerance    float64           // normalized edit-distance acceptance threshold
}

// DefaultTable returns the configured fallback table identifier, or "".
func (s *Snapshot) DefaultTable() string { return s.defaultTable }

// Tables returns the allowed tables in declaration order.
func (s *Snapshot) Tables() []Table { return s.tables }

// Columns returns the declared columns of a table. The second result is
// false when the table is not in the allowlist.
func (s *Snapshot) Columns(tableID string) ([]string, bool) {
	i, ok := s.tableIndex[stripQuotes(tableID)]
	if !ok {
		return nil, false
	}
	return s.tables[i].Columns, true
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalize folds a user-supplied term for synonym lookup: lowercase with
// everything but letters and digits removed, so "Sector Cov19",
// "sector_cov19" and "SECTOR-COV19" all collide.
func normalize(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
}

// stripQuotes removes surrounding backticks and whitespace from a table
// identifier.
func stripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), "`")
}
