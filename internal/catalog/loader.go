package catalog

import (
	"os"

	"gopkg.in/yaml.v3"

	"planql/internal/domain"
)

// DefaultFuzzyTolerance is the normalized edit-distance threshold used when
// the catalog file does not set one.
const DefaultFuzzyTolerance = 0.34

// file mirrors the on-disk YAML layout.
type file struct {
	DefaultTable   string            `yaml:"default_table"`
	FuzzyTolerance *float64          `yaml:"fuzzy_tolerance"`
	Tables         []Table           `yaml:"tables"`
	Synonyms       map[string]string `yaml:"synonyms"`
}

// LoadFile reads and validates a catalog definition from a YAML file.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ErrConfiguration("read catalog file: %v", err)
	}
	return Parse(data)
}

// Parse builds a Snapshot from raw catalog YAML, failing with a
// ConfigurationError on any structural problem.
func Parse(data []byte) (*Snapshot, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, domain.ErrConfiguration("parse catalog yaml: %v", err)
	}

	if len(f.Tables) == 0 {
		return nil, domain.ErrConfiguration("catalog defines no tables")
	}

	snap := &Snapshot{
		defaultTable: stripQuotes(f.DefaultTable),
		tables:       make([]Table, 0, len(f.Tables)),
		tableIndex:   make(map[string]int, len(f.Tables)),
		synonyms:     make(map[string]string, len(f.Synonyms)),
		tolerance:    DefaultFuzzyTolerance,
	}
	if f.FuzzyTolerance != nil {
		if *f.FuzzyTolerance < 0 || *f.FuzzyTolerance > 1 {
			return nil, domain.ErrConfiguration("fuzzy_tolerance %v out of range [0,1]", *f.FuzzyTolerance)
		}
		snap.tolerance = *f.FuzzyTolerance
	}

	for _, t := range f.Tables {
		name := stripQuotes(t.Name)
		if name == "" {
			return nil, domain.ErrConfiguration("catalog table with empty name")
		}
		if _, dup := snap.tableIndex[name]; dup {
			return nil, domain.ErrConfiguration("duplicate catalog table %q", name)
		}
		if len(t.Columns) == 0 {
			return nil, domain.ErrConfiguration("catalog table %q defines no columns", name)
		}
		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if c == "" {
				return nil, domain.ErrConfiguration("catalog table %q has an empty column name", name)
			}
			if seen[c] {
				return nil, domain.ErrConfiguration("catalog table %q declares column %q twice", name, c)
			}
			seen[c] = true
		}
		snap.tableIndex[name] = len(snap.tables)
		snap.tables = append(snap.tables, Table{Name: name, Columns: append([]string(nil), t.Columns...)})
	}

	if snap.defaultTable != "" {
		if _, ok := snap.tableIndex[snap.defaultTable]; !ok {
			return nil, domain.ErrConfiguration("default_table %q is not in the table allowlist", snap.defaultTable)
		}
	}

	for syn, canonical := range f.Synonyms {
		if canonical == "" {
			return nil, domain.ErrConfiguration("synonym %q maps to an empty column name", syn)
		}
		key := normalize(syn)
		if key == "" {
			return nil, domain.ErrConfiguration("synonym %q normalizes to an empty key", syn)
		}
		if prev, dup := snap.synonyms[key]; dup && prev != canonical {
			return nil, domain.ErrConfiguration("synonym %q maps to both %q and %q", syn, prev, canonical)
		}
		snap.synonyms[key] = canonical
	}

	return snap, nil
}
