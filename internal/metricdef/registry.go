// Package metricdef loads named metric definitions and resolves plan metric
// references (registered names, raw SQL expressions, or bare columns) into
// SELECT-list fragments.
package metricdef

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"planql/internal/catalog"
	"planql/internal/domain"
	"planql/internal/sqltext"
)

// Definition is one configured metric: a SQL expression template plus the
// alias it is exposed under.
type Definition struct {
	Expr        string `yaml:"expr"`
	Alias       string `yaml:"alias"`
	Description string `yaml:"description"`
}

// Registry holds the loaded metric definitions. Immutable after load.
type Registry struct {
	defs  map[string]Definition
	names []string // sorted, for listings
}

type file struct {
	Metrics map[string]Definition `yaml:"metrics"`
}

// LoadFile reads metric definitions from a YAML file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ErrConfiguration("read metrics file: %v", err)
	}
	return Parse(data)
}

// Parse builds a Registry from raw metrics YAML. Aliases default to the
// metric name; two metrics resolving to the same alias is a configuration
// error, reported distinctly from an unknown metric at resolve time.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, domain.ErrConfiguration("parse metrics yaml: %v", err)
	}

	r := &Registry{defs: make(map[string]Definition, len(f.Metrics))}
	byAlias := make(map[string]string, len(f.Metrics))
	for name, def := range f.Metrics {
		if strings.TrimSpace(name) == "" {
			return nil, domain.ErrConfiguration("metric with empty name")
		}
		if strings.TrimSpace(def.Expr) == "" {
			return nil, domain.ErrConfiguration("metric %q has an empty expression", name)
		}
		if def.Alias == "" {
			if alias, ok := sqltext.TrailingAlias(def.Expr); ok {
				def.Alias = alias
			} else {
				def.Alias = name
			}
		} else if embedded, ok := sqltext.TrailingAlias(def.Expr); ok && !strings.EqualFold(embedded, def.Alias) {
			return nil, domain.ErrConfiguration(
				"metric %q alias %q conflicts with the expression's own alias %q", name, def.Alias, embedded)
		}
		if prev, dup := byAlias[strings.ToUpper(def.Alias)]; dup {
			return nil, domain.ErrConfiguration("metrics %q and %q collide on alias %q", prev, name, def.Alias)
		}
		byAlias[strings.ToUpper(def.Alias)] = name
		r.defs[name] = def
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Names returns the registered metric names, sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Lookup returns the definition for a registered metric name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Resolved is a metric reference turned into a SELECT-list fragment.
// Alias is empty when the expression carries no alias of its own.
type Resolved struct {
	Expr  string
	Alias string
}

// Fragment renders the SELECT-list text for the metric. The alias is
// appended unless the expression already ends in it; an inner AS, such as
// the type clause of CAST, never counts as an alias.
func (m Resolved) Fragment() string {
	if m.Alias == "" {
		return m.Expr
	}
	if alias, ok := sqltext.TrailingAlias(m.Expr); ok && strings.EqualFold(alias, m.Alias) {
		return m.Expr
	}
	return m.Expr + " AS " + m.Alias
}

// Output returns the name the metric is visible under in the result set:
// its alias when present, otherwise the raw expression.
func (m Resolved) Output() string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Expr
}

// Resolve maps one plan metric reference against the registry and the
// resolved table's schema.
//
// A registered name resolves to its configured expression and alias with
// no note. Anything else is treated as a literal SQL expression: a bare
// identifier becomes a quoted passthrough column, and every bare column
// referenced by the expression must exist in the schema exactly or
// case-insensitively — fuzzy-correcting inside concrete SQL is disallowed.
func (r *Registry) Resolve(ref string, snap *catalog.Snapshot, tableID string) (Resolved, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resolved{}, &domain.UnresolvedMetricError{Metric: ref, Column: ref}
	}

	if def, ok := r.defs[ref]; ok {
		m := Resolved{Expr: def.Expr, Alias: def.Alias}
		if err := r.checkColumns(ref, def.Expr, snap, tableID); err != nil {
			return Resolved{}, err
		}
		return m, nil
	}

	m := Resolved{Expr: ref}
	if alias, ok := sqltext.TrailingAlias(ref); ok {
		m.Alias = alias
	} else if sqltext.IsBareIdentifier(ref) {
		// A lone column name passes through as `col` AS col.
		canonical, ok := snap.ResolveColumnStrict(ref, tableID)
		if !ok {
			cols, _ := snap.Columns(tableID)
			return Resolved{}, &domain.UnresolvedMetricError{
				Metric:     ref,
				Column:     ref,
				Candidates: catalog.ClosestCandidates(ref, cols, 3),
			}
		}
		return Resolved{Expr: sqltext.QuoteIdent(canonical), Alias: canonical}, nil
	}

	if err := r.checkColumns(ref, ref, snap, tableID); err != nil {
		return Resolved{}, err
	}
	return m, nil
}

// checkColumns validates every bare column identifier referenced by expr
// against the table schema.
func (r *Registry) checkColumns(metric, expr string, snap *catalog.Snapshot, tableID string) error {
	for _, ident := range sqltext.ReferencedColumns(expr) {
		if _, ok := snap.ResolveColumnStrict(ident, tableID); !ok {
			cols, _ := snap.Columns(tableID)
			return &domain.UnresolvedMetricError{
				Metric:     metric,
				Column:     ident,
				Candidates: catalog.ClosestCandidates(ident, cols, 3),
			}
		}
	}
	return nil
}
