// Package compiler turns a planner-produced Plan into a single validated
// BigQuery SELECT statement. Compilation is a pure function of the plan,
// one immutable catalog snapshot, and the injected clock; nothing here
// performs I/O or mutates shared state.
package compiler

import (
	"strings"
	"time"

	"planql/internal/catalog"
	"planql/internal/domain"
	"planql/internal/metricdef"
	"planql/internal/sqltext"
)

// DefaultLimit is the row limit applied when the plan carries none.
const DefaultLimit = 1000

// Options tunes compiler behavior.
type Options struct {
	// DefaultLimit overrides the LIMIT applied when the plan has no
	// positive limit. Zero means DefaultLimit.
	DefaultLimit int
}

// Compiler compiles plans against catalog snapshots. Safe for concurrent
// use; each call pins the snapshot it is given for its whole duration.
type Compiler struct {
	registry *metricdef.Registry
	opts     Options
	now      func() time.Time
}

// New creates a Compiler. now supplies the evaluation clock for relative
// MES filters; pass time.Now in production and a fixed clock in tests.
func New(registry *metricdef.Registry, opts Options, now func() time.Time) *Compiler {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if now == nil {
		now = time.Now
	}
	return &Compiler{registry: registry, opts: opts, now: now}
}

// Compile resolves, assembles, and validates one plan. The plan is never
// mutated; soft corrections (case folds, synonyms, fuzzy matches) are
// reported as notes on the Result, hard problems as typed errors.
func (c *Compiler) Compile(snap *catalog.Snapshot, plan domain.Plan) (*domain.Result, error) {
	tableID, err := snap.ResolveTable(plan.Tables)
	if err != nil {
		return nil, err
	}

	q := newQuery(sqltext.QuoteTable(tableID), c.opts.DefaultLimit)

	for _, dim := range plan.Dimensions {
		canonical, note, err := snap.ResolveDimension(dim, tableID)
		if err != nil {
			return nil, err
		}
		q.addDimension(canonical, note)
	}

	for _, ref := range plan.Metrics {
		if strings.TrimSpace(ref) == "" {
			continue
		}
		m, err := c.registry.Resolve(ref, snap, tableID)
		if err != nil {
			return nil, err
		}
		q.addMetric(m)
	}

	if err := q.applyFilters(plan.Filters, snap, tableID, c.now()); err != nil {
		return nil, err
	}

	if err := q.applyOrdering(plan.Ordering); err != nil {
		return nil, err
	}

	if plan.Limit > 0 {
		q.limit = plan.Limit
	}

	return validate(q)
}
