// Package domain defines the core types and errors shared by the compiler,
// the HTTP API, and the CLI.
package domain

import "strings"

// Ordering is a single ORDER BY entry in a plan. By must name an output
// dimension or metric alias; Dir is ASC or DESC (DESC when empty).
type Ordering struct {
	By  string `json:"by"`
	Dir string `json:"dir"`
}

// Direction returns the normalized sort direction, defaulting to DESC.
func (o Ordering) Direction() string {
	d := strings.ToUpper(strings.TrimSpace(o.Dir))
	if d != "ASC" && d != "DESC" {
		return "DESC"
	}
	return d
}

// VizPref carries the planner's visualization preference. The compiler
// ignores it; it is decoded only so plans round-trip through the API intact.
type VizPref struct {
	Mode      string  `json:"mode"`
	ChartType *string `json:"chart_type"`
}

// Plan is the structured query description produced by the upstream
// planning collaborator. The compiler treats it as immutable: resolution
// results accumulate in the builder's working state, never here.
//
// Filters values are shape-polymorphic JSON: the MES key holds either a
// shorthand string (LAST_3M, YTD, ...) or an object ({type, from, to} or
// {type, year}); the eq/in/like/ilike keys hold column-to-literal maps and
// the where key holds a raw boolean expression.
type Plan struct {
	Intent     string         `json:"intent"`
	NeedSQL    bool           `json:"need_sql"`
	Tables     []string       `json:"tables"`
	Metrics    []string       `json:"metrics"`
	Dimensions []string       `json:"dimensions"`
	Filters    map[string]any `json:"filters"`
	Ordering   []Ordering     `json:"ordering"`
	Limit      int            `json:"limit"`

	// Orchestration-only fields, ignored by the compiler.
	VizPref              *VizPref       `json:"viz_pref,omitempty"`
	NeedWeb              bool           `json:"need_web,omitempty"`
	PrivacyMode          *string        `json:"privacy_mode,omitempty"`
	CostGuardrails       map[string]any `json:"cost_guardrails,omitempty"`
	ClarificationRequest *string        `json:"clarification_request,omitempty"`
}
