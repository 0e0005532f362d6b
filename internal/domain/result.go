package domain

// Result is the compiler's sole output for one compilation request.
// SQL is empty only when the plan did not require SQL; a failed
// compilation returns an error and no Result.
type Result struct {
	SQL       string   `json:"sql"`
	UsedTable string   `json:"used_table"`
	Dims      []string `json:"dims"`
	Metrics   []string `json:"metrics"`
	OrderBy   []string `json:"order_by"`
	Limit     int      `json:"limit"`
	Notes     []string `json:"notes"`
}
