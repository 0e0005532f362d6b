package domain

import "time"

// HistoryEntry records one compilation attempt, successful or not.
type HistoryEntry struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Intent     string    `json:"intent"`
	UsedTable  string    `json:"used_table"`
	SQL        string    `json:"sql"`
	Status     string    `json:"status"` // "ok" or "error"
	ErrorKind  string    `json:"error_kind,omitempty"`
	ErrorText  string    `json:"error_text,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}
