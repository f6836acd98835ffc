package domain

import "time"

type FailureStatus string

const (
	FailureExhausted FailureStatus = "exhausted"
)

// FailureRecord is the structured entry handed to the logging collaborator
// when a robust dispatch runs out of attempts.
type FailureRecord struct {
	ID        string
	Label     string
	Summary   string // truncated prompt/summary, never the full payload
	Error     string
	Attempts  int
	Status    FailureStatus
	CreatedAt time.Time
}

// TruncateSummary shortens s for failure records so prompts do not bloat
// the log store.
func TruncateSummary(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
