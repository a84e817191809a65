package browserflow

import (
	"context"
	"time"
)

// Replay and recording modes recorded in journal entries.
const (
	ModeLiteral       = "literal"
	ModeParameterized = "parameterized"
	ModeRecording     = "recording"
)

// RunJournalEntry represents a single replay or recording outcome
type RunJournalEntry struct {
	RunID     string    `json:"run_id"`
	FlowName  string    `json:"flow_name"`
	Mode      string    `json:"mode"`
	Task      string    `json:"task"`
	Steps     int       `json:"steps,omitempty"`
	Actions   int       `json:"actions,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartTime time.Time `json:"start_time"`
	Duration  float64   `json:"duration"`
}

// RunJournal defines simple run outcome logging interface
type RunJournal interface {
	// LogRun logs a completed replay or recording run
	LogRun(ctx context.Context, entry *RunJournalEntry) error

	// GetRunHistory retrieves the journal for a flow name
	GetRunHistory(ctx context.Context, flowName string) ([]*RunJournalEntry, error)
}
