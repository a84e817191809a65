package browserflow

import (
	"context"
	"encoding/json"
)

// RunResult is the outcome of one agent execution: the step history the
// agent produced, a flattened view of the actions it took, and timing
// information for reporting.
type RunResult struct {
	History         []*Step            `json:"history"`
	ModelActions    []ActionInvocation `json:"model_actions,omitempty"`
	DurationSeconds float64            `json:"total_duration_seconds"`
	Raw             json.RawMessage    `json:"raw,omitempty"`
}

// StepCount returns the number of steps in the run.
func (r *RunResult) StepCount() int {
	return len(r.History)
}

// ActionCount returns the number of actions taken during the run, preferring
// the flattened action list when the executor provided one.
func (r *RunResult) ActionCount() int {
	if len(r.ModelActions) > 0 {
		return len(r.ModelActions)
	}
	count := 0
	for _, step := range r.History {
		count += len(step.Actions())
	}
	return count
}

// Flow builds a persistable flow document from the run result.
func (r *RunResult) Flow(originalTask string) *Flow {
	return &Flow{
		OriginalUserTask: originalTask,
		History:          r.History,
	}
}

// AgentExecutor runs a natural-language task against a live browser and
// returns the resulting step history. Implementations block until the run
// finishes or fails; cancellation is delivered through the context.
type AgentExecutor interface {
	RunTask(ctx context.Context, session BrowserSession, task string) (*RunResult, error)
}

// BrowserSession is an opaque handle on a browser session. The core never
// inspects its internals; it only triggers lifecycle transitions. Hosting
// processes construct one session and thread it through every operation
// that needs one.
type BrowserSession interface {
	// Start brings the session up
	Start(ctx context.Context) error

	// Close tears the session down. Close is also used as the forced
	// termination path when a graceful stop times out.
	Close(ctx context.Context) error
}

// NullBrowserSession is a no-op implementation for executors that manage
// their own browser lifecycle.
type NullBrowserSession struct{}

func NewNullBrowserSession() *NullBrowserSession {
	return &NullBrowserSession{}
}

func (s *NullBrowserSession) Start(ctx context.Context) error {
	return nil
}

func (s *NullBrowserSession) Close(ctx context.Context) error {
	return nil
}
