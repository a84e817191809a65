package browserflow

import (
	"context"
	"time"
)

// StepCountUnknown is reported in a FlowSummary when the stored document
// cannot be parsed far enough to count steps.
const StepCountUnknown = -1

// FlowSummary provides a summary view of a stored flow
type FlowSummary struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created"`
	SizeBytes int64     `json:"size"`
	StepCount int       `json:"steps"`
}

// FlowStore defines the persistence contract for flow documents. A flow is
// uniquely identified by its name within a store; saving an existing name
// overwrites the previous document (last-write-wins, no lock).
type FlowStore interface {
	// SaveFlow persists the flow document under the given name. The save is
	// all-or-nothing at the granularity of one document.
	SaveFlow(ctx context.Context, name string, flow *Flow) error

	// LoadFlow loads the flow document stored under the given name
	LoadFlow(ctx context.Context, name string) (*Flow, error)

	// ListFlows returns summaries of all stored flows, newest-created first
	ListFlows(ctx context.Context) ([]*FlowSummary, error)

	// DeleteFlow removes the flow document stored under the given name
	DeleteFlow(ctx context.Context, name string) error
}
