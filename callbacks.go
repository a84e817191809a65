package browserflow

import (
	"context"
	"time"
)

// ReplayCallbacks defines the callback interface for replay lifecycle events
type ReplayCallbacks interface {
	// BeforeReplay fires after the flow is loaded and the task is derived,
	// before the agent executor is invoked
	BeforeReplay(ctx context.Context, event *ReplayEvent)

	// AfterReplay fires once the agent executor returns or fails
	AfterReplay(ctx context.Context, event *ReplayEvent)

	// OnStepEnumerated fires once per recorded action during the
	// pre-execution enumeration of a literal replay. It has no execution
	// side effect.
	OnStepEnumerated(ctx context.Context, event *StepEnumerationEvent)
}

// ReplayEvent provides context for replay-level events
type ReplayEvent struct {
	RunID      string
	FlowName   string
	Mode       string
	Task       string
	Parameters ParameterSet
	Values     ParameterValues
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Result     *RunResult
	Error      error
}

// StepEnumerationEvent provides context for one enumerated action
type StepEnumerationEvent struct {
	FlowName   string
	StepNumber int
	ActionName string
	Parameters map[string]any
}

// BaseReplayCallbacks provides a default implementation that does nothing
type BaseReplayCallbacks struct{}

func (c *BaseReplayCallbacks) BeforeReplay(ctx context.Context, event *ReplayEvent) {
	// noop
}

func (c *BaseReplayCallbacks) AfterReplay(ctx context.Context, event *ReplayEvent) {
	// noop
}

func (c *BaseReplayCallbacks) OnStepEnumerated(ctx context.Context, event *StepEnumerationEvent) {
	// noop
}
