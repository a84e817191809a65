package browserflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.jetify.com/typeid"
)

// NewRunID returns a new prefixed ID for run identification
func NewRunID() string {
	id, err := typeid.WithPrefix("run")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// replayTaskPrefix wraps the derived task for a literal replay instruction.
const replayTaskPrefix = "Replay this flow: "

// ValuePrompter solicits a replacement value for one extracted parameter
// during a parameterized replay. Returning an empty string keeps the
// parameter's default value.
type ValuePrompter interface {
	PromptValue(param Parameter) (string, error)
}

// ReplayOptions configures a new replay driver
type ReplayOptions struct {
	Store     FlowStore
	Executor  AgentExecutor
	Session   BrowserSession
	Logger    *slog.Logger
	Journal   RunJournal
	Callbacks ReplayCallbacks
	Formatter StepFormatter
	Prompter  ValuePrompter
}

// ReplayDriver reconstructs executable tasks from stored flows and hands
// them to the agent executor. It supports a literal mode, which replays the
// recorded intent unchanged, and a parameterized mode, which substitutes
// caller-chosen values into the original task first. Every failure is
// surfaced once as a classified error; there is no retry policy.
type ReplayDriver struct {
	store     FlowStore
	executor  AgentExecutor
	session   BrowserSession
	logger    *slog.Logger
	journal   RunJournal
	callbacks ReplayCallbacks
	formatter StepFormatter
	prompter  ValuePrompter
}

// NewReplayDriver creates a new replay driver
func NewReplayDriver(opts ReplayOptions) (*ReplayDriver, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("flow store is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("agent executor is required")
	}
	if opts.Session == nil {
		opts.Session = NewNullBrowserSession()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Journal == nil {
		opts.Journal = NewNullRunJournal()
	}
	if opts.Callbacks == nil {
		opts.Callbacks = &BaseReplayCallbacks{}
	}
	return &ReplayDriver{
		store:     opts.Store,
		executor:  opts.Executor,
		session:   opts.Session,
		logger:    opts.Logger,
		journal:   opts.Journal,
		callbacks: opts.Callbacks,
		formatter: opts.Formatter,
		prompter:  opts.Prompter,
	}, nil
}

// ReplayOutcome reports a completed replay
type ReplayOutcome struct {
	RunID      string          `json:"run_id"`
	FlowName   string          `json:"flow_name"`
	Mode       string          `json:"mode"`
	Task       string          `json:"task"`
	Parameters ParameterSet    `json:"parameters,omitempty"`
	Values     ParameterValues `json:"values,omitempty"`
	Result     *RunResult      `json:"result,omitempty"`
	Duration   time.Duration   `json:"duration"`
}

// ReplayFlow performs a literal replay of the named flow: the recorded
// intent is wrapped into a replay instruction and handed to the agent
// executor unchanged. The agent executor is never invoked for a missing
// flow or an empty history.
func (d *ReplayDriver) ReplayFlow(ctx context.Context, name string) (*ReplayOutcome, error) {
	flow, err := d.store.LoadFlow(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := flow.Validate(); err != nil {
		return nil, err
	}

	task := replayTaskPrefix + flow.DeriveTask()
	d.enumerateSteps(ctx, name, flow)
	return d.runTask(ctx, name, ModeLiteral, task, nil, nil)
}

// ReplayFlowWithParameters performs a parameterized replay of the named
// flow. Values supplies replacements by parameter name; parameters without
// a supplied value are solicited from the prompter when one is configured,
// and otherwise keep their extracted defaults. Keys in values that name no
// extracted parameter are silently ignored.
func (d *ReplayDriver) ReplayFlowWithParameters(ctx context.Context, name string, values ParameterValues) (*ReplayOutcome, error) {
	flow, err := d.store.LoadFlow(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := flow.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(flow.OriginalUserTask) == "" {
		return nil, NewFlowError(ErrorTypeNoParameters,
			fmt.Sprintf("flow %q has no recorded original task; use a literal replay instead", name))
	}

	params := ExtractParameters(flow)
	if len(params) == 0 {
		return nil, NewFlowError(ErrorTypeNoParameters,
			fmt.Sprintf("flow %q has no substitutable parameters; use a literal replay instead", name))
	}

	resolved, err := d.resolveValues(params, values)
	if err != nil {
		return nil, err
	}

	task := SubstituteTask(flow.OriginalUserTask, resolved, params)
	return d.runTask(ctx, name, ModeParameterized, task, params, resolved)
}

// resolveValues produces a complete value set for the extracted parameters,
// defaulting to the extracted value when no replacement is supplied.
func (d *ReplayDriver) resolveValues(params ParameterSet, values ParameterValues) (ParameterValues, error) {
	resolved := make(ParameterValues, len(params))
	for _, param := range params {
		if value, ok := values[param.Name]; ok && value != "" {
			resolved[param.Name] = value
			continue
		}
		if d.prompter != nil {
			value, err := d.prompter.PromptValue(param)
			if err != nil {
				return nil, fmt.Errorf("failed to read value for %q: %w", param.Name, err)
			}
			if value != "" {
				resolved[param.Name] = value
				continue
			}
		}
		resolved[param.Name] = param.DefaultValue
	}
	return resolved, nil
}

// enumerateSteps walks the recorded actions for observability before a
// literal replay. It has no execution side effect.
func (d *ReplayDriver) enumerateSteps(ctx context.Context, name string, flow *Flow) {
	stepNumber := 0
	for _, action := range flow.Actions() {
		stepNumber++
		if d.formatter != nil {
			d.formatter.PrintStepAction(stepNumber, action.Name(), action.Parameters())
		}
		d.callbacks.OnStepEnumerated(ctx, &StepEnumerationEvent{
			FlowName:   name,
			StepNumber: stepNumber,
			ActionName: action.Name(),
			Parameters: action.Parameters(),
		})
	}
}

// runTask hands the reconstructed task to the agent executor and reports
// the outcome. Executor failures are classified and returned; they never
// touch the flow store.
func (d *ReplayDriver) runTask(ctx context.Context, name, mode, task string, params ParameterSet, values ParameterValues) (*ReplayOutcome, error) {
	runID := NewRunID()
	logger := d.logger.With("run_id", runID, "flow", name, "mode", mode)
	logger.Info("starting replay", "task", task)

	event := &ReplayEvent{
		RunID:      runID,
		FlowName:   name,
		Mode:       mode,
		Task:       task,
		Parameters: params,
		Values:     values,
		StartTime:  time.Now(),
	}
	d.callbacks.BeforeReplay(ctx, event)

	result, runErr := d.executor.RunTask(ctx, d.session, task)

	event.EndTime = time.Now()
	event.Duration = event.EndTime.Sub(event.StartTime)
	event.Result = result
	if runErr != nil {
		runErr = WrapFlowError(ErrorTypeExecution, runErr)
		event.Error = runErr
	}
	d.callbacks.AfterReplay(ctx, event)
	d.logRun(ctx, logger, event)

	if runErr != nil {
		logger.Error("replay failed", "error", runErr)
		return nil, runErr
	}
	logger.Info("replay completed",
		"steps", result.StepCount(),
		"actions", result.ActionCount(),
		"duration_seconds", result.DurationSeconds)

	return &ReplayOutcome{
		RunID:      runID,
		FlowName:   name,
		Mode:       mode,
		Task:       task,
		Parameters: params,
		Values:     values,
		Result:     result,
		Duration:   event.Duration,
	}, nil
}

// logRun writes the journal entry for a finished run. Journal failures are
// logged and do not affect the replay outcome.
func (d *ReplayDriver) logRun(ctx context.Context, logger *slog.Logger, event *ReplayEvent) {
	entry := &RunJournalEntry{
		RunID:     event.RunID,
		FlowName:  event.FlowName,
		Mode:      event.Mode,
		Task:      event.Task,
		StartTime: event.StartTime,
		Duration:  event.Duration.Seconds(),
	}
	if event.Result != nil {
		entry.Steps = event.Result.StepCount()
		entry.Actions = event.Result.ActionCount()
	}
	if event.Error != nil {
		entry.Error = event.Error.Error()
	}
	if err := d.journal.LogRun(ctx, entry); err != nil {
		logger.Warn("failed to journal run", "error", err)
	}
}
