package browserflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.jetify.com/typeid"
)

// NewRecordingID returns a new prefixed ID for recording identification
func NewRecordingID() string {
	id, err := typeid.WithPrefix("rec")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// DefaultStopGracePeriod bounds how long a stop waits for the in-flight
// execution to terminate gracefully before forcing the session down.
const DefaultStopGracePeriod = 10 * time.Second

// RecordingStatus reports the recorder's current state
type RecordingStatus struct {
	Active      bool      `json:"is_recording"`
	FlowName    string    `json:"flow_name,omitempty"`
	RecordingID string    `json:"recording_id,omitempty"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// RecorderOptions configures a new recorder
type RecorderOptions struct {
	Store           FlowStore
	Executor        AgentExecutor
	Session         BrowserSession
	Logger          *slog.Logger
	Journal         RunJournal
	StopGracePeriod time.Duration
}

// Recorder runs a task through the agent executor and persists the
// resulting step history as a named flow. At most one recording is active
// at a time; starting a second one fails with a recording conflict and
// never touches the flow store. A stopped or failed recording persists
// nothing: the flow document is written only when the execution completes.
type Recorder struct {
	store     FlowStore
	executor  AgentExecutor
	session   BrowserSession
	logger    *slog.Logger
	journal   RunJournal
	stopGrace time.Duration

	mutex       sync.Mutex
	active      bool
	flowName    string
	recordingID string
	startedAt   time.Time
	cancel      context.CancelFunc
	done        chan struct{}
	lastError   string
}

// NewRecorder creates a new recorder
func NewRecorder(opts RecorderOptions) (*Recorder, error) {
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
	if opts.StopGracePeriod <= 0 {
		opts.StopGracePeriod = DefaultStopGracePeriod
	}
	return &Recorder{
		store:     opts.Store,
		executor:  opts.Executor,
		session:   opts.Session,
		logger:    opts.Logger,
		journal:   opts.Journal,
		stopGrace: opts.StopGracePeriod,
	}, nil
}

// StartRecording begins recording the given task under the given flow name
// on a background worker and returns the recording ID. It fails immediately
// with a recording conflict when another recording is active.
func (r *Recorder) StartRecording(ctx context.Context, flowName, task string) (string, error) {
	flowName = SanitizeFlowName(flowName)
	if flowName == "" {
		return "", fmt.Errorf("flow name required")
	}
	if strings.TrimSpace(task) == "" {
		return "", fmt.Errorf("task description required")
	}

	r.mutex.Lock()
	if r.active {
		current := r.flowName
		r.mutex.Unlock()
		return "", NewFlowError(ErrorTypeRecordingConflict,
			fmt.Sprintf("recording already in progress for flow %q", current))
	}

	recordingID := NewRecordingID()
	// The recording outlives the caller's request context; only an explicit
	// stop cancels it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	r.active = true
	r.flowName = flowName
	r.recordingID = recordingID
	r.startedAt = time.Now()
	r.cancel = cancel
	r.done = done
	r.lastError = ""
	r.mutex.Unlock()

	go r.record(runCtx, done, recordingID, flowName, task)
	return recordingID, nil
}

func (r *Recorder) record(ctx context.Context, done chan struct{}, recordingID, flowName, task string) {
	defer close(done)

	logger := r.logger.With("recording_id", recordingID, "flow", flowName)
	logger.Info("recording started", "task", task)
	startedAt := time.Now()

	result, err := r.executor.RunTask(ctx, r.session, task)

	var finalErr error
	switch {
	case err != nil:
		finalErr = WrapFlowError(ErrorTypeExecution, err)
	case ctx.Err() != nil:
		// Stopped between execution finishing and this check; a stopped
		// recording persists nothing.
		finalErr = WrapFlowError(ErrorTypeExecution, ctx.Err())
	default:
		flow := result.Flow(task)
		if verr := flow.Validate(); verr != nil {
			finalErr = verr
		} else if serr := r.store.SaveFlow(context.Background(), flowName, flow); serr != nil {
			finalErr = serr
		}
	}

	entry := &RunJournalEntry{
		RunID:     recordingID,
		FlowName:  flowName,
		Mode:      ModeRecording,
		Task:      task,
		StartTime: startedAt,
		Duration:  time.Since(startedAt).Seconds(),
	}
	if result != nil {
		entry.Steps = result.StepCount()
		entry.Actions = result.ActionCount()
	}
	if finalErr != nil {
		entry.Error = finalErr.Error()
	}
	if jerr := r.journal.LogRun(ctx, entry); jerr != nil {
		logger.Warn("failed to journal recording", "error", jerr)
	}

	r.mutex.Lock()
	r.active = false
	r.cancel = nil
	if finalErr != nil {
		r.lastError = finalErr.Error()
	}
	r.mutex.Unlock()

	if finalErr != nil {
		logger.Error("recording failed", "error", finalErr)
		return
	}
	logger.Info("recording saved",
		"steps", result.StepCount(),
		"actions", result.ActionCount(),
		"duration_seconds", result.DurationSeconds)
}

// StopRecording cancels the active recording and waits for the in-flight
// execution to terminate. Termination is attempted gracefully first; after
// the grace period the browser session is forced down. The partially
// produced flow is never persisted. Returns the name of the stopped flow.
func (r *Recorder) StopRecording(ctx context.Context) (string, error) {
	r.mutex.Lock()
	if !r.active {
		r.mutex.Unlock()
		return "", NewFlowError(ErrorTypeNotFound, "no recording in progress")
	}
	flowName := r.flowName
	cancel := r.cancel
	done := r.done
	r.mutex.Unlock()

	cancel()
	select {
	case <-done:
		return flowName, nil
	case <-time.After(r.stopGrace):
	}

	// Graceful window elapsed; force the session down and wait once more.
	r.logger.Warn("recording did not stop gracefully, forcing session close", "flow", flowName)
	if err := r.session.Close(ctx); err != nil {
		r.logger.Warn("failed to force-close session", "error", err)
	}
	select {
	case <-done:
	case <-time.After(r.stopGrace):
		return flowName, fmt.Errorf("recording for flow %q did not terminate", flowName)
	}
	return flowName, nil
}

// Status returns the recorder's current state. Error carries the failure of
// the most recently finished recording, if any.
func (r *Recorder) Status() RecordingStatus {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	status := RecordingStatus{
		Active: r.active,
		Error:  r.lastError,
	}
	if r.active {
		status.FlowName = r.flowName
		status.RecordingID = r.recordingID
		status.StartedAt = r.startedAt
	}
	return status
}
