package browserflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// blockingExecutor blocks until released or cancelled, so tests can observe
// the recorder's in-flight state.
type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
	result  *RunResult
	err     error
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result: &RunResult{
			History:         []*Step{{Result: []*StepResult{{IsDone: true}}}},
			DurationSeconds: 0.5,
		},
	}
}

func (e *blockingExecutor) RunTask(ctx context.Context, session BrowserSession, task string) (*RunResult, error) {
	close(e.started)
	select {
	case <-e.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func waitForIdle(t *testing.T, recorder *Recorder) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !recorder.Status().Active {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("recorder did not become idle")
}

func newTestRecorder(t *testing.T, store FlowStore, executor AgentExecutor) *Recorder {
	t.Helper()
	recorder, err := NewRecorder(RecorderOptions{
		Store:           store,
		Executor:        executor,
		StopGracePeriod: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	return recorder
}

func TestRecorderSavesFlowOnCompletion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFlowStore()
	executor := newBlockingExecutor()
	recorder := newTestRecorder(t, store, executor)

	recordingID, err := recorder.StartRecording(ctx, "my_flow", "search for cats")
	require.NoError(t, err)
	require.NotEmpty(t, recordingID)

	<-executor.started
	status := recorder.Status()
	require.True(t, status.Active)
	require.Equal(t, "my_flow", status.FlowName)
	require.Equal(t, recordingID, status.RecordingID)

	close(executor.release)
	waitForIdle(t, recorder)

	flow, err := store.LoadFlow(ctx, "my_flow")
	require.NoError(t, err)
	require.Equal(t, "search for cats", flow.OriginalUserTask)
	require.Len(t, flow.History, 1)
	require.Empty(t, recorder.Status().Error)
}

func TestRecorderConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFlowStore()
	executor := newBlockingExecutor()
	recorder := newTestRecorder(t, store, executor)

	_, err := recorder.StartRecording(ctx, "first", "task one")
	require.NoError(t, err)
	<-executor.started

	// A second recording fails immediately and never touches the store.
	_, err = recorder.StartRecording(ctx, "second", "task two")
	require.Error(t, err)
	require.True(t, MatchesErrorType(err, ErrorTypeRecordingConflict))

	summaries, listErr := store.ListFlows(ctx)
	require.NoError(t, listErr)
	require.Empty(t, summaries)

	close(executor.release)
	waitForIdle(t, recorder)
}

func TestRecorderStopLeavesNoPartialFlow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFlowStore()
	executor := newBlockingExecutor()
	recorder := newTestRecorder(t, store, executor)

	_, err := recorder.StartRecording(ctx, "my_flow", "search for cats")
	require.NoError(t, err)
	<-executor.started

	flowName, err := recorder.StopRecording(ctx)
	require.NoError(t, err)
	require.Equal(t, "my_flow", flowName)
	waitForIdle(t, recorder)

	_, err = store.LoadFlow(ctx, "my_flow")
	require.True(t, IsNotFound(err))
	require.NotEmpty(t, recorder.Status().Error)
}

func TestRecorderStopWithoutActiveRecording(t *testing.T) {
	recorder := newTestRecorder(t, NewMemoryFlowStore(), newBlockingExecutor())
	_, err := recorder.StopRecording(context.Background())
	require.Error(t, err)
	require.True(t, IsNotFound(err))
}

func TestRecorderExecutionFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFlowStore()
	executor := newBlockingExecutor()
	executor.err = errors.New("browser crashed")
	recorder := newTestRecorder(t, store, executor)

	_, err := recorder.StartRecording(ctx, "my_flow", "search for cats")
	require.NoError(t, err)
	close(executor.release)
	waitForIdle(t, recorder)

	status := recorder.Status()
	require.False(t, status.Active)
	require.Contains(t, status.Error, "browser crashed")

	_, err = store.LoadFlow(ctx, "my_flow")
	require.True(t, IsNotFound(err))
}

func TestRecorderEmptyHistoryNotPersisted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFlowStore()
	executor := newBlockingExecutor()
	executor.result = &RunResult{History: nil}
	recorder := newTestRecorder(t, store, executor)

	_, err := recorder.StartRecording(ctx, "my_flow", "search for cats")
	require.NoError(t, err)
	close(executor.release)
	waitForIdle(t, recorder)

	require.NotEmpty(t, recorder.Status().Error)
	_, err = store.LoadFlow(ctx, "my_flow")
	require.True(t, IsNotFound(err))
}

func TestRecorderValidatesInput(t *testing.T) {
	recorder := newTestRecorder(t, NewMemoryFlowStore(), newBlockingExecutor())

	_, err := recorder.StartRecording(context.Background(), "  !!  ", "task")
	require.Error(t, err)

	_, err = recorder.StartRecording(context.Background(), "flow", "   ")
	require.Error(t, err)
}

func TestRecorderCanRecordAgainAfterCompletion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFlowStore()
	executor := newBlockingExecutor()
	recorder := newTestRecorder(t, store, executor)

	_, err := recorder.StartRecording(ctx, "first", "task one")
	require.NoError(t, err)
	close(executor.release)
	waitForIdle(t, recorder)

	second := newBlockingExecutor()
	recorder2 := newTestRecorder(t, store, second)
	_, err = recorder2.StartRecording(ctx, "second", "task two")
	require.NoError(t, err)
	close(second.release)
	waitForIdle(t, recorder2)

	summaries, err := store.ListFlows(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
}
