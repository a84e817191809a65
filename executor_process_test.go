package browserflow

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test requires a POSIX shell")
	}
}

func TestProcessExecutorParsesAgentOutput(t *testing.T) {
	requireShell(t)

	// The fake agent echoes a canned run result regardless of the task it
	// reads on stdin.
	executor, err := NewProcessExecutor("sh", "-c",
		`read task; printf '{"history":[{"result":[{"is_done":true}]}],"total_duration_seconds":2.5}'`)
	require.NoError(t, err)

	result, err := executor.RunTask(context.Background(), nil, "search for cats")
	require.NoError(t, err)
	require.Equal(t, 1, result.StepCount())
	require.Equal(t, 2.5, result.DurationSeconds)
	require.NotEmpty(t, result.Raw)
	require.True(t, result.History[0].Result[0].IsDone)
}

func TestProcessExecutorReceivesTaskOnStdin(t *testing.T) {
	requireShell(t)

	executor, err := NewProcessExecutor("sh", "-c",
		`read task; printf '{"history":[],"raw":"%s"}' "$task"`)
	require.NoError(t, err)

	result, err := executor.RunTask(context.Background(), nil, "search for cats")
	require.NoError(t, err)
	require.Contains(t, string(result.Raw), "search for cats")
}

func TestProcessExecutorFailures(t *testing.T) {
	requireShell(t)
	ctx := context.Background()

	t.Run("nonzero exit surfaces stderr", func(t *testing.T) {
		executor, err := NewProcessExecutor("sh", "-c", `echo "browser crashed" >&2; exit 3`)
		require.NoError(t, err)

		_, err = executor.RunTask(ctx, nil, "task")
		require.Error(t, err)
		require.True(t, MatchesErrorType(err, ErrorTypeExecution))
		require.Equal(t, "browser crashed", ClassifyError(err).Details)
	})

	t.Run("unparseable output", func(t *testing.T) {
		executor, err := NewProcessExecutor("sh", "-c", `echo "not json"`)
		require.NoError(t, err)

		_, err = executor.RunTask(ctx, nil, "task")
		require.Error(t, err)
		require.True(t, MatchesErrorType(err, ErrorTypeExecution))
	})

	t.Run("cancellation terminates the process", func(t *testing.T) {
		executor, err := NewProcessExecutor("sh", "-c", `sleep 60`)
		require.NoError(t, err)

		cancelCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		started := time.Now()
		_, err = executor.RunTask(cancelCtx, nil, "task")
		require.Error(t, err)
		require.True(t, MatchesErrorType(err, ErrorTypeExecution))
		require.Less(t, time.Since(started), 10*time.Second)
	})
}

func TestNewProcessExecutorRequiresCommand(t *testing.T) {
	_, err := NewProcessExecutor()
	require.Error(t, err)
}
