package browserflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ProcessExecutor runs the browser agent as a subprocess. The task is
// written to the agent's stdin and the run result is read as JSON from its
// stdout. Cancelling the context terminates the subprocess, which is how
// stopping a recording terminates the in-flight execution.
type ProcessExecutor struct {
	// Command is the agent command line, e.g. ["python", "browser_agent.py"].
	Command []string

	// Dir is the working directory for the subprocess. Empty means the
	// calling process's working directory.
	Dir string
}

// NewProcessExecutor creates an executor that shells out to the given agent
// command.
func NewProcessExecutor(command ...string) (*ProcessExecutor, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("agent command required")
	}
	return &ProcessExecutor{Command: command}, nil
}

// RunTask runs the task through the agent subprocess and parses its output.
func (e *ProcessExecutor) RunTask(ctx context.Context, session BrowserSession, task string) (*RunResult, error) {
	if session != nil {
		if err := session.Start(ctx); err != nil {
			return nil, WrapFlowError(ErrorTypeExecution, err)
		}
		defer session.Close(context.WithoutCancel(ctx))
	}

	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	cmd.Dir = e.Dir
	cmd.Stdin = strings.NewReader(task + "\n")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, WrapFlowError(ErrorTypeExecution, ctx.Err())
		}
		return nil, &FlowError{
			Type:    ErrorTypeExecution,
			Cause:   fmt.Sprintf("agent process failed: %v", err),
			Details: strings.TrimSpace(stderr.String()),
			Wrapped: err,
		}
	}

	var result RunResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, &FlowError{
			Type:    ErrorTypeExecution,
			Cause:   "agent process produced unparseable output",
			Wrapped: err,
		}
	}
	if result.DurationSeconds == 0 {
		result.DurationSeconds = time.Since(started).Seconds()
	}
	if result.Raw == nil {
		result.Raw = json.RawMessage(stdout.Bytes())
	}
	return &result, nil
}
