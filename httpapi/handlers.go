package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/deepnoodle-ai/browserflow"
)

// flowView is the wire shape of one flow summary. StepCount is rendered as
// the string "unknown" when the stored document could not be parsed.
type flowView struct {
	Name    string `json:"name"`
	Created int64  `json:"created"`
	Size    int64  `json:"size"`
	Steps   any    `json:"steps"`
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListFlows(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]flowView, 0, len(summaries))
	for _, summary := range summaries {
		view := flowView{
			Name:    summary.Name,
			Created: summary.CreatedAt.Unix(),
			Size:    summary.SizeBytes,
			Steps:   summary.StepCount,
		}
		if summary.StepCount == browserflow.StepCountUnknown {
			view.Steps = "unknown"
		}
		views = append(views, view)
	}
	s.writeJSON(w, http.StatusOK, views)
}

// validFlowName reports whether a caller-supplied flow name is already in
// sanitized form. Names that sanitize to something else (path separators,
// dots, any other rejected rune) never reach the store: they cannot name a
// stored flow, and letting them through would let a crafted name resolve
// outside the flows directory.
func validFlowName(name string) bool {
	return name != "" && browserflow.SanitizeFlowName(name) == name
}

func (s *Server) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !validFlowName(name) {
		s.writeError(w, browserflow.NewFlowError(browserflow.ErrorTypeNotFound,
			fmt.Sprintf("flow %q not found", name)))
		return
	}
	if err := s.store.DeleteFlow(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "flow " + name + " deleted",
	})
}

type replayRequest struct {
	FlowName   string                      `json:"flow_name"`
	Parameters browserflow.ParameterValues `json:"parameters,omitempty"`
}

func (s *Server) handleReplayFlow(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	req.FlowName = strings.TrimSpace(req.FlowName)
	if req.FlowName == "" {
		s.writeBadRequest(w, "flow name is required")
		return
	}
	if !validFlowName(req.FlowName) {
		s.writeError(w, browserflow.NewFlowError(browserflow.ErrorTypeNotFound,
			fmt.Sprintf("flow %q not found", req.FlowName)))
		return
	}

	// Fail fast on a missing or unparseable flow before starting the
	// background replay.
	if _, err := s.store.LoadFlow(r.Context(), req.FlowName); err != nil {
		s.writeError(w, err)
		return
	}

	// The replay outlives the request; failures are reported through the
	// driver's journal and logs.
	go func() {
		ctx := context.Background()
		if req.Parameters != nil {
			if _, err := s.driver.ReplayFlowWithParameters(ctx, req.FlowName, req.Parameters); err != nil {
				s.logger.Error("replay failed", "flow", req.FlowName, "error", err)
			}
			return
		}
		if _, err := s.driver.ReplayFlow(ctx, req.FlowName); err != nil {
			s.logger.Error("replay failed", "flow", req.FlowName, "error", err)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"message":   "replay started for " + req.FlowName,
		"flow_name": req.FlowName,
	})
}

type recordingRequest struct {
	FlowName        string `json:"flow_name"`
	TaskDescription string `json:"task_description"`
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	var req recordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	name := browserflow.SanitizeFlowName(strings.TrimSpace(req.FlowName))
	task := strings.TrimSpace(req.TaskDescription)
	if name == "" || task == "" {
		s.writeBadRequest(w, "flow name and task description are required")
		return
	}

	recordingID, err := s.recorder.StartRecording(r.Context(), name, task)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"message":      "recording started",
		"flow_name":    name,
		"recording_id": recordingID,
	})
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	flowName, err := s.recorder.StopRecording(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message":   "recording stopped",
		"flow_name": flowName,
	})
}

func (s *Server) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.recorder.Status())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeBadRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, errorBody{Error: message})
}

// writeError translates a classified core failure into a non-2xx response
// with a machine-readable error body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var flowErr *browserflow.FlowError
	if !errors.As(err, &flowErr) {
		flowErr = browserflow.ClassifyError(err)
	}
	s.writeJSON(w, statusForErrorType(flowErr.Type), errorBody{
		Error: flowErr.Cause,
		Type:  flowErr.Type,
	})
}

func statusForErrorType(errorType string) int {
	switch errorType {
	case browserflow.ErrorTypeNotFound:
		return http.StatusNotFound
	case browserflow.ErrorTypeRecordingConflict:
		return http.StatusConflict
	case browserflow.ErrorTypeMalformedDocument:
		return http.StatusUnprocessableEntity
	case browserflow.ErrorTypeNoParameters:
		return http.StatusBadRequest
	case browserflow.ErrorTypeExecution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
