package browserflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileFlowStore is a file-based implementation that persists flow documents
// to disk, one JSON file per flow name.
type FileFlowStore struct {
	dataDir string
}

// NewFileFlowStore creates a new file-based flow store
func NewFileFlowStore(dataDir string) (*FileFlowStore, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".deepnoodle", "browserflow", "flows")
	}

	// Ensure the data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	return &FileFlowStore{dataDir: dataDir}, nil
}

func (s *FileFlowStore) flowPath(name string) string {
	return filepath.Join(s.dataDir, name+".json")
}

// SaveFlow serializes the flow document to disk. The document is written to
// a temporary file and renamed into place so that a failed save never leaves
// a partially-written document behind.
func (s *FileFlowStore) SaveFlow(ctx context.Context, name string, flow *Flow) error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}

	flowPath := s.flowPath(name)
	tmpPath := flowPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write flow file: %w", err)
	}
	if err := os.Rename(tmpPath, flowPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize flow file: %w", err)
	}
	return nil
}

// LoadFlow loads the flow document stored under the given name
func (s *FileFlowStore) LoadFlow(ctx context.Context, name string) (*Flow, error) {
	data, err := os.ReadFile(s.flowPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewFlowError(ErrorTypeNotFound, fmt.Sprintf("flow %q not found", name))
		}
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}

	var flow Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, &FlowError{
			Type:    ErrorTypeMalformedDocument,
			Cause:   fmt.Sprintf("flow %q is not valid JSON", name),
			Wrapped: err,
		}
	}
	return &flow, nil
}

// ListFlows returns summaries of all stored flows, newest-created first
func (s *FileFlowStore) ListFlows(ctx context.Context) ([]*FlowSummary, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*FlowSummary{}, nil // No flows directory yet
		}
		return nil, fmt.Errorf("failed to read flows directory: %w", err)
	}

	var summaries []*FlowSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Skip flows we can't stat
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		summaries = append(summaries, &FlowSummary{
			Name:      name,
			CreatedAt: info.ModTime(),
			SizeBytes: info.Size(),
			StepCount: s.countSteps(name),
		})
	}

	// Sort by creation time (newest first)
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return summaries, nil
}

// countSteps reads the stored document and counts its history entries,
// returning StepCountUnknown when the document cannot be parsed.
func (s *FileFlowStore) countSteps(name string) int {
	data, err := os.ReadFile(s.flowPath(name))
	if err != nil {
		return StepCountUnknown
	}
	var flow Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return StepCountUnknown
	}
	return len(flow.History)
}

// DeleteFlow removes the flow document stored under the given name. Deleting
// an absent name surfaces a not found error, including on a second delete of
// the same name.
func (s *FileFlowStore) DeleteFlow(ctx context.Context, name string) error {
	flowPath := s.flowPath(name)
	if _, err := os.Stat(flowPath); os.IsNotExist(err) {
		return NewFlowError(ErrorTypeNotFound, fmt.Sprintf("flow %q not found", name))
	}
	if err := os.Remove(flowPath); err != nil {
		return fmt.Errorf("failed to delete flow file: %w", err)
	}
	return nil
}
