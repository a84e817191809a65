package browserflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryFlowEntry struct {
	data      []byte
	createdAt time.Time
}

// MemoryFlowStore is an in-memory implementation of FlowStore, useful for
// tests and embedding. Documents are stored as serialized JSON so that
// callers never share Flow objects with the store.
type MemoryFlowStore struct {
	mutex sync.RWMutex
	flows map[string]memoryFlowEntry
}

// NewMemoryFlowStore creates a new in-memory flow store
func NewMemoryFlowStore() *MemoryFlowStore {
	return &MemoryFlowStore{flows: map[string]memoryFlowEntry{}}
}

func (s *MemoryFlowStore) SaveFlow(ctx context.Context, name string, flow *Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.flows[name] = memoryFlowEntry{data: data, createdAt: time.Now()}
	return nil
}

func (s *MemoryFlowStore) LoadFlow(ctx context.Context, name string) (*Flow, error) {
	s.mutex.RLock()
	entry, ok := s.flows[name]
	s.mutex.RUnlock()
	if !ok {
		return nil, NewFlowError(ErrorTypeNotFound, fmt.Sprintf("flow %q not found", name))
	}
	var flow Flow
	if err := json.Unmarshal(entry.data, &flow); err != nil {
		return nil, &FlowError{
			Type:    ErrorTypeMalformedDocument,
			Cause:   fmt.Sprintf("flow %q is not valid JSON", name),
			Wrapped: err,
		}
	}
	return &flow, nil
}

func (s *MemoryFlowStore) ListFlows(ctx context.Context) ([]*FlowSummary, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var summaries []*FlowSummary
	for name, entry := range s.flows {
		stepCount := StepCountUnknown
		var flow Flow
		if err := json.Unmarshal(entry.data, &flow); err == nil {
			stepCount = len(flow.History)
		}
		summaries = append(summaries, &FlowSummary{
			Name:      name,
			CreatedAt: entry.createdAt,
			SizeBytes: int64(len(entry.data)),
			StepCount: stepCount,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (s *MemoryFlowStore) DeleteFlow(ctx context.Context, name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.flows[name]; !ok {
		return NewFlowError(ErrorTypeNotFound, fmt.Sprintf("flow %q not found", name))
	}
	delete(s.flows, name)
	return nil
}
