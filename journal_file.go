package browserflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileRunJournal is an implementation of RunJournal that logs to a file.
// A file is created per flow name. The file is formatted as
// newline-delimited JSON.
type FileRunJournal struct {
	directory string
}

func NewFileRunJournal(directory string) *FileRunJournal {
	return &FileRunJournal{directory: directory}
}

func (j *FileRunJournal) flowJournalPath(flowName string) string {
	return filepath.Join(j.directory, fmt.Sprintf("%s.jsonl", flowName))
}

func (j *FileRunJournal) GetRunHistory(ctx context.Context, flowName string) ([]*RunJournalEntry, error) {
	filePath := j.flowJournalPath(flowName)
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var entries []*RunJournalEntry
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		var entry RunJournalEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

func (j *FileRunJournal) LogRun(ctx context.Context, entry *RunJournalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	filePath := j.flowJournalPath(entry.FlowName)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write([]byte(string(data) + "\n")); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}
