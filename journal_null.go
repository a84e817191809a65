package browserflow

import "context"

// NullRunJournal is a no-op implementation
type NullRunJournal struct{}

func NewNullRunJournal() *NullRunJournal {
	return &NullRunJournal{}
}

func (j *NullRunJournal) LogRun(ctx context.Context, entry *RunJournalEntry) error {
	return nil
}

func (j *NullRunJournal) GetRunHistory(ctx context.Context, flowName string) ([]*RunJournalEntry, error) {
	return nil, nil
}
