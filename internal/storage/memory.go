package storage

import (
	"sort"
	"sync"
	"time"

	"troublebot-backend/internal/model"
)

type MemoryStorage struct {
	records map[string]*model.TranscriptRecord
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*model.TranscriptRecord),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) Backup() error {
	return nil
}

func (m *MemoryStorage) Save(record *model.TranscriptRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *record
	m.records[record.ID] = &stored
	return nil
}

func (m *MemoryStorage) Get(sessionID string) (*model.TranscriptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *model.TranscriptRecord
	for _, r := range m.records {
		if r.SessionID != sessionID {
			continue
		}
		if latest == nil || r.GeneratedAt.After(latest.GeneratedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrTranscriptNotFound
	}

	out := *latest
	return &out, nil
}

func (m *MemoryStorage) List() ([]*model.TranscriptSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]*model.TranscriptSummary, 0, len(m.records))
	for _, r := range m.records {
		summaries = append(summaries, summaryOf(r))
	}
	sortNewestFirst(summaries)

	return summaries, nil
}

func (m *MemoryStorage) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for id, r := range m.records {
		if r.SessionID == sessionID {
			delete(m.records, id)
			found = true
		}
	}
	if !found {
		return ErrTranscriptNotFound
	}
	return nil
}

func (m *MemoryStorage) PurgeBefore(cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for id, r := range m.records {
		if r.GeneratedAt.Before(cutoff) {
			delete(m.records, id)
			purged++
		}
	}
	return purged, nil
}

func sortNewestFirst(summaries []*model.TranscriptSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].GeneratedAt.After(summaries[j].GeneratedAt)
	})
}
