package store

import (
	"context"
	"sync"
	"time"

	"decktrack/api/models"
)

// MemoryLogStore keeps log entries in process memory. Used with
// STORE_DRIVER=memory and in tests.
type MemoryLogStore struct {
	mu   sync.RWMutex
	rows []models.LogEntry
}

func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{rows: make([]models.LogEntry, 0, 128)}
}

func (s *MemoryLogStore) Append(_ context.Context, entry models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, cloneEntry(entry))
	return nil
}

func (s *MemoryLogStore) LatestStay(_ context.Context, token string, slideIndex int) (*models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := -1
	for i, row := range s.rows {
		if row.Token != token || row.Kind != models.EventStay || row.Slide() != slideIndex {
			continue
		}
		if latest < 0 || !row.Timestamp.Before(s.rows[latest].Timestamp) {
			latest = i
		}
	}
	if latest < 0 {
		return nil, nil
	}
	found := cloneEntry(s.rows[latest])
	return &found, nil
}

func (s *MemoryLogStore) UpdateStay(_ context.Context, id string, prevAt time.Time, durationMs int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		row := &s.rows[i]
		if row.ID != id || row.Kind != models.EventStay {
			continue
		}
		if !row.Timestamp.Equal(prevAt) {
			return false, nil
		}
		d := durationMs
		row.DurationMs = &d
		row.Timestamp = at
		return true, nil
	}
	return false, nil
}

func (s *MemoryLogStore) ListByToken(_ context.Context, token string) ([]models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LogEntry, 0)
	for _, row := range s.rows {
		if row.Token == token {
			out = append(out, cloneEntry(row))
		}
	}
	return out, nil
}

func (s *MemoryLogStore) CountByKind(_ context.Context, kind models.EventKind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, row := range s.rows {
		if row.Kind == kind {
			n++
		}
	}
	return n, nil
}

// cloneEntry detaches the pointer fields so callers never alias stored rows.
func cloneEntry(e models.LogEntry) models.LogEntry {
	if e.SlideIndex != nil {
		v := *e.SlideIndex
		e.SlideIndex = &v
	}
	if e.DurationMs != nil {
		v := *e.DurationMs
		e.DurationMs = &v
	}
	return e
}
