package store

import (
	"context"
	"strings"
	"sync"

	"fila-system/models"
	"fila-system/utils"
)

// MemoryQueueStore keeps the queue in process memory. It backs tests and
// single-node development runs without an external store.
type MemoryQueueStore struct {
	mu      sync.RWMutex
	entries []models.QueueEntry
}

func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{}
}

func (s *MemoryQueueStore) List(_ context.Context) ([]models.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.QueueEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryQueueStore) Get(_ context.Context, id string) (models.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return models.QueueEntry{}, ErrNotFound
}

func (s *MemoryQueueStore) Append(_ context.Context, entry models.QueueEntry) (models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		code, err := utils.GenerateCode(8)
		if err != nil {
			return models.QueueEntry{}, err
		}
		entry.ID = strings.ToLower(code)
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *MemoryQueueStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// MemoryServiceLog is the in-memory counterpart of the service log.
type MemoryServiceLog struct {
	mu      sync.RWMutex
	records []models.ServiceRecord
}

func NewMemoryServiceLog() *MemoryServiceLog {
	return &MemoryServiceLog{}
}

func (l *MemoryServiceLog) Append(_ context.Context, rec models.ServiceRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
	return nil
}

func (l *MemoryServiceLog) Records(_ context.Context) ([]models.ServiceRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.ServiceRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}
