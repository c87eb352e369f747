package session

import (
	"context"
	"sort"
	"sync"

	"kgeu-bot/internal/models"
)

// Memory is a process-local Store. Records are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	records map[int64]models.UserRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[int64]models.UserRecord)}
}

func (m *Memory) Get(_ context.Context, userID int64) (models.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[userID]
	if !ok {
		return models.UserRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) Upsert(_ context.Context, rec models.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[rec.UserID] = rec
	return nil
}

func (m *Memory) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, userID)
	return nil
}

func (m *Memory) ListNotified(_ context.Context) ([]models.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.UserRecord
	for _, rec := range m.records {
		if rec.NotificationsEnabled {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
