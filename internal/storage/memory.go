package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/chess-narrator/internal/domain"
)

// memoryRepository is used when no database is configured. Data is lost on restart.
type memoryRepository struct {
	mu     sync.RWMutex
	seq    int64
	byID   map[string]*memEntry
	byUser map[string][]*memEntry
}

type memEntry struct {
	seq int64
	rec domain.Recording
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:   make(map[string]*memEntry),
		byUser: make(map[string][]*memEntry),
	}
}

func (m *memoryRepository) SaveRecording(_ context.Context, rec *domain.Recording) error {
	if err := prepare(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	e := &memEntry{seq: m.seq, rec: *rec}
	if old, ok := m.byID[rec.ID]; ok {
		list := m.byUser[old.rec.UserID]
		for i, it := range list {
			if it == old {
				m.byUser[old.rec.UserID] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
	m.byID[rec.ID] = e
	m.byUser[rec.UserID] = append(m.byUser[rec.UserID], e)
	return nil
}

func (m *memoryRepository) ListRecordings(_ context.Context, userID string, limit int) ([]domain.Recording, error) {
	m.mu.RLock()
	items := append([]*memEntry(nil), m.byUser[userID]...)
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].rec.CreatedAt.Equal(items[j].rec.CreatedAt) {
			return items[i].rec.CreatedAt.After(items[j].rec.CreatedAt)
		}
		return items[i].seq > items[j].seq
	})
	limit = clampLimit(limit)
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]domain.Recording, 0, len(items))
	for _, e := range items {
		out = append(out, e.rec)
	}
	return out, nil
}

func (m *memoryRepository) GetRecording(_ context.Context, id string) (*domain.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := e.rec
	return &cp, nil
}

func (m *memoryRepository) Close() error { return nil }
