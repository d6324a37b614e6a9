// internal/snapshot/memory.go
package snapshot

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/averyhall/warcouncil/internal/models"
)

// MemoryBackend keeps save records in a mutex-guarded map. It is the
// default backend and the one the tests run against.
type MemoryBackend struct {
	mu   sync.Mutex
	recs map[uuid.UUID]models.SaveRecord
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{recs: make(map[uuid.UUID]models.SaveRecord)}
}

func (m *MemoryBackend) Put(_ context.Context, rec models.SaveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Session = rec.Session.Clone()
	m.recs[rec.ID] = rec
	return nil
}

func (m *MemoryBackend) Get(_ context.Context, id uuid.UUID) (models.SaveRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return models.SaveRecord{}, false, nil
	}
	rec.Session = rec.Session.Clone()
	return rec, true, nil
}

func (m *MemoryBackend) List(_ context.Context) ([]models.SaveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SaveRecord, 0, len(m.recs))
	for _, rec := range m.recs {
		rec.Session = rec.Session.Clone()
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryBackend) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.recs[id]
	delete(m.recs, id)
	return ok, nil
}
