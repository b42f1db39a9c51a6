package store

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"voice-appointment-service/internal/models"
)

// Memory keeps records in process. Thread-safe.
type Memory struct {
	mu      sync.RWMutex
	records []models.Record
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

// List returns a copy of every record ordered by start.
func (m *Memory) List(_ context.Context) ([]models.Record, error) {
	m.mu.RLock()
	out := slices.Clone(m.records)
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.Record) int {
		return a.Start.Compare(b.Start)
	})
	return out, nil
}

// Insert appends r, generating an id if needed.
func (m *Memory) Insert(_ context.Context, r models.Record) (models.Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.ServiceIDs = slices.Clone(r.ServiceIDs)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return r, nil
}

// Remove deletes the record with id.
func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.records, func(r models.Record) bool { return r.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	m.records = slices.Delete(m.records, i, i+1)
	return nil
}
