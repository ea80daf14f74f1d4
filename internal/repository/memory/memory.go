// Package memory is a non-durable repository for ephemeral runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/tuncerburak97/securecall/internal/model"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	entries []model.LogEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) SaveLog(ctx context.Context, entry *model.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry.Clone())
	return nil
}

func (r *MemoryRepository) LoadLogs(ctx context.Context) ([]model.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.LogEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Clone()
	}
	return out, nil
}

func (r *MemoryRepository) Export(ctx context.Context) ([]byte, error) {
	entries, _ := r.LoadLogs(ctx)
	return model.MarshalLogArray(entries)
}

func (r *MemoryRepository) Migrate(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
