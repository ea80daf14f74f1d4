// Package logstore is the append-only audit log behind every API call.
//
// A Store keeps the full ordered sequence in memory for fast reads and
// writes each entry through a repository before acknowledging it. Appends
// are serialized by a single mutex, so sequence numbers equal arrival order
// and an entry is visible to readers only once it is durable.
package logstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tuncerburak97/securecall/internal/model"
	"github.com/tuncerburak97/securecall/internal/repository"
)

// ErrPersistenceFailure is matched by errors.Is when stable storage rejects an append.
var ErrPersistenceFailure = errors.New("log persistence failure")

type Store struct {
	repo repository.LogRepository
	now  func() time.Time

	mu      sync.RWMutex
	entries []model.LogEntry
	lastSeq int64
}

type Option func(*Store)

// WithClock overrides the timestamp source for new entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open rehydrates a store from repo.
func Open(ctx context.Context, repo repository.LogRepository, opts ...Option) (*Store, error) {
	entries, err := repo.LoadLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted logs: %w", err)
	}

	s := &Store{
		repo:    repo,
		now:     time.Now,
		entries: entries,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, e := range entries {
		if e.Seq <= s.lastSeq {
			return nil, fmt.Errorf("persisted log out of order at seq %d", e.Seq)
		}
		s.lastSeq = e.Seq
	}
	return s, nil
}

// Append assigns the next sequence number, persists entry and then publishes
// it to readers. ID and Timestamp are filled in when empty. On failure the
// store is unchanged and the error wraps ErrPersistenceFailure.
func (s *Store) Append(ctx context.Context, entry model.LogEntry) (model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry = entry.Clone()
	entry.Seq = s.lastSeq + 1
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	entry.Timestamp = entry.Timestamp.UTC().Truncate(time.Millisecond)

	entry, err := normalize(entry)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("%w: encode entry: %w", ErrPersistenceFailure, err)
	}

	if err := s.repo.SaveLog(ctx, &entry); err != nil {
		return model.LogEntry{}, fmt.Errorf("%w: seq %d: %w", ErrPersistenceFailure, entry.Seq, err)
	}

	s.entries = append(s.entries, entry)
	s.lastSeq = entry.Seq
	return entry.Clone(), nil
}

// ReadRecent returns the n most recent entries, oldest first.
func (s *Store) ReadRecent(n int) []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	start := len(s.entries) - n
	if start < 0 {
		start = 0
	}
	return cloneAll(s.entries[start:])
}

// ReadAll returns every entry in append order.
func (s *Store) ReadAll() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.entries)
}

// Raw returns the persisted form of the log as stored by the repository.
func (s *Store) Raw(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo.Export(ctx)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Close()
}

// normalize round-trips the entry through its JSON form so the in-memory
// copy matches exactly what a restart would load back.
func normalize(e model.LogEntry) (model.LogEntry, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return model.LogEntry{}, err
	}
	var out model.LogEntry
	if err := json.Unmarshal(data, &out); err != nil {
		return model.LogEntry{}, err
	}
	return out, nil
}

func cloneAll(entries []model.LogEntry) []model.LogEntry {
	out := make([]model.LogEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
