// Package file persists the audit log as a single JSON array on disk.
//
// Every append rewrites the array to a temp file, syncs it and renames it over
// the previous version, so a reader of the file sees either the old or the new
// array and never a partial entry.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tuncerburak97/securecall/internal/model"
)

type FileRepository struct {
	Path string

	mu     sync.Mutex
	lines  []json.RawMessage
	loaded bool
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{Path: path}
}

func (r *FileRepository) SaveLog(ctx context.Context, entry *model.LogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		lines, err := r.read()
		if err != nil {
			return err
		}
		r.lines, r.loaded = lines, true
	}

	next := make([]json.RawMessage, len(r.lines), len(r.lines)+1)
	copy(next, r.lines)
	next = append(next, line)

	if err := r.write(model.JoinArrayLines(next)); err != nil {
		return err
	}
	r.lines = next
	return nil
}

func (r *FileRepository) LoadLogs(ctx context.Context) ([]model.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines, err := r.read()
	if err != nil {
		return nil, err
	}
	r.lines, r.loaded = lines, true

	entries := make([]model.LogEntry, 0, len(lines))
	for i, line := range lines {
		var e model.LogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("decode entry %d of %s: %w", i, r.Path, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *FileRepository) Export(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(r.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, model.ErrLogNotFound
	}
	return data, err
}

// Migrate creates the parent directory and an empty array file if absent.
func (r *FileRepository) Migrate(ctx context.Context) error {
	log := zerolog.Ctx(ctx)

	if dir := filepath.Dir(r.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	if _, err := os.Stat(r.Path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	log.Info().Str("path", r.Path).Msg("Initializing empty log file")
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(model.JoinArrayLines(nil))
}

func (r *FileRepository) Close() error {
	return nil
}

func (r *FileRepository) read() ([]json.RawMessage, error) {
	data, err := os.ReadFile(r.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.Path, err)
	}
	lines := make([]json.RawMessage, 0, len(raw))
	for _, item := range raw {
		var buf bytes.Buffer
		if err := json.Compact(&buf, item); err != nil {
			return nil, err
		}
		lines = append(lines, buf.Bytes())
	}
	return lines, nil
}

func (r *FileRepository) write(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.Path), filepath.Base(r.Path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, r.Path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
