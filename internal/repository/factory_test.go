package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuncerburak97/securecall/internal/config"
	"github.com/tuncerburak97/securecall/internal/repository/file"
	"github.com/tuncerburak97/securecall/internal/repository/memory"
	"github.com/tuncerburak97/securecall/internal/repository/sqlite"
)

func TestNewRepository_LocalBackends(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		cfg  config.StoreConfig
		want any
	}{
		{config.StoreConfig{Type: "file", Path: filepath.Join(dir, "log.json")}, &file.FileRepository{}},
		{config.StoreConfig{Type: "sqlite", Path: filepath.Join(dir, "log.db")}, &sqlite.SQLiteRepository{}},
		{config.StoreConfig{Type: "memory"}, &memory.MemoryRepository{}},
	}

	for _, tt := range tests {
		t.Run(tt.cfg.Type, func(t *testing.T) {
			repo, err := NewRepository(ctx, &tt.cfg)
			require.NoError(t, err)
			defer repo.Close()

			assert.IsType(t, tt.want, repo)
			entries, err := repo.LoadLogs(ctx)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestNewRepository_FileIsMigrated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	repo, err := NewRepository(context.Background(), &config.StoreConfig{Type: "file", Path: path})
	require.NoError(t, err)

	data, err := repo.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestNewRepository_Unsupported(t *testing.T) {
	_, err := NewRepository(context.Background(), &config.StoreConfig{Type: "cassandra"})
	assert.EqualError(t, err, "unsupported store type: cassandra")
}
