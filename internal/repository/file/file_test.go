package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuncerburak97/securecall/internal/model"
)

func entry(seq int64) *model.LogEntry {
	return &model.LogEntry{
		Seq:       seq,
		ID:        "id-" + string(rune('a'+seq)),
		Timestamp: time.Date(2024, 5, 1, 12, 0, int(seq), 0, time.UTC),
		Source:    model.SourceSecure,
		ClientIP:  "127.0.0.1",
		Headers:   model.Headers{"X-Request-Id": "req"},
		Body:      json.RawMessage(`{"name":"Usman"}`),
		Path:      "/api/secure",
		Result:    model.Result{Outcome: model.OutcomeAccepted, StatusCode: 200},
	}
}

func TestFileRepository_ExportBeforeMigrate(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "log.json"))

	_, err := repo.Export(context.Background())
	assert.ErrorIs(t, err, model.ErrLogNotFound)
}

func TestFileRepository_MigrateInitializesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log.json")
	repo := NewFileRepository(path)

	require.NoError(t, repo.Migrate(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	entries, err := repo.LoadLogs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileRepository_MigrateKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	repo := NewFileRepository(path)
	ctx := context.Background()

	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.SaveLog(ctx, entry(1)))
	require.NoError(t, repo.Migrate(ctx))

	entries, err := NewFileRepository(path).LoadLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileRepository_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	ctx := context.Background()

	repo := NewFileRepository(path)
	require.NoError(t, repo.Migrate(ctx))
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, repo.SaveLog(ctx, entry(i)))
	}

	data, err := repo.Export(ctx)
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw), "persisted form must stay a JSON array")
	assert.Len(t, raw, 3)

	reopened := NewFileRepository(path)
	entries, err := reopened.LoadLogs(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, *entry(int64(i+1)), e)
	}
}

func TestFileRepository_SaveWithoutLoadKeepsExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	ctx := context.Background()

	first := NewFileRepository(path)
	require.NoError(t, first.SaveLog(ctx, entry(1)))

	second := NewFileRepository(path)
	require.NoError(t, second.SaveLog(ctx, entry(2)))

	entries, err := NewFileRepository(path).LoadLogs(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, int64(2), entries[1].Seq)
}

func TestFileRepository_ReadsIndentedArrays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	indented, err := json.MarshalIndent([]*model.LogEntry{entry(1)}, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, indented, 0o644))

	entries, err := NewFileRepository(path).LoadLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t, `{"name":"Usman"}`, string(entries[0].Body))
}

func TestFileRepository_SaveFailureLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.json")
	ctx := context.Background()

	repo := NewFileRepository(path)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.SaveLog(ctx, entry(1)))

	// Point the repository at a directory that no longer exists.
	repo.Path = filepath.Join(dir, "gone", "log.json")
	assert.Error(t, repo.SaveLog(ctx, entry(2)))

	entries, err := NewFileRepository(path).LoadLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
