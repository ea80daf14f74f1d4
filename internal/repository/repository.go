package repository

import (
	"context"

	"github.com/tuncerburak97/securecall/internal/model"
)

// LogRepository is the stable storage behind the audit log store.
// Implementations are not required to be safe for concurrent SaveLog calls;
// the log store serializes them.
type LogRepository interface {
	SaveLog(ctx context.Context, entry *model.LogEntry) error
	// LoadLogs returns every persisted entry ordered by Seq.
	LoadLogs(ctx context.Context) ([]model.LogEntry, error)
	// Export returns the raw persisted form, or model.ErrLogNotFound.
	Export(ctx context.Context) ([]byte, error)
	Migrate(ctx context.Context) error
	Close() error
}
