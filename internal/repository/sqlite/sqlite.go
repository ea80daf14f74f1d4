package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/tuncerburak97/securecall/internal/model"
	"github.com/tuncerburak97/securecall/internal/repository/migrations"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	DB *sql.DB
}

func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// One connection keeps writes ordered and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{DB: db}, nil
}

func (r *SQLiteRepository) SaveLog(ctx context.Context, entry *model.LogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO secure_call_log (
			seq, id, logged_at, source, path, client_ip, outcome, reason, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Seq, entry.ID, entry.Timestamp.UnixMilli(), entry.Source, entry.Path,
		entry.ClientIP, entry.Result.Outcome, entry.Result.Reason, string(payload),
	)
	return err
}

func (r *SQLiteRepository) LoadLogs(ctx context.Context) ([]model.LogEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT payload FROM secure_call_log ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e model.LogEntry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) Export(ctx context.Context) ([]byte, error) {
	entries, err := r.LoadLogs(ctx)
	if err != nil {
		return nil, err
	}
	return model.MarshalLogArray(entries)
}

func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("Starting SQLite migrations")

	for _, stmt := range migrations.SQLiteSchema {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			log.Error().Err(err).Msg("SQLite migrations failed")
			return fmt.Errorf("migration error: %w", err)
		}
	}

	log.Info().Msg("SQLite migrations completed successfully")
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.DB.Close()
}
