package oracle

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	_ "github.com/sijms/go-ora/v2"
	"github.com/tuncerburak97/securecall/internal/model"
	"github.com/tuncerburak97/securecall/internal/repository/migrations"
)

type OracleRepository struct {
	DB *sql.DB
}

func NewOracleRepository(connStr string) (*OracleRepository, error) {
	db, err := sql.Open("oracle", connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to Oracle: %w", err)
	}

	return &OracleRepository{DB: db}, nil
}

func (r *OracleRepository) SaveLog(ctx context.Context, entry *model.LogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO secure_call_log (
			seq, id, logged_at, source, path, client_ip, outcome, reason, payload
		) VALUES (:1, :2, :3, :4, :5, :6, :7, :8, :9)`,
		entry.Seq, entry.ID, entry.Timestamp, entry.Source, entry.Path,
		entry.ClientIP, entry.Result.Outcome, entry.Result.Reason, string(payload),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OracleRepository) LoadLogs(ctx context.Context) ([]model.LogEntry, error) {
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

func (r *OracleRepository) Export(ctx context.Context) ([]byte, error) {
	entries, err := r.LoadLogs(ctx)
	if err != nil {
		return nil, err
	}
	return model.MarshalLogArray(entries)
}

func (r *OracleRepository) Close() error {
	return r.DB.Close()
}

func (r *OracleRepository) Migrate(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("Starting Oracle migrations")

	for _, stmt := range migrations.OracleSchema {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			log.Error().Err(err).Msg("Oracle migrations failed")
			return fmt.Errorf("migration error: %w", err)
		}
	}

	log.Info().Msg("Oracle migrations completed successfully")
	return nil
}
