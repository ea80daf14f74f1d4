package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/securecall/internal/model"
	"github.com/tuncerburak97/securecall/internal/repository/migrations"
)

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	pool, err := pgxpool.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &PostgresRepository{Pool: pool}, nil
}

func (r *PostgresRepository) SaveLog(ctx context.Context, entry *model.LogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = r.Pool.Exec(ctx,
		`INSERT INTO secure_call_log (
			seq, id, logged_at, source, path, client_ip, outcome, reason, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::json)`,
		entry.Seq, entry.ID, entry.Timestamp, entry.Source, entry.Path,
		entry.ClientIP, entry.Result.Outcome, entry.Result.Reason, string(payload),
	)
	return err
}

func (r *PostgresRepository) LoadLogs(ctx context.Context) ([]model.LogEntry, error) {
	logger := zerolog.Ctx(ctx)

	rows, err := r.Pool.Query(ctx, `SELECT payload::text FROM secure_call_log ORDER BY seq`)
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
			logger.Error().Err(err).Msg("Failed to decode log payload")
			return nil, err
		}
		entries = append(entries, e)
	}

	logger.Debug().Int("count", len(entries)).Msg("Loaded logs from database")
	return entries, rows.Err()
}

func (r *PostgresRepository) Export(ctx context.Context) ([]byte, error) {
	entries, err := r.LoadLogs(ctx)
	if err != nil {
		return nil, err
	}
	return model.MarshalLogArray(entries)
}

func (r *PostgresRepository) Close() error {
	r.Pool.Close()
	return nil
}

func (r *PostgresRepository) Migrate(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("Starting PostgreSQL migrations")

	_, err := r.Pool.Exec(ctx, migrations.PostgresSchema)
	if err != nil {
		log.Error().Err(err).Msg("PostgreSQL migrations failed")
		return fmt.Errorf("migration error: %w", err)
	}

	log.Info().Msg("PostgreSQL migrations completed successfully")
	return nil
}
