package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	ora "github.com/sijms/go-ora/v2"
	"github.com/tuncerburak97/securecall/internal/config"
	"github.com/tuncerburak97/securecall/internal/repository/couchbase"
	"github.com/tuncerburak97/securecall/internal/repository/file"
	"github.com/tuncerburak97/securecall/internal/repository/memory"
	"github.com/tuncerburak97/securecall/internal/repository/mongo"
	"github.com/tuncerburak97/securecall/internal/repository/oracle"
	"github.com/tuncerburak97/securecall/internal/repository/postgres"
	"github.com/tuncerburak97/securecall/internal/repository/redis"
	"github.com/tuncerburak97/securecall/internal/repository/sqlite"
)

// NewRepository connects the backend selected by cfg.Type and runs its migrations.
func NewRepository(ctx context.Context, cfg *config.StoreConfig) (LogRepository, error) {
	log := zerolog.Ctx(ctx)

	repo, err := newRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Str("type", cfg.Type).Msg("Log repository ready")
	return repo, nil
}

func newRepository(ctx context.Context, cfg *config.StoreConfig) (LogRepository, error) {
	log := zerolog.Ctx(ctx)
	db := cfg.DB

	switch cfg.Type {
	case "", "file":
		return file.NewFileRepository(cfg.Path), nil

	case "sqlite":
		return sqlite.NewSQLiteRepository(cfg.Path)

	case "memory":
		return memory.NewMemoryRepository(), nil

	case "postgres":
		log.Info().
			Str("type", "postgres").
			Str("host", db.Host).
			Int("port", db.Port).
			Str("database", db.Database).
			Msg("Connecting to database")

		connStr := fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?pool_max_conns=%d&pool_min_conns=%d",
			db.User, db.Password, db.Host, db.Port, db.Database,
			db.Pool.MaxConns, db.Pool.MinConns,
		)
		return postgres.NewPostgresRepository(ctx, connStr)

	case "oracle":
		connStr := ora.BuildUrl(db.Host, db.Port, db.Database, db.User, db.Password, nil)
		return oracle.NewOracleRepository(connStr)

	case "couchbase":
		connStr := fmt.Sprintf(
			"couchbase://%s:%d",
			db.Host, db.Port,
		)
		return couchbase.NewCouchbaseRepository(connStr, db.Database, db.User, db.Password)

	case "mongodb":
		uri := db.URI
		if uri == "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", db.User, db.Password, db.Host, db.Port)
		}
		return mongo.NewMongoRepository(ctx, uri, db.Database)

	case "redis":
		r := cfg.Redis
		return redis.NewRedisRepository(r.Host, r.Port, r.Password, r.DB, r.Key, cfg.Timeout)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
