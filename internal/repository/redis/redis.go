package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/tuncerburak97/securecall/internal/model"
)

// RedisRepository keeps the log as a Redis list; RPUSH is atomic and keeps
// insertion order.
type RedisRepository struct {
	client *redis.Client
	key    string
}

func NewRedisRepository(host string, port int, password string, db int, key string, timeout time.Duration) (*RedisRepository, error) {
	log.Info().
		Str("host", host).
		Int("port", port).
		Int("db", db).
		Str("key", key).
		Msg("Attempting to connect to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to connect to Redis")
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Msg("Successfully connected to Redis")
	return &RedisRepository{client: client, key: key}, nil
}

func (r *RedisRepository) SaveLog(ctx context.Context, entry *model.LogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, r.key, payload).Err()
}

func (r *RedisRepository) LoadLogs(ctx context.Context) ([]model.LogEntry, error) {
	items, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LogEntry, 0, len(items))
	for i, item := range items {
		var e model.LogEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decode list item %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *RedisRepository) Export(ctx context.Context) ([]byte, error) {
	n, err := r.client.Exists(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, model.ErrLogNotFound
	}
	entries, err := r.LoadLogs(ctx)
	if err != nil {
		return nil, err
	}
	return model.MarshalLogArray(entries)
}

func (r *RedisRepository) Migrate(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
