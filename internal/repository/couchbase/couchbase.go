package couchbase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/securecall/internal/model"
	"github.com/tuncerburak97/securecall/internal/repository/migrations"
)

type CouchbaseRepository struct {
	Cluster *gocb.Cluster
	Bucket  *gocb.Bucket
}

func NewCouchbaseRepository(connStr, bucketName, username, password string) (*CouchbaseRepository, error) {
	cluster, err := gocb.Connect(
		connStr,
		gocb.ClusterOptions{
			Username: username,
			Password: password,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to Couchbase: %w", err)
	}

	bucket := cluster.Bucket(bucketName)
	err = bucket.WaitUntilReady(5*time.Second, nil)
	if err != nil {
		return nil, fmt.Errorf("bucket not ready: %w", err)
	}

	return &CouchbaseRepository{
		Cluster: cluster,
		Bucket:  bucket,
	}, nil
}

func documentKey(seq int64) string {
	return fmt.Sprintf("secure_call_log::%020d", seq)
}

// SaveLog inserts rather than upserts so a sequence number is written once.
func (r *CouchbaseRepository) SaveLog(ctx context.Context, entry *model.LogEntry) error {
	collection := r.Bucket.DefaultCollection()
	_, err := collection.Insert(
		documentKey(entry.Seq),
		entry,
		&gocb.InsertOptions{Context: ctx},
	)
	return err
}

func (r *CouchbaseRepository) LoadLogs(ctx context.Context) ([]model.LogEntry, error) {
	query := fmt.Sprintf(
		"SELECT l.* FROM `%s` l WHERE l.seq IS NOT MISSING ORDER BY l.seq",
		r.Bucket.Name(),
	)
	rows, err := r.Cluster.Query(query, &gocb.QueryOptions{
		ScanConsistency: gocb.QueryScanConsistencyRequestPlus,
		Context:         ctx,
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Row(&e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *CouchbaseRepository) Export(ctx context.Context) ([]byte, error) {
	entries, err := r.LoadLogs(ctx)
	if err != nil {
		return nil, err
	}
	return model.MarshalLogArray(entries)
}

func (r *CouchbaseRepository) Close() error {
	return r.Cluster.Close(nil)
}

func (r *CouchbaseRepository) Migrate(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("Starting Couchbase migrations")

	indexes := migrations.GetCouchbaseIndexes(r.Bucket.Name())
	for _, indexQuery := range indexes {
		_, err := r.Cluster.Query(indexQuery, &gocb.QueryOptions{Context: ctx})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			log.Error().Err(err).Str("query", indexQuery).Msg("Failed to create Couchbase index")
			return fmt.Errorf("index creation error: %w", err)
		}
	}

	log.Info().Msg("Couchbase migrations completed successfully")
	return nil
}
