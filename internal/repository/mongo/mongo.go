package mongo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tuncerburak97/securecall/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "secure_call_log"

type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoRepository(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	return &MongoRepository{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

// document keeps the body as a string so it survives BSON unchanged.
type document struct {
	Seq       int64         `bson:"seq"`
	ID        string        `bson:"_id"`
	Timestamp time.Time     `bson:"timestamp"`
	Source    string        `bson:"source"`
	ClientIP  string        `bson:"client_ip"`
	Headers   model.Headers `bson:"headers"`
	Body      string        `bson:"body,omitempty"`
	Path      string        `bson:"path"`
	Result    model.Result  `bson:"result"`
}

func toDocument(e *model.LogEntry) document {
	return document{
		Seq:       e.Seq,
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Source:    e.Source,
		ClientIP:  e.ClientIP,
		Headers:   e.Headers,
		Body:      string(e.Body),
		Path:      e.Path,
		Result:    e.Result,
	}
}

func (d document) entry() model.LogEntry {
	e := model.LogEntry{
		Seq:       d.Seq,
		ID:        d.ID,
		Timestamp: d.Timestamp.UTC(),
		Source:    d.Source,
		ClientIP:  d.ClientIP,
		Headers:   d.Headers,
		Path:      d.Path,
		Result:    d.Result,
	}
	if d.Body != "" {
		e.Body = json.RawMessage(d.Body)
	}
	return e
}

func (r *MongoRepository) SaveLog(ctx context.Context, entry *model.LogEntry) error {
	_, err := r.db.Collection(collectionName).InsertOne(ctx, toDocument(entry))
	return err
}

func (r *MongoRepository) LoadLogs(ctx context.Context) ([]model.LogEntry, error) {
	cursor, err := r.db.Collection(collectionName).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	entries := make([]model.LogEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, doc.entry())
	}
	return entries, nil
}

func (r *MongoRepository) Export(ctx context.Context) ([]byte, error) {
	entries, err := r.LoadLogs(ctx)
	if err != nil {
		return nil, err
	}
	return model.MarshalLogArray(entries)
}

func (r *MongoRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Collection(collectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
