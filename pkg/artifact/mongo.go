package artifact

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/spritestack/pkg/cache"
	"github.com/matzehuels/spritestack/pkg/export"
)

const (
	// DefaultMongoDatabase is used when the URI names no database.
	DefaultMongoDatabase = "spritestack"

	// MongoCollection holds one document per distinct export.
	MongoCollection = "exports"
)

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI      string
	Database string

	// ConnectTimeout bounds the initial connect and ping.
	ConnectTimeout time.Duration
}

// MongoStore records exports in a MongoDB collection, one document per key.
// Re-exporting the same layer stack replaces the document.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDoc struct {
	Record `bson:",inline"`
	Data   primitive.Binary `bson:"data"`
}

// NewMongoStore connects and pings the server, retrying transient network
// failures.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	err = cache.ConnectBackoff.Retry(ctx, func() error {
		pctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		if err := client.Ping(pctx, nil); err != nil {
			return cache.Retryable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(MongoCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	return nil
}

// Put upserts the artifact under rec.Key and returns "mongodb://<db>/<coll>/<key>".
func (s *MongoStore) Put(ctx context.Context, art *export.Artifact, rec Record) (string, error) {
	doc := newMongoDoc(art, rec)
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"key": doc.Key},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("mongo put %s: %w", doc.Key, err)
	}
	return fmt.Sprintf("mongodb://%s/%s/%s", s.coll.Database().Name(), s.coll.Name(), doc.Key), nil
}

// Get loads the stored record and bytes for key.
func (s *MongoStore) Get(ctx context.Context, key string) (Record, []byte, error) {
	var doc mongoDoc
	if err := s.coll.FindOne(ctx, bson.M{"key": key}).Decode(&doc); err != nil {
		return Record{}, nil, err
	}
	return doc.Record, doc.Data.Data, nil
}

// Close disconnects from the server.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func newMongoDoc(art *export.Artifact, rec Record) mongoDoc {
	if rec.Key == "" {
		rec.Key = cache.Hash(art.Data)
	}
	return mongoDoc{
		Record: rec,
		Data:   primitive.Binary{Subtype: bson.TypeBinaryGeneric, Data: art.Data},
	}
}

var _ Store = (*MongoStore)(nil)
