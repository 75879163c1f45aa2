package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/BaSui01/planflow/allocation"
)

// mongoResult is the document layout in the results collection. The result
// itself is kept as the encoded JSON document so every back end shares one
// wire format.
type mongoResult struct {
	Key        string    `bson:"_id"`
	Owner      string    `bson:"owner_id"`
	Success    bool      `bson:"success"`
	Confidence float64   `bson:"confidence"`
	DocVersion int       `bson:"doc_version"`
	PhaseCount int       `bson:"phase_count"`
	Document   string    `bson:"document"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toMongoResult(rec Record, now time.Time) (mongoResult, error) {
	doc, err := allocation.Encode(rec.Result)
	if err != nil {
		return mongoResult{}, err
	}
	return mongoResult{
		Key:        rec.Key,
		Owner:      rec.Owner,
		Success:    rec.Result.IsSuccess(),
		Confidence: float64(rec.Result.Confidence()),
		DocVersion: allocation.DocumentVersion,
		PhaseCount: rec.Result.PhaseCount(),
		Document:   string(doc),
		UpdatedAt:  now.UTC(),
	}, nil
}

func (m mongoResult) record() (Record, error) {
	r, err := allocation.Decode([]byte(m.Document))
	if err != nil {
		return Record{}, err
	}
	return Record{Key: m.Key, Owner: m.Owner, Result: r, UpdatedAt: m.UpdatedAt}, nil
}

// MongoOptions configures NewMongoStore.
type MongoOptions struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// MongoStore persists records in a MongoDB collection keyed by _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	closed atomic.Bool
	logger *zap.Logger
}

// NewMongoStore connects to MongoDB and verifies the deployment is reachable.
func NewMongoStore(ctx context.Context, opts MongoOptions, logger *zap.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout)
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, storeFailure("connect", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, storeFailure("connect", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
		logger: logger.With(zap.String("component", "mongo_result_store")),
	}
	s.logger.Info("mongo result store connected",
		zap.String("database", opts.Database),
		zap.String("collection", opts.Collection),
	)
	return s, nil
}

// EnsureIndexes creates the owner index used by Keys.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}},
		Options: options.Index().SetName("idx_allocation_results_owner"),
	})
	if err != nil {
		return storeFailure("index", err)
	}
	return nil
}

func (s *MongoStore) Save(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	doc, err := toMongoResult(rec, time.Now())
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: rec.Key}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return storeFailure("save", err)
	}
	s.logger.Debug("result saved", zap.String("key", rec.Key), zap.String("owner", rec.Owner))
	return nil
}

func (s *MongoStore) Load(ctx context.Context, key string) (Record, error) {
	if s.closed.Load() {
		return Record{}, ErrClosed
	}
	var doc mongoResult
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, notFound(key)
	}
	if err != nil {
		return Record{}, storeFailure("load", err)
	}
	return doc.record()
}

func (s *MongoStore) Delete(ctx context.Context, key string) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}})
	if err != nil {
		return false, storeFailure("delete", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) Keys(ctx context.Context, owner string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	filter := bson.D{}
	if owner != "" {
		filter = bson.D{{Key: "owner_id", Value: owner}}
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, storeFailure("keys", err)
	}
	var docs []struct {
		Key string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storeFailure("keys", err)
	}
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		keys = append(keys, d.Key)
	}
	return keys, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.client.Ping(ctx, nil); err != nil {
		return storeFailure("ping", err)
	}
	return nil
}

// Close disconnects the client. It is safe to call more than once.
func (s *MongoStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
