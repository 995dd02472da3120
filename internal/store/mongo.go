package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI              string
	Database         string
	ConnectTimeout   time.Duration
	SelectionTimeout time.Duration
	OperationTimeout time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
}

func (c *MongoConfig) applyDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.SelectionTimeout <= 0 {
		c.SelectionTimeout = 5 * time.Second
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 5 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
}

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	client   *mongo.Client
	database string
	timeout  time.Duration
	log      *zap.Logger
}

// NewMongoStore connects to MongoDB with bounded retry. Exhausting the
// retries is a startup failure; the caller is expected to give up.
func NewMongoStore(cfg MongoConfig, log *zap.Logger) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database is required")
	}
	cfg.applyDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		log.Info("connecting to MongoDB",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxRetries),
		)

		client, err := connectOnce(cfg)
		if err == nil {
			log.Info("MongoDB connection established", zap.String("database", cfg.Database))
			return &MongoStore{
				client:   client,
				database: cfg.Database,
				timeout:  cfg.OperationTimeout,
				log:      log,
			}, nil
		}

		lastErr = err
		log.Warn("MongoDB connection failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < cfg.MaxRetries {
			time.Sleep(cfg.RetryDelay)
		}
	}
	return nil, fmt.Errorf("mongodb unreachable after %d attempts: %w", cfg.MaxRetries, lastErr)
}

func connectOnce(cfg MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.SelectionTimeout).
		SetConnectTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.client.Database(s.database).Collection(name)
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// toBson translates a backend-neutral filter into a MongoDB query.
// Substring and prefix matches quote the value so user input is never
// interpreted as a regex.
func toBson(filter Filter) bson.M {
	q := bson.M{}
	for field, m := range filter {
		switch m.Op {
		case OpContains:
			q[field] = bson.M{"$regex": regexp.QuoteMeta(m.Value), "$options": "i"}
		case OpPrefix:
			q[field] = bson.M{"$regex": "^" + regexp.QuoteMeta(m.Value)}
		default:
			q[field] = m.Value
		}
	}
	return q
}

// fromBson strips the store-internal _id; the natural key is a regular
// field and _id never leaves this package.
func fromBson(m bson.M) Document {
	delete(m, "_id")
	return Document(m)
}

func (s *MongoStore) InsertOne(ctx context.Context, collection string, doc Document) error {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.collection(collection).InsertOne(opCtx, bson.M(doc))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

func (s *MongoStore) Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	fo := options.Find()
	if opts.SortField != "" {
		order := 1
		if opts.SortDesc {
			order = -1
		}
		fo.SetSort(bson.D{{Key: opts.SortField, Value: order}})
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}

	cur, err := s.collection(collection).Find(opCtx, toBson(filter), fo)
	if err != nil {
		return nil, err
	}
	defer cur.Close(opCtx)

	out := []Document{}
	for cur.Next(opCtx) {
		m := bson.M{}
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, fromBson(m))
	}
	return out, cur.Err()
}

func (s *MongoStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	m := bson.M{}
	err := s.collection(collection).FindOne(opCtx, toBson(filter)).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoDocuments
	}
	if err != nil {
		return nil, err
	}
	return fromBson(m), nil
}

func (s *MongoStore) FindOneAndUpdate(ctx context.Context, collection string, filter Filter, set Document) (Document, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	m := bson.M{}
	err := s.collection(collection).
		FindOneAndUpdate(opCtx, toBson(filter), bson.M{"$set": bson.M(set)}, opts).
		Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoDocuments
	}
	if err != nil {
		return nil, err
	}
	return fromBson(m), nil
}

func (s *MongoStore) FindOneAndDelete(ctx context.Context, collection string, filter Filter) (Document, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	m := bson.M{}
	err := s.collection(collection).FindOneAndDelete(opCtx, toBson(filter)).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoDocuments
	}
	if err != nil {
		return nil, err
	}
	return fromBson(m), nil
}

func (s *MongoStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.collection(collection).CountDocuments(opCtx, toBson(filter))
}

func (s *MongoStore) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.collection(collection).Indexes().CreateOne(opCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Ping(opCtx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(opCtx); err != nil {
		return fmt.Errorf("close mongodb connection: %w", err)
	}
	return nil
}
