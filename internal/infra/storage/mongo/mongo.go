// Package mongo implements the transaction repository on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/infra/storage"
)

// Config holds the MongoDB connection settings.
type Config struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// TxRepo implements storage.TransactionRepository on a MongoDB collection.
type TxRepo struct {
	c   *mgo.Client
	col *mgo.Collection
}

var _ storage.TransactionRepository = (*TxRepo)(nil)

// New returns a repository connected to the configured database.
func New(ctx context.Context, cfg Config) (*TxRepo, error) {
	c, err := mgo.NewClient(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("cannot create mongo client for %s: %w", cfg.URI, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	db := cfg.Database
	if db == "" {
		db = "tokenwatch"
	}
	name := cfg.Collection
	if name == "" {
		name = "transactions"
	}

	return &TxRepo{c: c, col: c.Database(db).Collection(name)}, nil
}

// Save upserts on the signature. Unsigned events are inserted.
func (r *TxRepo) Save(ctx context.Context, event *domain.Event) error {
	sig := event.Signature()
	if sig == "" {
		if _, err := r.col.InsertOne(ctx, event); err != nil {
			return fmt.Errorf("could not insert transaction: %w", err)
		}
		return nil
	}

	_, err := r.col.ReplaceOne(ctx,
		bson.M{"summary.signature": sig},
		event,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("could not upsert transaction %s: %w", sig, err)
	}
	return nil
}

func (r *TxRepo) GetBySignature(ctx context.Context, signature string) (*domain.Event, error) {
	var event domain.Event
	err := r.col.FindOne(ctx, bson.M{"summary.signature": signature}).Decode(&event)
	if errors.Is(err, mgo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not find transaction: %w", err)
	}
	return &event, nil
}

// List returns the newest documents first, ordered by insertion id.
func (r *TxRepo) List(ctx context.Context, limit int) ([]*domain.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("could not list transactions: %w", err)
	}
	defer cur.Close(ctx)

	result := []*domain.Event{}
	for cur.Next(ctx) {
		var event domain.Event
		if err := cur.Decode(&event); err != nil {
			return nil, fmt.Errorf("could not decode transaction: %w", err)
		}
		result = append(result, &event)
	}
	return result, cur.Err()
}

func (r *TxRepo) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *TxRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"emitted_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("could not prune transactions: %w", err)
	}
	return res.DeletedCount, nil
}

// Close disconnects the client.
func (r *TxRepo) Close() error {
	return r.c.Disconnect(context.Background())
}
