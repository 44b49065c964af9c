package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoKV struct {
	client *mongo.Client
	docs   *mongo.Collection
}

type mongoDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func NewMongoKV(ctx context.Context, cfg MongoDBConfig) (*MongoKV, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, fmt.Errorf("database.mongodb.uri and database.mongodb.database must be set to use driver=mongodb")
	}
	if cfg.Collection == "" {
		cfg.Collection = "bot_documents"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &MongoKV{
		client: client,
		docs:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (m *MongoKV) Load(ctx context.Context, key string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc mongoDocument
	err := m.docs.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return decode(key, []byte(doc.Value), v)
}

func (m *MongoKV) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = m.docs.ReplaceOne(
		ctx,
		bson.M{"_id": key},
		mongoDocument{Key: key, Value: string(data), UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (m *MongoKV) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
