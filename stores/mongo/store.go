package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"
	"whiteboard-server/core"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "kv"

type mongoStore struct {
	client *mongo.Client
	kv     *mongo.Collection
}

type entry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewStore connects to uri and uses the kv collection of database.
func NewStore(ctx context.Context, uri, database string) (core.KeyValueStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to reach mongodb: %w", err)
	}

	return &mongoStore{
		client: client,
		kv:     client.Database(database).Collection(collectionName),
	}, nil
}

func (s *mongoStore) Get(ctx context.Context, key string) (string, error) {
	log := logrus.WithField("key", key)

	var e entry
	err := s.kv.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Debug("Key not found")
			return "", fmt.Errorf("key %s: %w", key, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve value")
		return "", err
	}

	log.WithField("data_length", len(e.Value)).Debug("Value retrieved successfully")
	return e.Value, nil
}

func (s *mongoStore) Set(ctx context.Context, key, value string) error {
	log := logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(value),
	})

	_, err := s.kv.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": time.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.WithError(err).Error("Failed to store value")
		return err
	}

	log.Debug("Value stored successfully")
	return nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
