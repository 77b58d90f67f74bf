package redis

import (
	"context"
	"errors"
	"fmt"
	"whiteboard-server/core"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type redisStore struct {
	client *goredis.Client
}

// NewStore connects to the server named by a redis:// URL and checks it
// answers.
func NewStore(ctx context.Context, url string) (core.KeyValueStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.Addr, err)
	}
	return &redisStore{client: client}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	log := logrus.WithField("key", key)

	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			log.Debug("Key not found")
			return "", fmt.Errorf("key %s: %w", key, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve value")
		return "", err
	}

	log.WithField("data_length", len(value)).Debug("Value retrieved successfully")
	return value, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	log := logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(value),
	})

	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		log.WithError(err).Error("Failed to store value")
		return err
	}

	log.Debug("Value stored successfully")
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
