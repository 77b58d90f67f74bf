package memory

import (
	"context"
	"fmt"
	"sync"
	"whiteboard-server/core"

	"github.com/sirupsen/logrus"
)

type kvStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewStore() core.KeyValueStore {
	return &kvStore{
		values: make(map[string]string),
	}
}

func (s *kvStore) Get(ctx context.Context, key string) (string, error) {
	log := logrus.WithField("key", key)

	s.mu.RLock()
	value, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		log.Debug("Key not found")
		return "", fmt.Errorf("key %s: %w", key, core.ErrNotFound)
	}

	log.WithField("data_length", len(value)).Debug("Value retrieved successfully")
	return value, nil
}

func (s *kvStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(value),
	}).Debug("Value stored successfully")
	return nil
}
