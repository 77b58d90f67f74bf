package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"whiteboard-server/core"

	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
}

// NewStore creates a store that keeps one file per key under basePath.
func NewStore(basePath string) (core.KeyValueStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &fsStore{basePath: basePath}, nil
}

// keyPath rejects anything that is not a plain file name.
func (s *fsStore) keyPath(key string) (string, error) {
	if key == "" || key == "." || key == ".." || filepath.Base(key) != key || filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid key %q: must be a plain name", key)
	}
	return filepath.Join(s.basePath, key), nil
}

func (s *fsStore) Get(ctx context.Context, key string) (string, error) {
	filePath, err := s.keyPath(key)
	if err != nil {
		return "", err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "file_path": filePath})

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("Key not found")
			return "", fmt.Errorf("key %s: %w", key, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to read value")
		return "", err
	}

	log.WithField("data_length", len(data)).Debug("Value retrieved successfully")
	return string(data), nil
}

// Set writes through a temporary file so a crash never leaves a torn value.
func (s *fsStore) Set(ctx context.Context, key, value string) error {
	filePath, err := s.keyPath(key)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{
		"key":         key,
		"file_path":   filePath,
		"data_length": len(value),
	})

	tmp, err := os.CreateTemp(s.basePath, "."+key+".*")
	if err != nil {
		log.WithError(err).Error("Failed to create temporary file")
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		log.WithError(err).Error("Failed to write value")
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		os.Remove(tmp.Name())
		log.WithError(err).Error("Failed to store value")
		return err
	}

	log.Debug("Value stored successfully")
	return nil
}
