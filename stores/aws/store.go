package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"whiteboard-server/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
	prefix   string
}

// NewStore creates a store keeping one object per key in bucketName, below
// an optional key prefix.
func NewStore(ctx context.Context, bucketName, prefix string) (core.KeyValueStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
		prefix:   prefix,
	}, nil
}

func (s *s3Store) objectKey(key string) (string, error) {
	if key == "" || key == "." || key == ".." || path.Base(key) != key {
		return "", fmt.Errorf("invalid key %q: must not be a path", key)
	}
	if s.prefix == "" {
		return key, nil
	}
	return path.Join(s.prefix, key), nil
}

func (s *s3Store) Get(ctx context.Context, key string) (string, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	log := logrus.WithFields(logrus.Fields{"bucket": s.bucket, "key": objectKey})

	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Debug("Key not found")
			return "", fmt.Errorf("key %s: %w", key, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to get object")
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read object data: %w", err)
	}

	log.WithField("data_length", len(data)).Debug("Value retrieved successfully")
	return string(data), nil
}

func (s *s3Store) Set(ctx context.Context, key, value string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{
		"bucket":      s.bucket,
		"key":         objectKey,
		"data_length": len(value),
	})

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader([]byte(value)),
	})
	if err != nil {
		log.WithError(err).Error("Failed to put object")
		return fmt.Errorf("failed to store key %s: %w", key, err)
	}

	log.Debug("Value stored successfully")
	return nil
}
