package stores

import (
	"context"
	"os"
	"whiteboard-server/core"
	"whiteboard-server/stores/aws"
	"whiteboard-server/stores/filesystem"
	"whiteboard-server/stores/memory"
	"whiteboard-server/stores/mongo"
	"whiteboard-server/stores/redis"
	"whiteboard-server/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore builds the key-value store selected by STORAGE_TYPE. It exits the
// process when the selected backend cannot be opened.
func GetStore(ctx context.Context) core.KeyValueStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var (
		store core.KeyValueStore
		err   error
	)

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := envOr("LOCAL_STORAGE_PATH", "./data")
		storageField["basePath"] = basePath
		store, err = filesystem.NewStore(basePath)
	case "sqlite":
		dataSourceName := envOr("DATA_SOURCE_NAME", "whiteboard.db")
		storageField["dataSourceName"] = dataSourceName
		store, err = sqlite.NewStore(dataSourceName)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = bucketName
		store, err = aws.NewStore(ctx, bucketName, os.Getenv("S3_KEY_PREFIX"))
	case "redis":
		url := envOr("REDIS_URL", "redis://localhost:6379/0")
		storageField["url"] = url
		store, err = redis.NewStore(ctx, url)
	case "mongodb":
		database := envOr("MONGODB_DATABASE", "whiteboard")
		storageField["database"] = database
		store, err = mongo.NewStore(ctx, envOr("MONGODB_URI", "mongodb://localhost:27017"), database)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}

	if err != nil {
		logrus.WithFields(storageField).WithError(err).Fatal("Failed to open storage")
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
