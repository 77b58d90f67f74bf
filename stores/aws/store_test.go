package aws

import (
	"context"
	"errors"
	"os"
	"testing"
	"whiteboard-server/core"
)

func TestObjectKey(t *testing.T) {
	s := &s3Store{bucket: "boards", prefix: "whiteboards"}

	got, err := s.objectKey(core.DataKey)
	if err != nil {
		t.Fatalf("objectKey() failed: %v", err)
	}
	if got != "whiteboards/"+core.DataKey {
		t.Errorf("objectKey() = %q", got)
	}

	s.prefix = ""
	got, _ = s.objectKey("team:" + core.ThemeKey)
	if got != "team:"+core.ThemeKey {
		t.Errorf("objectKey() without prefix = %q", got)
	}
}

func TestObjectKey_RejectsPaths(t *testing.T) {
	s := &s3Store{bucket: "boards"}
	for _, key := range []string{"", ".", "..", "a/b", "../secret"} {
		if _, err := s.objectKey(key); err == nil {
			t.Errorf("objectKey(%q) should fail", key)
		}
	}
}

// TestLiveBucket runs against a real bucket when S3_TEST_BUCKET is set.
func TestLiveBucket(t *testing.T) {
	bucket := os.Getenv("S3_TEST_BUCKET")
	if bucket == "" {
		t.Skip("S3_TEST_BUCKET not set")
	}
	ctx := context.Background()

	store, err := NewStore(ctx, bucket, "whiteboard-test")
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	if err := store.Set(ctx, core.ThemeKey, "dark"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if value, err := store.Get(ctx, core.ThemeKey); err != nil || value != "dark" {
		t.Errorf("Get() = (%q, %v)", value, err)
	}
	if _, err := store.Get(ctx, "never-written"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() of missing key error = %v, want ErrNotFound", err)
	}
}
