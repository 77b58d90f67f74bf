package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"whiteboard-server/core"
)

func setupTestDB(t *testing.T) *sqliteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	s := store.(*sqliteStore)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	defer store.(*sqliteStore).Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("NewStore() did not create database file")
	}
}

func TestNewStore_TableCreated(t *testing.T) {
	store := setupTestDB(t)

	var tableName string
	err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv'").Scan(&tableName)
	if err != nil {
		t.Fatalf("kv table not created: %v", err)
	}
}

func TestSetGet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Set(ctx, core.ThemeKey, "dark"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	value, err := store.Get(ctx, core.ThemeKey)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if value != "dark" {
		t.Errorf("Get() = %q, want dark", value)
	}
}

func TestSet_Upserts(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.Set(ctx, core.DataKey, "first")
	if err := store.Set(ctx, core.DataKey, "second"); err != nil {
		t.Fatalf("second Set() failed: %v", err)
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM kv WHERE key = ?", core.DataKey).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}

	value, _ := store.Get(ctx, core.DataKey)
	if value != "second" {
		t.Errorf("Get() = %q, want second", value)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSet_EmptyKey(t *testing.T) {
	store := setupTestDB(t)
	if err := store.Set(context.Background(), "", "value"); err == nil {
		t.Error("Set() with empty key should fail")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	first, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	large := "data:image/png;base64," + strings.Repeat("B", 256*1024)
	if err := first.Set(ctx, core.DataKey, large); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	first.(*sqliteStore).Close()

	second, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.(*sqliteStore).Close()

	value, err := second.Get(ctx, core.DataKey)
	if err != nil {
		t.Fatalf("Get() after reopen failed: %v", err)
	}
	if value != large {
		t.Errorf("Get() after reopen returned %d bytes, want %d", len(value), len(large))
	}
}

func TestConcurrentSet(t *testing.T) {
	store := setupTestDB(t)
	store.db.SetMaxOpenConns(1)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			if err := store.Set(ctx, core.DataKey, "writer-"+string(rune('0'+index))); err != nil {
				t.Errorf("concurrent Set() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	value, err := store.Get(ctx, core.DataKey)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !strings.HasPrefix(value, "writer-") {
		t.Errorf("Get() = %q, want one of the writers", value)
	}
}
