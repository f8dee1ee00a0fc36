package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pastelchat/internal/database"
)

// exerciseStateStore runs the same contract checks against any backend.
func exerciseStateStore(t *testing.T, store StateStore) {
	t.Helper()
	ctx := context.Background()
	key := "test_state_" + filepath.Base(t.Name())

	t.Cleanup(func() { store.Delete(context.Background(), key) })

	if _, ok, err := store.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, key, `[{"role":"user","content":"hi"}]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected stored key, got ok=%v err=%v", ok, err)
	}
	if value != `[{"role":"user","content":"hi"}]` {
		t.Errorf("unexpected value %q", value)
	}

	if err := store.Set(ctx, key, "[]"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	value, _, _ = store.Get(ctx, key)
	if value != "[]" {
		t.Errorf("expected overwritten value, got %q", value)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, key); ok {
		t.Errorf("expected key to be gone after Delete")
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestFileStateRepo(t *testing.T) {
	store, err := NewFileStateRepo(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("NewFileStateRepo failed: %v", err)
	}
	exerciseStateStore(t, store)
}

func TestFileStateRepo_EscapesKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStateRepo(dir)
	if err != nil {
		t.Fatalf("NewFileStateRepo failed: %v", err)
	}

	if err := store.Set(context.Background(), "../escape", "x"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.json")); err == nil {
		t.Fatalf("key must not escape the state directory")
	}
	value, ok, err := store.Get(context.Background(), "../escape")
	if err != nil || !ok || value != "x" {
		t.Errorf("expected round trip for escaped key, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestSQLiteStateRepo(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer db.Close()

	exerciseStateStore(t, NewSQLiteStateRepo(db))
}

func TestRedisStateRepo(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := database.NewRedisClient(url)
	if err != nil {
		t.Fatalf("redis connect failed: %v", err)
	}
	defer client.Close()

	exerciseStateStore(t, NewRedisStateRepo(client))
}

func TestPostgresStateRepo(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := database.NewPostgresPool(url)
	if err != nil {
		t.Fatalf("postgres connect failed: %v", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(pool, database.Migrations); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	exerciseStateStore(t, NewPostgresStateRepo(pool))
}
