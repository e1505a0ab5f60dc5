package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestPoolSharesStore(t *testing.T) {
	ctx := context.Background()
	pool := NewPool()
	path := filepath.Join(t.TempDir(), "shared.db")

	a, err := pool.Acquire(ctx, path, 2)
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	b, err := pool.Acquire(ctx, path, 2)
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	if a.SQLiteStore != b.SQLiteStore {
		t.Fatal("expected both handles to share one store")
	}
	if n := pool.Refs(path, 2); n != 2 {
		t.Errorf("expected 2 refs, got %d", n)
	}

	id, err := a.InsertChunk(ctx, "shared", []float32{1, 0})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	a.Close()
	a.Close() // idempotent per handle
	if n := pool.Refs(path, 2); n != 1 {
		t.Errorf("expected 1 ref after release, got %d", n)
	}

	if _, err := b.GetChunk(ctx, id); err != nil {
		t.Errorf("expected store to stay open for b: %v", err)
	}

	b.Close()
	if n := pool.Refs(path, 2); n != 0 {
		t.Errorf("expected 0 refs, got %d", n)
	}

	c, err := pool.Acquire(ctx, path, 2)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	defer c.Close()
	if n, _ := c.Count(ctx); n != 1 {
		t.Errorf("expected data to survive full release, got %d chunks", n)
	}
}

func TestPoolKeyedByDimension(t *testing.T) {
	ctx := context.Background()
	pool := NewPool()
	dir := t.TempDir()

	a, err := pool.Acquire(ctx, filepath.Join(dir, "a.db"), 2)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer a.Close()
	b, err := pool.Acquire(ctx, filepath.Join(dir, "b.db"), 4)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer b.Close()

	if a.SQLiteStore == b.SQLiteStore {
		t.Error("expected distinct stores for distinct paths")
	}
	if b.Dimension() != 4 {
		t.Errorf("expected dimension 4, got %d", b.Dimension())
	}
}

func TestPoolRelativePath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	t.Chdir(dir)

	pool := NewPool()
	a, err := pool.Acquire(ctx, "rel.db", 2)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer a.Close()
	b, err := pool.Acquire(ctx, filepath.Join(dir, "rel.db"), 2)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer b.Close()

	if a.SQLiteStore != b.SQLiteStore {
		t.Error("expected relative and absolute paths to resolve to one store")
	}
}

func TestSharedImplementsVectorStore(t *testing.T) {
	var _ VectorStore = (*Shared)(nil)
	var _ VectorStore = (*SQLiteStore)(nil)
	var _ VectorStore = (*MemStore)(nil)
}
