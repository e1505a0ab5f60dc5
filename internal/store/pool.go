package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

type poolKey struct {
	path string
	dim  int
}

type poolEntry struct {
	store *SQLiteStore
	refs  int
}

// Pool shares one SQLiteStore per (absolute path, dimension) between
// callers and closes it when the last reference is released.
type Pool struct {
	mu      sync.Mutex
	entries map[poolKey]*poolEntry
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{entries: make(map[poolKey]*poolEntry)}
}

// Shared is one reference to a pooled store. It implements VectorStore;
// Close releases the reference instead of closing the database.
type Shared struct {
	*SQLiteStore
	pool *Pool
	key  poolKey
	once sync.Once
}

// Acquire returns a reference to the store at path, opening and
// initialising it on first use.
func (p *Pool) Acquire(ctx context.Context, path string, dim int) (*Shared, error) {
	abs, err := resolvePath(path)
	if err != nil {
		return nil, ioErr("acquire", fmt.Errorf("resolve path: %w", err))
	}
	key := poolKey{path: abs, dim: dim}

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		s, err := NewSQLiteStore(abs, dim)
		if err != nil {
			return nil, err
		}
		e = &poolEntry{store: s}
		p.entries[key] = e
	}
	e.refs++
	return &Shared{SQLiteStore: e.store, pool: p, key: key}, nil
}

// Refs reports the live reference count for path and dim.
func (p *Pool) Refs(path string, dim int) int {
	abs, err := resolvePath(path)
	if err != nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[poolKey{path: abs, dim: dim}]; ok {
		return e.refs
	}
	return 0
}

// Close releases this reference. Calling it again is a no-op.
func (s *Shared) Close() error {
	var err error
	s.once.Do(func() { err = s.pool.release(s.key) })
	return err
}

func (p *Pool) release(key poolKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		return nil
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(p.entries, key)
	return e.store.Close()
}

func resolvePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	return filepath.Abs(path)
}
