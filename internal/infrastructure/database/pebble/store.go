// internal/infrastructure/database/pebble/store.go
package pebble

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/your-org/storefront/internal/infrastructure/kv"
)

// Store keeps cart records in an on-disk Pebble database
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the database in dir
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("pebble get %s: %w", key, err)
	}
	defer closer.Close()
	// v is only valid until closer.Close
	return string(v), nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	if err := s.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", key, err)
	}
	return nil
}
