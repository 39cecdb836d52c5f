// internal/infrastructure/kv/kv.go
package kv

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by every backend when a key is absent
var ErrNotFound = errors.New("kv: key not found")

// Store is a string key-value store
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Memory is a process-local Store
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// SessionPrefix is the key namespace of a visitor session
func SessionPrefix(sessionID string) string {
	return "cart:session:" + sessionID + ":"
}

// Prefixed scopes every key of the wrapped store under prefix
type Prefixed struct {
	Store  Store
	Prefix string
}

func (p Prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.Store.Get(ctx, p.Prefix+key)
}

func (p Prefixed) Set(ctx context.Context, key, value string) error {
	return p.Store.Set(ctx, p.Prefix+key, value)
}
