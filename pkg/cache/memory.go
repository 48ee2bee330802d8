package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMemorySize = 256

// Memory is an in-process LRU with per-entry TTL.
type Memory struct {
	mu  sync.Mutex
	gen Generation
	lru *expirable.LRU[string, []byte]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = defaultMemorySize
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, normalizeTTL(ttl))}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, Generation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.lru.Get(key)
	return value, m.gen, ok, nil
}

// Set drops values loaded under an older generation.
func (m *Memory) Set(_ context.Context, key string, value []byte, gen Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil
	}
	m.lru.Add(key, value)
	return nil
}

func (m *Memory) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.lru.Purge()
	return nil
}
