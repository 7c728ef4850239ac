package kv

import (
	"sync"

	"github.com/starford/devspace/internal/apperr"
)

// Memory is a process-local Store, used in tests and throwaway sessions.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Read(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Close() error { return nil }

// Unavailable is the Store used when no durable storage exists. Every call
// fails with apperr.ErrPersistenceUnavailable.
type Unavailable struct{}

func (Unavailable) Read(string) (string, bool, error) {
	return "", false, apperr.ErrPersistenceUnavailable
}

func (Unavailable) Write(string, string) error {
	return apperr.ErrPersistenceUnavailable
}

func (Unavailable) Close() error { return nil }
