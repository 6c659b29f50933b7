// Package storage provides the client's scoped key-value persistence: a
// JSON file that survives restarts, and an in-memory variant for tests and
// ephemeral sessions. Values are opaque strings, like browser local storage.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultFile is the storage file used when no path is configured.
const DefaultFile = "storage.json"

// LocalStorage is a file-backed key-value store. Every mutation is written
// through to disk.
type LocalStorage struct {
	path  string
	log   *zap.Logger
	mu    sync.Mutex
	items map[string]string
}

// NewLocalStorage creates a store bound to path. Call Load before use.
func NewLocalStorage(path string, log *zap.Logger) *LocalStorage {
	if path == "" {
		path = DefaultFile
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalStorage{path: path, log: log, items: make(map[string]string)}
}

// Load reads the store from disk. A missing file yields an empty store; a
// corrupt file is logged and treated as empty so the caller can keep going.
func (ls *LocalStorage) Load() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.items = make(map[string]string)

	data, err := os.ReadFile(ls.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read storage: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &ls.items); err != nil {
		ls.log.Warn("storage file is corrupt, starting empty",
			zap.String("path", ls.path), zap.Error(err))
		ls.items = make(map[string]string)
	}
	return nil
}

// Get returns the raw value stored under key.
func (ls *LocalStorage) Get(key string) ([]byte, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	v, ok := ls.items[key]
	if !ok {
		return nil, false
	}
	return []byte(v), true
}

// Set stores value under key and persists the store.
func (ls *LocalStorage) Set(key string, value []byte) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.items[key] = string(value)
	return ls.save()
}

// Remove deletes key and persists the store. Removing a missing key is not an error.
func (ls *LocalStorage) Remove(key string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if _, ok := ls.items[key]; !ok {
		return nil
	}
	delete(ls.items, key)
	return ls.save()
}

// save writes to a temporary file in the same directory and renames it over
// the target so a crash never leaves a half-written store.
func (ls *LocalStorage) save() error {
	data, err := json.Marshal(ls.items)
	if err != nil {
		return fmt.Errorf("encode storage: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(ls.path), "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write storage: %w", err)
	}
	if err := os.Rename(tmp, ls.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace storage: %w", err)
	}
	return nil
}

// Memory is an in-memory key-value store with the same contract as LocalStorage.
type Memory struct {
	mu    sync.Mutex
	items map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, false
	}
	return []byte(v), true
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = string(value)
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
