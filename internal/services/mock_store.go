package services

import (
	"context"
	"fmt"
	"sync"

	"launchbox/internal/iconcache"
	"launchbox/internal/infrastructure/errors"
)

// MockIconStore implements IconStore in memory for testing
type MockIconStore struct {
	mu             sync.RWMutex
	entries        map[string]iconcache.Entry // key: folded path
	loadCallCount  int
	saveCallCount  int
	pruneCallCount int
	shouldFailLoad bool
	shouldFailSave bool
}

// NewMockIconStore creates an empty mock store
func NewMockIconStore() *MockIconStore {
	return &MockIconStore{entries: make(map[string]iconcache.Entry)}
}

// SetFailureModes configures the mock to simulate failures
func (m *MockIconStore) SetFailureModes(load, save bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailLoad = load
	m.shouldFailSave = save
}

// GetCallCounts returns the number of times each method was called
func (m *MockIconStore) GetCallCounts() (load, save, prune int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadCallCount, m.saveCallCount, m.pruneCallCount
}

// Seed stores an entry without counting a call
func (m *MockIconStore) Seed(path string, entry iconcache.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[iconcache.Key(path)] = entry
}

// Stored returns the entry held for path
func (m *MockIconStore) Stored(path string) (iconcache.Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[iconcache.Key(path)]
	return entry, ok
}

// LoadIcon implements IconStore interface
func (m *MockIconStore) LoadIcon(ctx context.Context, path string) (iconcache.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadCallCount++

	if m.shouldFailLoad {
		return iconcache.Entry{}, false, errors.NewStoreError("LoadIcon", fmt.Errorf("mock load failure"), errors.ErrCodeConnection)
	}

	entry, ok := m.entries[iconcache.Key(path)]
	return entry, ok, nil
}

// SaveIcon implements IconStore interface
func (m *MockIconStore) SaveIcon(ctx context.Context, path string, entry iconcache.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCallCount++

	if m.shouldFailSave {
		return errors.NewStoreError("SaveIcon", fmt.Errorf("mock save failure"), errors.ErrCodeConnection)
	}

	entry.Icon = append([]byte(nil), entry.Icon...)
	if !entry.HasIcon {
		entry.Icon = nil
	}
	m.entries[iconcache.Key(path)] = entry
	return nil
}

// PruneIcons implements IconStore interface
func (m *MockIconStore) PruneIcons(ctx context.Context, active []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneCallCount++

	keep := make(map[string]struct{}, len(active))
	for _, p := range active {
		keep[iconcache.Key(p)] = struct{}{}
	}
	removed := 0
	for k := range m.entries {
		if _, ok := keep[k]; !ok {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

var _ IconStore = (*MockIconStore)(nil)
