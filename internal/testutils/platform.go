package testutils

import (
	"sync"

	"launchbox/internal/platform"
)

// MockIconExtractor serves canned shell icons and counts calls.
type MockIconExtractor struct {
	mu    sync.Mutex
	icons map[string][]byte
	err   error
	calls []string
	sizes []int
}

func NewMockIconExtractor() *MockIconExtractor {
	return &MockIconExtractor{icons: make(map[string][]byte)}
}

// SetIcon registers the icon returned for path.
func (m *MockIconExtractor) SetIcon(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.icons[path] = data
}

// SetError makes every extraction fail with err.
func (m *MockIconExtractor) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockIconExtractor) ExtractIcon(path string, size int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, path)
	m.sizes = append(m.sizes, size)
	if m.err != nil {
		return nil, m.err
	}
	return m.icons[path], nil
}

// Calls returns the paths passed to ExtractIcon, in order.
func (m *MockIconExtractor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Sizes returns the requested sizes, in order.
func (m *MockIconExtractor) Sizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.sizes...)
}

// MockOpener records opened paths.
type MockOpener struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func NewMockOpener() *MockOpener {
	return &MockOpener{}
}

// SetError makes Open fail with err.
func (m *MockOpener) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockOpener) Open(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, path)
	return m.err
}

// Opened returns every path passed to Open.
func (m *MockOpener) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}

var (
	_ platform.IconExtractor = (*MockIconExtractor)(nil)
	_ platform.Opener        = (*MockOpener)(nil)
)
