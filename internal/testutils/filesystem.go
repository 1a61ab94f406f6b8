package testutils

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"sync"
	"time"

	"gopkg.in/ini.v1"

	"launchbox/internal/fsys"
	"launchbox/internal/winpath"
)

// Operation names recorded by MockFileSystem.
const (
	OpDirExists     = "DirExists"
	OpFileExists    = "FileExists"
	OpListFiles     = "ListFiles"
	OpLastWriteTime = "LastWriteTime"
	OpFileSize      = "FileSize"
	OpReadFile      = "ReadFile"
	OpOpen          = "Open"
	OpIniValue      = "IniValue"
	OpCreateDir     = "CreateDir"
)

// FileOp is one recorded filesystem call.
type FileOp struct {
	Op   string
	Path string
}

type mockFile struct {
	data    []byte
	modTime time.Time
}

// MockFileSystem is an in-memory fsys.FileSystem that records every call.
// Paths are matched exactly.
type MockFileSystem struct {
	mu       sync.Mutex
	files    map[string]*mockFile
	dirs     map[string]bool
	ops      []FileOp
	failures map[string]error
}

// NewMockFileSystem creates an empty filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files:    make(map[string]*mockFile),
		dirs:     make(map[string]bool),
		failures: make(map[string]error),
	}
}

// AddFile creates or replaces a file and registers its parent directory.
func (m *MockFileSystem) AddFile(path string, data []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &mockFile{data: append([]byte(nil), data...), modTime: modTime}
	if dir := winpath.Dir(path); dir != "" {
		m.dirs[dir] = true
	}
}

// AddDir registers an empty directory.
func (m *MockFileSystem) AddDir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
}

// Touch changes a file's modification time.
func (m *MockFileSystem) Touch(path string, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[path]; ok {
		f.modTime = modTime
	}
}

// Remove deletes a file.
func (m *MockFileSystem) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// FailOn makes every call of op return err. A nil err clears the failure.
func (m *MockFileSystem) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Ops returns a copy of the call log.
func (m *MockFileSystem) Ops() []FileOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FileOp(nil), m.ops...)
}

// Calls counts recorded calls of op.
func (m *MockFileSystem) Calls(op string) int {
	return m.CallsFor(op, "")
}

// CallsFor counts recorded calls of op on path; an empty path matches all.
func (m *MockFileSystem) CallsFor(op, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.ops {
		if o.Op == op && (path == "" || o.Path == path) {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (m *MockFileSystem) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

func (m *MockFileSystem) begin(op, path string) error {
	m.mu.Lock()
	m.ops = append(m.ops, FileOp{Op: op, Path: path})
	return m.failures[op]
}

func (m *MockFileSystem) DirExists(path string) bool {
	err := m.begin(OpDirExists, path)
	defer m.mu.Unlock()
	return err == nil && m.dirs[path]
}

func (m *MockFileSystem) FileExists(path string) bool {
	err := m.begin(OpFileExists, path)
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return err == nil && ok
}

func (m *MockFileSystem) ListFiles(dir string) ([]string, error) {
	err := m.begin(OpListFiles, dir)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !m.dirs[dir] {
		return nil, &fs.PathError{Op: "readdir", Path: dir, Err: fs.ErrNotExist}
	}
	var names []string
	for p := range m.files {
		if winpath.Dir(p) == dir {
			names = append(names, winpath.Base(p))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockFileSystem) LastWriteTime(path string) (time.Time, error) {
	err := m.begin(OpLastWriteTime, path)
	defer m.mu.Unlock()
	if err != nil {
		return fsys.MissingTime, err
	}
	f, ok := m.files[path]
	if !ok {
		return fsys.MissingTime, nil
	}
	return f.modTime, nil
}

func (m *MockFileSystem) FileSize(path string) (int64, error) {
	err := m.begin(OpFileSize, path)
	defer m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	f, ok := m.files[path]
	if !ok {
		return 0, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return int64(len(f.data)), nil
}

func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	err := m.begin(OpReadFile, path)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), f.data...), nil
}

func (m *MockFileSystem) Open(path string) (io.ReadCloser, error) {
	err := m.begin(OpOpen, path)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), f.data...))), nil
}

func (m *MockFileSystem) IniValue(path, section, key string) (string, error) {
	err := m.begin(OpIniValue, path)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	f, ok := m.files[path]
	var data []byte
	if ok {
		data = append([]byte(nil), f.data...)
	}
	m.mu.Unlock()

	if !ok {
		return "", &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	cfg, err := ini.LoadSources(ini.LoadOptions{Insensitive: true, IgnoreInlineComment: true}, data)
	if err != nil {
		return "", fmt.Errorf("parse ini: %w", err)
	}
	sec, err := cfg.GetSection(section)
	if err != nil || !sec.HasKey(key) {
		return "", nil
	}
	return sec.Key(key).String(), nil
}

func (m *MockFileSystem) CreateDir(dir string) error {
	err := m.begin(OpCreateDir, dir)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	m.dirs[dir] = true
	return nil
}

var _ fsys.FileSystem = (*MockFileSystem)(nil)
