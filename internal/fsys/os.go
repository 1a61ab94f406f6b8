package fsys

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/ini.v1"

	"launchbox/internal/pathsec"
)

// MaxIniSize caps how much of an INI file is parsed.
const MaxIniSize = 64 * 1024

// OSFileSystem implements FileSystem on the host filesystem. Every method
// refuses unsafe paths before touching the disk.
type OSFileSystem struct{}

// NewOSFileSystem returns the host filesystem.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

func (OSFileSystem) DirExists(path string) bool {
	if path == "" || pathsec.IsUnsafePath(path) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (OSFileSystem) FileExists(path string) bool {
	if path == "" || pathsec.IsUnsafePath(path) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (OSFileSystem) ListFiles(dir string) ([]string, error) {
	if pathsec.IsUnsafePath(dir) {
		return nil, ErrUnsafePath
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (OSFileSystem) LastWriteTime(path string) (time.Time, error) {
	if pathsec.IsUnsafePath(path) {
		return MissingTime, ErrUnsafePath
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return MissingTime, nil
	}
	if err != nil {
		return MissingTime, err
	}
	return info.ModTime().UTC(), nil
}

func (OSFileSystem) FileSize(path string) (int64, error) {
	if pathsec.IsUnsafePath(path) {
		return 0, ErrUnsafePath
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	if pathsec.IsUnsafePath(path) {
		return nil, ErrUnsafePath
	}
	return os.ReadFile(path)
}

func (OSFileSystem) Open(path string) (io.ReadCloser, error) {
	if pathsec.IsUnsafePath(path) {
		return nil, ErrUnsafePath
	}
	return os.Open(path)
}

func (OSFileSystem) IniValue(path, section, key string) (string, error) {
	if pathsec.IsUnsafePath(path) {
		return "", ErrUnsafePath
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxIniSize))
	if err != nil {
		return "", err
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:             true,
		IgnoreInlineComment:     true,
		IgnoreContinuation:      true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return "", fmt.Errorf("parse ini: %w", err)
	}

	sec, err := cfg.GetSection(section)
	if err != nil {
		return "", nil
	}
	if !sec.HasKey(key) {
		return "", nil
	}
	return sec.Key(key).String(), nil
}

func (OSFileSystem) CreateDir(dir string) error {
	if dir == "" || pathsec.IsUnsafePath(dir) {
		return ErrUnsafePath
	}
	return os.MkdirAll(dir, 0o755)
}
