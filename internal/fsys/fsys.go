// Package fsys is the filesystem boundary of the icon subsystem.
package fsys

import (
	"errors"
	"io"
	"time"
)

// ErrUnsafePath is returned when an operation is refused because its path
// could reach a network share or the NT object namespace.
var ErrUnsafePath = errors.New("unsafe path")

// MissingTime is the last-write time reported for a file that does not
// exist: midnight, January 1 1601 UTC.
var MissingTime = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

// minValidYear separates real timestamps from MissingTime.
const minValidYear = 1900

// IsValidTime reports whether t is a real last-write time rather than the
// missing-file sentinel.
func IsValidTime(t time.Time) bool {
	return t.Year() > minValidYear
}

// FileSystem is the set of filesystem calls the icon and launch services
// make. Implementations must be safe for concurrent use.
type FileSystem interface {
	DirExists(path string) bool
	FileExists(path string) bool
	// ListFiles returns the base names of the regular files in dir.
	ListFiles(dir string) ([]string, error)
	// LastWriteTime returns MissingTime and a nil error when path does not
	// exist.
	LastWriteTime(path string) (time.Time, error)
	FileSize(path string) (int64, error)
	ReadFile(path string) ([]byte, error)
	Open(path string) (io.ReadCloser, error)
	// IniValue reads key from section of an INI file. A missing section or
	// key yields "".
	IniValue(path, section, key string) (string, error)
	// CreateDir creates dir and any missing parents.
	CreateDir(dir string) error
}
