package services

import (
	"errors"
	"fmt"

	"launchbox/internal/fsys"
	"launchbox/internal/infrastructure/logging"
	"launchbox/internal/metrics"
	"launchbox/internal/pathsec"
	"launchbox/internal/platform"
)

var (
	ErrUnsafePath            = errors.New("unsafe path")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorizedExtension = errors.New("unauthorized file type")
)

// Launcher hands shortcuts and folders to the desktop shell after checking
// that they are safe to open.
type Launcher struct {
	fs      fsys.FileSystem
	opener  platform.Opener
	metrics *metrics.IconMetrics
	logger  logging.Logger
}

// NewLauncher creates a launcher. m may be nil.
func NewLauncher(fs fsys.FileSystem, opener platform.Opener, m *metrics.IconMetrics, logger logging.Logger) *Launcher {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Launcher{fs: fs, opener: opener, metrics: m, logger: logger}
}

// Launch opens the shortcut at path. Only existing .lnk and .url files on
// safe paths are opened.
func (l *Launcher) Launch(path string) error {
	redacted := pathsec.RedactPath(path)

	if pathsec.IsUnsafePath(path) {
		l.logger.Warn("Blocked execution of unsafe file", "path", redacted)
		l.metrics.ObserveBlocked(metrics.ReasonUnsafePath)
		return ErrUnsafePath
	}
	if !l.fs.FileExists(path) {
		l.logger.Warn("Blocked execution of non-existent file", "path", redacted)
		l.metrics.ObserveBlocked(metrics.ReasonMissingTarget)
		return ErrNotFound
	}
	if !hasAnyExt(path, AllowedExtensions) {
		l.logger.Warn("Blocked execution of unauthorized file", "path", redacted)
		l.metrics.ObserveBlocked(metrics.ReasonBadExtension)
		return ErrUnauthorizedExtension
	}

	if err := l.opener.Open(path); err != nil {
		l.logger.Error("Failed to launch", "path", redacted, "error", pathsec.SafeErrorMessage(err))
		return fmt.Errorf("launch %s: %w", redacted, err)
	}
	l.logger.Info("Launched shortcut", "path", redacted)
	return nil
}

// OpenFolder opens an existing folder on a safe path.
func (l *Launcher) OpenFolder(path string) error {
	redacted := pathsec.RedactPath(path)

	if pathsec.IsUnsafePath(path) {
		l.logger.Warn("Blocked opening of unsafe folder", "path", redacted)
		l.metrics.ObserveBlocked(metrics.ReasonUnsafePath)
		return ErrUnsafePath
	}
	if !l.fs.DirExists(path) {
		l.logger.Warn("Folder not found", "path", redacted)
		return ErrNotFound
	}

	if err := l.opener.Open(path); err != nil {
		l.logger.Error("Failed to open folder", "path", redacted, "error", pathsec.SafeErrorMessage(err))
		return fmt.Errorf("open folder %s: %w", redacted, err)
	}
	return nil
}
