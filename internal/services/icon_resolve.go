package services

import (
	"strings"

	"launchbox/internal/metrics"
	"launchbox/internal/pathsec"
	"launchbox/internal/winpath"
)

const (
	internetShortcutSection = "InternetShortcut"
	iconFileKey             = "IconFile"
)

// ResolveIconPath returns the file whose shell icon represents path. For an
// internet shortcut that names an existing, safe IconFile, that file is
// returned; in every other case path itself is.
func (s *IconService) ResolveIconPath(path string) string {
	if pathsec.IsUnsafePath(path) {
		s.logger.Warn("Blocked icon resolution for unsafe path", "path", pathsec.RedactPath(path))
		return path
	}
	if !winpath.HasExt(path, ".url") {
		return path
	}

	iconFile, err := s.fs.IniValue(path, internetShortcutSection, iconFileKey)
	if err != nil {
		s.logger.Debug("Failed to read internet shortcut",
			"path", pathsec.RedactPath(path),
			"error", pathsec.SafeErrorMessage(err))
		return path
	}
	iconFile = strings.TrimSpace(iconFile)
	if iconFile == "" {
		return path
	}

	iconFile = s.expand(iconFile)
	if pathsec.IsUnsafePath(iconFile) {
		s.logger.Warn("Blocked potentially unsafe icon path",
			"path", pathsec.RedactPath(path),
			"target", pathsec.RedactPath(iconFile))
		s.metrics.ObserveBlocked(metrics.ReasonUnsafeTarget)
		return path
	}

	if s.fs.FileExists(iconFile) {
		return iconFile
	}
	return path
}

// systemIcon asks the shell for the icon of path, following an internet
// shortcut's IconFile when it has one.
func (s *IconService) systemIcon(path string) []byte {
	if s.extractor == nil {
		return nil
	}
	resolved := s.ResolveIconPath(path)

	data, err := s.extractor.ExtractIcon(resolved, s.cfg.IconSize)
	if err != nil {
		s.logger.Warn("Failed to extract system icon",
			"path", pathsec.RedactPath(resolved),
			"error", pathsec.SafeErrorMessage(err))
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	return data
}
