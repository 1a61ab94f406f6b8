package services

import (
	"sort"

	"launchbox/internal/fsys"
	"launchbox/internal/infrastructure/logging"
	"launchbox/internal/pathsec"
	"launchbox/internal/winpath"
)

// AllowedExtensions are the shortcut types listed and launched.
var AllowedExtensions = []string{".lnk", ".url"}

// ShortcutService lists the shortcuts in a folder.
type ShortcutService struct {
	fs     fsys.FileSystem
	logger logging.Logger
}

// NewShortcutService creates a shortcut service.
func NewShortcutService(fs fsys.FileSystem, logger logging.Logger) *ShortcutService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &ShortcutService{fs: fs, logger: logger}
}

// GetShortcutFiles returns the full paths of the files in folder whose
// extension is in exts, ignoring case, sorted by file name. It reports false
// when the folder does not exist or is on an unsafe path.
func (s *ShortcutService) GetShortcutFiles(folder string, exts []string) ([]string, bool) {
	if pathsec.IsUnsafePath(folder) {
		s.logger.Warn("Blocked scan of unsafe folder", "path", pathsec.RedactPath(folder))
		return nil, false
	}
	if !s.fs.DirExists(folder) {
		return nil, false
	}

	names, err := s.fs.ListFiles(folder)
	if err != nil {
		s.logger.Warn("Failed to list shortcuts folder",
			"path", pathsec.RedactPath(folder),
			"error", pathsec.SafeErrorMessage(err))
		return []string{}, true
	}

	files := make([]string, 0, len(names))
	for _, name := range names {
		if hasAnyExt(name, exts) {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	for i, name := range files {
		files[i] = winpath.Join(folder, name)
	}
	return files, true
}

func hasAnyExt(path string, exts []string) bool {
	for _, ext := range exts {
		if winpath.HasExt(path, ext) {
			return true
		}
	}
	return false
}
