package services

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"launchbox/internal/fsys"
	"launchbox/internal/iconcache"
	"launchbox/internal/infrastructure/logging"
	"launchbox/internal/metrics"
	"launchbox/internal/pathsec"
	"launchbox/internal/platform"
	"launchbox/internal/ttlcache"
	"launchbox/internal/winpath"
)

const (
	// IconsDirName is the folder next to the shortcuts that holds custom
	// icons named after each shortcut.
	IconsDirName = ".icons"

	DefaultIconSize        = 96
	DefaultMaxIconFileSize = 5 * 1024 * 1024
	DefaultStoreTimeout    = 2 * time.Second
)

// IconStore is the persistent second-level cache consulted after a memory
// miss. repository.IconRepository satisfies it.
type IconStore interface {
	LoadIcon(ctx context.Context, path string) (iconcache.Entry, bool, error)
	SaveIcon(ctx context.Context, path string, entry iconcache.Entry) error
	PruneIcons(ctx context.Context, active []string) (int, error)
}

// IconServiceConfig tunes an IconService. Zero values select defaults.
type IconServiceConfig struct {
	IconSize        int
	MaxIconFileSize int64
	MetadataTTL     time.Duration
	StoreTimeout    time.Duration
	Clock           func() time.Time
	LookupEnv       func(string) (string, bool)
	Store           IconStore
	Metrics         *metrics.IconMetrics
}

// DefaultIconServiceConfig returns the production settings without a store.
func DefaultIconServiceConfig() IconServiceConfig {
	return IconServiceConfig{
		IconSize:        DefaultIconSize,
		MaxIconFileSize: DefaultMaxIconFileSize,
		MetadataTTL:     ttlcache.DefaultTTL,
		StoreTimeout:    DefaultStoreTimeout,
		Clock:           time.Now,
		LookupEnv:       os.LookupEnv,
	}
}

func (c IconServiceConfig) withDefaults() IconServiceConfig {
	d := DefaultIconServiceConfig()
	if c.IconSize <= 0 {
		c.IconSize = d.IconSize
	}
	if c.MaxIconFileSize <= 0 {
		c.MaxIconFileSize = d.MaxIconFileSize
	}
	if c.MetadataTTL <= 0 {
		c.MetadataTTL = d.MetadataTTL
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	if c.LookupEnv == nil {
		c.LookupEnv = d.LookupEnv
	}
	return c
}

// dirListing is a cached view of an icons folder. A nil files set means the
// folder exists but could not be listed, so every candidate must be probed.
type dirListing struct {
	exists bool
	files  map[string]struct{}
}

func (d dirListing) mayContain(name string) bool {
	if !d.exists {
		return false
	}
	if d.files == nil {
		return true
	}
	_, ok := d.files[iconcache.Key(name)]
	return ok
}

// IconService resolves the icon bytes shown for each shortcut.
//
// Custom icons in the .icons folder win over the shell icon. Results are
// cached per shortcut and reused for as long as the shortcut and both custom
// icon candidates keep their modification times.
type IconService struct {
	fs        fsys.FileSystem
	extractor platform.IconExtractor
	cfg       IconServiceConfig
	icons     *iconcache.Cache
	dirs      *ttlcache.Cache[dirListing]
	stamps    *ttlcache.Cache[time.Time]
	metrics   *metrics.IconMetrics
	logger    logging.Logger
}

// IconResult is the outcome of one extraction in ExtractAll.
type IconResult struct {
	Path    string
	Icon    []byte
	OK      bool
	Skipped bool // the context was cancelled before extraction started
}

// NewIconService creates an icon service with default settings.
func NewIconService(fs fsys.FileSystem, extractor platform.IconExtractor, logger logging.Logger) *IconService {
	return NewIconServiceWithConfig(fs, extractor, DefaultIconServiceConfig(), logger)
}

// NewIconServiceWithConfig creates an icon service with custom settings.
func NewIconServiceWithConfig(fs fsys.FileSystem, extractor platform.IconExtractor, cfg IconServiceConfig, logger logging.Logger) *IconService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	cfg = cfg.withDefaults()

	return &IconService{
		fs:        fs,
		extractor: extractor,
		cfg:       cfg,
		icons:     iconcache.New(),
		dirs:      ttlcache.New[dirListing](cfg.MetadataTTL, cfg.Clock),
		stamps:    ttlcache.New[time.Time](cfg.MetadataTTL, cfg.Clock),
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

func (s *IconService) expand(path string) string {
	return winpath.ExpandEnvFunc(path, s.cfg.LookupEnv)
}

// ExtractIconBytes returns the icon for the shortcut at path. It reports
// false when neither a custom icon nor a shell icon is available, or when
// the path is unsafe.
func (s *IconService) ExtractIconBytes(path string) ([]byte, bool) {
	if pathsec.IsUnsafePath(path) {
		s.logger.Warn("Blocked icon extraction for unsafe path", "path", pathsec.RedactPath(path))
		s.metrics.ObserveBlocked(metrics.ReasonUnsafePath)
		return nil, false
	}

	key := s.expand(path)
	if key != path && pathsec.IsUnsafePath(key) {
		s.logger.Warn("Blocked icon extraction for unsafe expanded path", "path", pathsec.RedactPath(path))
		s.metrics.ObserveBlocked(metrics.ReasonUnsafePath)
		return nil, false
	}

	stamps, pngPath, icoPath := s.currentStamps(key)

	if entry, ok := s.icons.Get(key); ok && entry.Stamps.Equal(stamps) {
		s.metrics.ObserveCacheHit()
		return entry.Icon, entry.HasIcon
	}
	s.metrics.ObserveCacheMiss()

	start := s.cfg.Clock()
	if entry, ok := s.loadStored(key, stamps); ok {
		s.icons.Put(key, entry)
		s.metrics.ObserveExtraction(metrics.SourceStore, s.cfg.Clock().Sub(start).Seconds())
		return entry.Icon, entry.HasIcon
	}

	icon, source := s.customIcon(pngPath, icoPath, stamps)
	if icon == nil {
		icon = s.systemIcon(key)
		source = metrics.SourceSystem
		if icon == nil {
			source = metrics.SourceNone
		}
	}
	s.metrics.ObserveExtraction(source, s.cfg.Clock().Sub(start).Seconds())

	entry := iconcache.Entry{Icon: icon, HasIcon: icon != nil, Stamps: stamps}
	s.icons.Put(key, entry)
	s.saveStored(key, entry)

	return entry.Icon, entry.HasIcon
}

// currentStamps gathers the timestamp triplet for the shortcut at path and
// returns the custom icon candidate paths. Candidates are empty when there is
// no icons folder.
func (s *IconService) currentStamps(path string) (iconcache.Timestamps, string, string) {
	stamps := iconcache.Timestamps{
		Shortcut: s.lastWriteTime(path),
		PNG:      fsys.MissingTime,
		ICO:      fsys.MissingTime,
	}

	dir := winpath.Dir(path)
	if dir == "" {
		return stamps, "", ""
	}
	iconsDir := winpath.Join(dir, IconsDirName)
	listing := s.listDir(iconsDir)
	if !listing.exists {
		return stamps, "", ""
	}

	stem := winpath.Stem(path)
	pngName, icoName := stem+".png", stem+".ico"
	pngPath := winpath.Join(iconsDir, pngName)
	icoPath := winpath.Join(iconsDir, icoName)

	if listing.mayContain(pngName) {
		stamps.PNG = s.lastWriteTime(pngPath)
	}
	if listing.mayContain(icoName) {
		stamps.ICO = s.lastWriteTime(icoPath)
	}
	return stamps, pngPath, icoPath
}

func (s *IconService) lastWriteTime(path string) time.Time {
	t, err := s.stamps.Get(path, s.fs.LastWriteTime)
	if err != nil {
		s.logger.Debug("Failed to read modification time",
			"path", pathsec.RedactPath(path),
			"error", pathsec.SafeErrorMessage(err))
		return fsys.MissingTime
	}
	return t
}

func (s *IconService) listDir(dir string) dirListing {
	listing, _ := s.dirs.Get(dir, func(dir string) (dirListing, error) {
		if !s.fs.DirExists(dir) {
			return dirListing{}, nil
		}
		names, err := s.fs.ListFiles(dir)
		if err != nil {
			s.logger.Debug("Failed to list icons folder",
				"path", pathsec.RedactPath(dir),
				"error", pathsec.SafeErrorMessage(err))
			return dirListing{exists: true}, nil
		}
		files := make(map[string]struct{}, len(names))
		for _, name := range names {
			files[iconcache.Key(name)] = struct{}{}
		}
		return dirListing{exists: true, files: files}, nil
	})
	return listing
}

func (s *IconService) loadStored(key string, stamps iconcache.Timestamps) (iconcache.Entry, bool) {
	if s.cfg.Store == nil {
		return iconcache.Entry{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StoreTimeout)
	defer cancel()

	entry, ok, err := s.cfg.Store.LoadIcon(ctx, key)
	if err != nil {
		s.logger.Warn("Icon store lookup failed",
			"path", pathsec.RedactPath(key),
			"error", pathsec.SafeErrorMessage(err))
		return iconcache.Entry{}, false
	}
	if !ok || !entry.Stamps.Equal(stamps) {
		return iconcache.Entry{}, false
	}
	return entry, true
}

func (s *IconService) saveStored(key string, entry iconcache.Entry) {
	if s.cfg.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StoreTimeout)
	defer cancel()

	if err := s.cfg.Store.SaveIcon(ctx, key, entry); err != nil {
		s.logger.Warn("Icon store write failed",
			"path", pathsec.RedactPath(key),
			"error", pathsec.SafeErrorMessage(err))
	}
}

// PruneCache drops cached metadata and every icon entry whose shortcut is not
// in active. It returns the number of icon entries removed.
func (s *IconService) PruneCache(active []string) int {
	s.dirs.Clear()
	s.stamps.Clear()

	keys := make([]string, 0, len(active))
	for _, p := range active {
		keys = append(keys, s.expand(p))
	}
	removed := s.icons.Prune(keys)
	s.metrics.ObservePruned(removed)
	return removed
}

// PruneStore removes persisted icons for shortcuts not in active. Without a
// store it does nothing.
func (s *IconService) PruneStore(ctx context.Context, active []string) (int, error) {
	if s.cfg.Store == nil {
		return 0, nil
	}
	keys := make([]string, 0, len(active))
	for _, p := range active {
		keys = append(keys, s.expand(p))
	}
	return s.cfg.Store.PruneIcons(ctx, keys)
}

// CachedIcons counts in-memory icon entries.
func (s *IconService) CachedIcons() int {
	return s.icons.Len()
}

// ExtractAll resolves icons for paths with at most concurrency extractions
// in flight. Results keep the order of paths. Paths not yet started when ctx
// is cancelled are reported as skipped.
func (s *IconService) ExtractAll(ctx context.Context, paths []string, concurrency int) []IconResult {
	results := make([]IconResult, len(paths))

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, p := range paths {
		results[i].Path = p
		if ctx.Err() != nil {
			results[i].Skipped = true
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i].Skipped = true
				return nil
			}
			results[i].Icon, results[i].OK = s.ExtractIconBytes(p)
			return nil
		})
	}

	_ = g.Wait()
	return results
}
