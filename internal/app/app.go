package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vincent-petithory/dataurl"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"launchbox/internal/config"
	"launchbox/internal/database"
	"launchbox/internal/fsys"
	repoerrors "launchbox/internal/infrastructure/errors"
	"launchbox/internal/infrastructure/logging"
	"launchbox/internal/metrics"
	"launchbox/internal/pathsec"
	"launchbox/internal/platform"
	"launchbox/internal/repository"
	"launchbox/internal/services"
	"launchbox/internal/types"
	"launchbox/internal/winpath"
)

const (
	// EventAppsChanged is emitted to the frontend when the shortcuts folder
	// changes on disk.
	EventAppsChanged = "apps:changed"

	storeConnectTimeout = 10 * time.Second
	storeMigrateTimeout = 30 * time.Second
	shutdownTimeout     = 5 * time.Second
)

// ErrLoadSuperseded is returned by LoadApps when a newer load started
// before this one finished.
var ErrLoadSuperseded = errors.New("load superseded by a newer request")

// EmitFunc delivers an event to the frontend.
type EmitFunc func(event string, data ...interface{})

// Dependencies are the collaborators of an App. Store, Metrics, Emit and
// Hide are optional.
type Dependencies struct {
	Config     *config.Config
	FileSystem fsys.FileSystem
	Extractor  platform.IconExtractor
	Opener     platform.Opener
	Store      services.IconStore
	Metrics    *metrics.IconMetrics
	Emit       EmitFunc
	Hide       func()
	Logger     logging.Logger
}

// App struct represents the main application
type App struct {
	ctx       context.Context
	cfg       *config.Config
	fs        fsys.FileSystem
	shortcuts *services.ShortcutService
	icons     *services.IconService
	launcher  *services.Launcher
	dbService database.Service
	watcher   *Watcher
	emit      EmitFunc
	hide      func()
	logger    logging.Logger

	loadMu     sync.Mutex
	loadCancel context.CancelFunc
}

// NewApp creates the desktop application on the host filesystem and shell.
// When the icon store cannot be opened the application continues without
// persistence.
func NewApp(cfg *config.Config, logger logging.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	deps := Dependencies{
		Config:     cfg,
		FileSystem: fsys.NewOSFileSystem(),
		Extractor:  platform.NewShellIconExtractor(),
		Opener:     platform.NewShellOpener(),
		Metrics:    metrics.New(),
		Logger:     logger,
	}

	var dbService database.Service
	if cfg.PersistIcons {
		svc, repo, err := OpenIconStore(context.Background(), cfg.Environment, logger)
		if err != nil {
			logging.LogStoreError(logger, err, "open_icon_store", nil)
			logger.Warn("Continuing without icon persistence")
		} else {
			dbService = svc
			deps.Store = repo
		}
	}

	a, err := New(deps)
	if err != nil {
		if dbService != nil {
			dbService.Close()
		}
		return nil, err
	}
	a.dbService = dbService
	return a, nil
}

// OpenIconStore connects to the icon database for env and applies the
// schema.
func OpenIconStore(ctx context.Context, env string, logger logging.Logger) (database.Service, repository.IconRepository, error) {
	dbConfig := database.ConfigForEnvironment(env)
	dbConfig.LoadFromEnvironment()

	dbService := database.NewSQLiteService(logger)

	connectCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()
	if err := dbService.Connect(connectCtx, dbConfig); err != nil {
		return nil, nil, err
	}

	migrateCtx, migrateCancel := context.WithTimeout(ctx, storeMigrateTimeout)
	defer migrateCancel()
	if err := dbService.Migrate(migrateCtx); err != nil {
		dbService.Close()
		return nil, nil, err
	}

	return dbService, repository.NewSQLiteIconRepository(dbService, logger), nil
}

// New assembles an App from explicit dependencies.
func New(deps Dependencies) (*App, error) {
	if deps.Config == nil {
		return nil, repoerrors.Invalid("new_app", "config", "is required")
	}
	if deps.FileSystem == nil || deps.Opener == nil {
		return nil, repoerrors.Invalid("new_app", "dependencies", "filesystem and opener are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	cfg := deps.Config

	icons := services.NewIconServiceWithConfig(deps.FileSystem, deps.Extractor, services.IconServiceConfig{
		IconSize:        cfg.IconSize,
		MaxIconFileSize: cfg.MaxIconFileSize,
		MetadataTTL:     cfg.MetadataTTL,
		Store:           deps.Store,
		Metrics:         deps.Metrics,
	}, logger)

	return &App{
		cfg:       cfg,
		fs:        deps.FileSystem,
		shortcuts: services.NewShortcutService(deps.FileSystem, logger),
		icons:     icons,
		launcher:  services.NewLauncher(deps.FileSystem, deps.Opener, deps.Metrics, logger),
		emit:      deps.Emit,
		hide:      deps.Hide,
		logger:    logger,
	}, nil
}

// Startup is called at application startup
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	if a.emit == nil {
		a.emit = func(event string, data ...interface{}) {
			runtime.EventsEmit(ctx, event, data...)
		}
	}
	if a.hide == nil {
		a.hide = func() { runtime.WindowHide(ctx) }
	}

	if err := a.StartWatching(); err != nil {
		a.logger.Warn("Shortcuts folder is not being watched",
			"path", pathsec.RedactPath(a.cfg.ShortcutsPath),
			"error", pathsec.SafeErrorMessage(err))
	}

	a.logger.Info("Application started", "environment", a.cfg.Environment, "persistence", a.dbService != nil)
}

// DomReady is called after front-end resources have been loaded
func (a *App) DomReady(ctx context.Context) {}

// BeforeClose is called when the application is about to quit
func (a *App) BeforeClose(ctx context.Context) (prevent bool) {
	return false
}

// Shutdown is called at application termination
func (a *App) Shutdown(ctx context.Context) {
	a.logger.Info("Starting application shutdown")

	a.cancelLoad()
	a.StopWatching()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := a.closeStore(shutdownCtx); err != nil {
		logging.LogStoreError(a.logger, err, "close_icon_store", nil)
	}

	a.logger.Info("Application shutdown completed")
}

// closeStore closes the database without blocking past ctx.
func (a *App) closeStore(ctx context.Context) error {
	if a.dbService == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- a.dbService.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return repoerrors.Wrap("shutdown", err)
		}
		return nil
	case <-ctx.Done():
		return repoerrors.NewStoreError("shutdown", ctx.Err(), repoerrors.ErrCodeTimeout)
	}
}

// StartWatching notifies the frontend whenever the shortcuts folder changes.
func (a *App) StartWatching() error {
	a.StopWatching()
	w, err := NewWatcher(a.cfg.ShortcutsPath, DefaultDebounce, a.onFolderChanged, a.logger)
	if err != nil {
		return err
	}
	a.watcher = w
	return nil
}

// StopWatching stops the folder watcher, if any.
func (a *App) StopWatching() {
	if a.watcher != nil {
		a.watcher.Close()
		a.watcher = nil
	}
}

func (a *App) onFolderChanged() {
	a.logger.Debug("Shortcuts folder changed")
	if a.emit != nil {
		a.emit(EventAppsChanged)
	}
}

func (a *App) context() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

// beginLoad cancels the in-flight load, if any, and returns the context of
// the new one.
func (a *App) beginLoad(parent context.Context) context.Context {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()

	if a.loadCancel != nil {
		a.loadCancel()
	}
	ctx, cancel := context.WithCancel(parent)
	a.loadCancel = cancel
	return ctx
}

func (a *App) cancelLoad() {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()
	if a.loadCancel != nil {
		a.loadCancel()
		a.loadCancel = nil
	}
}

// LoadApps scans the shortcuts folder and returns its shortcuts with icons.
// Starting a new load cancels the previous one, which then returns
// ErrLoadSuperseded.
func (a *App) LoadApps() (*types.AppList, error) {
	return a.loadApps(a.beginLoad(a.context()))
}

func (a *App) loadApps(ctx context.Context) (*types.AppList, error) {
	start := time.Now()
	folder := a.cfg.ShortcutsPath

	files, found := a.shortcuts.GetShortcutFiles(folder, services.AllowedExtensions)
	if !found {
		a.logger.Info("Shortcuts folder not found", "path", pathsec.RedactPath(folder))
	}
	if ctx.Err() != nil {
		return nil, ErrLoadSuperseded
	}

	a.icons.PruneCache(files)
	if removed, err := a.icons.PruneStore(ctx, files); err != nil {
		logging.LogStoreError(a.logger, err, "prune_icons", nil)
	} else if removed > 0 {
		a.logger.Debug("Pruned stored icons", "count", removed)
	}

	results := a.icons.ExtractAll(ctx, files, a.cfg.Concurrency)
	if ctx.Err() != nil {
		return nil, ErrLoadSuperseded
	}

	apps := make([]types.AppItem, 0, len(results))
	for _, r := range results {
		item := types.AppItem{Name: winpath.Stem(r.Path), Path: r.Path}
		if r.OK {
			item.Icon = dataurl.EncodeBytes(r.Icon)
		}
		apps = append(apps, item)
	}

	logging.LogOperation(a.logger, "load_apps", time.Since(start), map[string]interface{}{
		"count": len(apps),
	})
	return &types.AppList{Apps: apps, FolderFound: found, IsEmpty: len(apps) == 0}, nil
}

// GetIcon returns the icon of the shortcut at path as a data URL, or "" when
// it has none.
func (a *App) GetIcon(path string) string {
	icon, ok := a.icons.ExtractIconBytes(path)
	if !ok {
		return ""
	}
	return dataurl.EncodeBytes(icon)
}

// LaunchApp hides the window and opens the shortcut at path.
func (a *App) LaunchApp(path string) error {
	if a.hide != nil {
		a.hide()
	}
	return a.launcher.Launch(path)
}

// OpenShortcutsFolder opens the shortcuts folder, creating it first when it
// does not exist.
func (a *App) OpenShortcutsFolder() error {
	folder := a.cfg.ShortcutsPath
	if pathsec.IsUnsafePath(folder) {
		return a.launcher.OpenFolder(folder)
	}
	if !a.fs.DirExists(folder) {
		if err := a.fs.CreateDir(folder); err != nil {
			a.logger.Error("Failed to create shortcuts folder",
				"path", pathsec.RedactPath(folder),
				"error", pathsec.SafeErrorMessage(err))
			return fmt.Errorf("create shortcuts folder: %w", err)
		}
	}
	return a.launcher.OpenFolder(folder)
}

// GetShortcutsPath returns the folder being listed.
func (a *App) GetShortcutsPath() string {
	return a.cfg.ShortcutsPath
}

// GetLogger returns the application's structured logger
func (a *App) GetLogger() logging.Logger {
	return a.logger
}
