package app

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"launchbox/internal/infrastructure/logging"
	"launchbox/internal/pathsec"
	"launchbox/internal/services"
	"launchbox/internal/winpath"
)

// DefaultDebounce collapses bursts of folder events (a copy of many
// shortcuts, an editor's save dance) into one notification.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports changes to a shortcuts folder and its icons folder.
type Watcher struct {
	watcher  *fsnotify.Watcher
	folder   string
	iconsDir string
	debounce time.Duration
	onChange func()
	logger   logging.Logger
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWatcher watches folder and starts delivering debounced notifications
// to onChange. The icons folder is watched as well once it exists.
func NewWatcher(folder string, debounce time.Duration, onChange func(), logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if pathsec.IsUnsafePath(folder) {
		return nil, services.ErrUnsafePath
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(folder); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		folder:   folder,
		iconsDir: winpath.Join(folder, services.IconsDirName),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	// Missing until the user creates it.
	_ = fw.Add(w.iconsDir)

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			timer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) && ev.Name == w.iconsDir {
				if err := w.watcher.Add(w.iconsDir); err != nil {
					w.logger.Debug("Failed to watch icons folder", "error", pathsec.SafeErrorMessage(err))
				}
			}
			timer.Reset(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Folder watch error",
				"path", pathsec.RedactPath(w.folder),
				"error", pathsec.SafeErrorMessage(err))
		}
	}
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
