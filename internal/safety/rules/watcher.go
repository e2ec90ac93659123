package rules

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yungbote/contentsafety/internal/platform/logger"
)

const defaultWatchDebounce = 500 * time.Millisecond

// Watcher invalidates a Store when one of its rule files changes. Parent
// directories are watched so files created after startup are noticed.
type Watcher struct {
	store    *Store
	fsw      *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	log      *logger.Logger

	closeOnce sync.Once
}

func NewWatcher(store *Store, paths []string, debounce time.Duration, log *logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	w := &Watcher{
		store:    store,
		fsw:      fsw,
		files:    make(map[string]bool, len(paths)),
		debounce: debounce,
		log:      logger.OrNop(log).With("service", "RuleWatcher"),
	}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			// Missing directories are common for candidate paths.
			w.log.Debug("not watching rule directory", "dir", dir, "error", err)
			continue
		}
		w.log.Info("watching rule directory", "dir", dir)
	}
	return w, nil
}

// Run blocks until ctx is done, invalidating the store once per burst of
// relevant events.
func (w *Watcher) Run(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("rule file changed", "path", ev.Name, "op", ev.Op.String())
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("rule watcher error", "error", err)
		case <-timer.C:
			pending = false
			w.store.Invalidate()
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.fsw.Close() })
	return err
}
