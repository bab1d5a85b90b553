package sitesync

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/logger"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a burst of changes triggers.
const DefaultDebounce = 500 * time.Millisecond

// Trigger is the function a Watcher calls; Orchestrator.Trigger satisfies it.
type Trigger func(ctx context.Context, reason string) (Result, error)

// Watcher triggers cycles when files under a local source directory change.
// It is meant for serving a repository that lives on the same machine, where
// no webhook will ever arrive.
type Watcher struct {
	root     string
	trigger  Trigger
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *zap.SugaredLogger

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewWatcher watches root and every directory below it, except VCS metadata.
func NewWatcher(root string, trigger Trigger, debounce time.Duration, log *zap.SugaredLogger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.ComponentLogger("sitesync.watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	w := &Watcher{
		root:     root,
		trigger:  trigger,
		debounce: debounce,
		watcher:  fw,
		logger:   log,
		done:     make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins processing events in the background.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()
}

// Stop ends watching and waits for the event loop and any pending debounced
// trigger to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if ignored(path) && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Source watcher error", logger.FieldError, err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if ignored(event.Name) || event.Op == fsnotify.Chmod {
		return
	}

	// New directories need their own watch
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warnw("Failed to watch new directory", logger.FieldPath, event.Name, logger.FieldError, err)
			}
		}
	}

	w.logger.Debugw("Source change detected", "file", event.Name, "op", event.Op.String())
	w.schedule()
}

// schedule debounces a burst of changes into one trigger.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		return
	default:
	}
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	res, err := w.trigger(context.Background(), "watch")
	if err != nil {
		w.logger.Warnw("Triggered cycle failed", logger.FieldError, err)
		return
	}
	w.logger.Infow("Source change triggered cycle", "outcome", res.Outcome.String(), logger.FieldCommit, res.Commit)
}

// ignored reports whether a path is VCS metadata or an editor temp file.
func ignored(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".git" {
			return true
		}
	}
	base := filepath.Base(path)
	return strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") || strings.HasPrefix(base, ".#")
}
