package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the directory must stay quiet before a
// batch of changes is handed to the handler.
const DefaultDebounce = 200 * time.Millisecond

// ErrNotDirectory is returned when the watched path is not a directory.
var ErrNotDirectory = errors.New("watch path is not a directory")

// Handler is called with the sorted names of the files that changed since
// the previous call.
type Handler func(ctx context.Context, changed []string) error

// Watcher monitors one corpus directory for page changes using fsnotify.
//
// Design decision: We collect events until the directory is quiet for the
// debounce interval because:
// 1. Editors write a file in several steps (truncate, write, rename)
// 2. Copying a whole site produces one event per file
// 3. Re-ranking once per burst keeps the history database small
type Watcher struct {
	dir      string
	debounce time.Duration
	filter   func(name string) bool
	logger   *slog.Logger

	fw        *fsnotify.Watcher
	closeOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet interval. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter restricts events to files whose base name is accepted by
// filter. Without a filter every file counts.
func WithFilter(filter func(name string) bool) Option {
	return func(w *Watcher) {
		w.filter = filter
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New starts watching dir. Events are buffered by fsnotify until Run is
// called, so changes made right after New returns are not lost.
func New(dir string, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	w := &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		filter:   func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.fw = fw

	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fw.Close()
	})
	return err
}

// Run delivers batches of changed files to handler until ctx is cancelled
// or the watcher is closed. Handler errors are logged and watching goes
// on, since a page saved halfway through an edit is usually fixed by the
// next write. Run closes the watcher before returning.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	defer func() { _ = w.Close() }()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if !w.relevant(event) || !w.filter(name) {
				continue
			}
			w.logger.Debug("file changed", "file", name, "op", event.Op.String())
			pending[name] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			slices.Sort(changed)
			clear(pending)

			if err := handler(ctx, changed); err != nil {
				w.logger.Warn("handling changes failed", "dir", w.dir, "error", err)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

// relevant reports whether an event can change the link graph.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename)
}
