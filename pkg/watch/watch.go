// Package watch keeps an ontology in step with a statements file on disk.
//
// The file is re-read after every burst of writes and the ontology is
// brought to its new content in a single batch, so a classifier listening to
// the ontology's manager sees one set of changes per save and can update its
// taxonomy incrementally.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
)

// DefaultDebounce is how long a burst of events must be quiet before the
// file is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("watch: watcher closed")

// Result describes one reload.
type Result struct {
	Path    string
	Changes []axiom.Change
	Err     error
	At      time.Time
}

// Handler is called after every reload triggered by Run, from Run's
// goroutine.
type Handler func(Result)

// Options configures a Watcher.
type Options struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	Logger   *slog.Logger
	Handler  Handler
}

// Watcher reloads one file into one ontology.
type Watcher struct {
	path     string
	ont      *axiom.Ontology
	debounce time.Duration
	log      *slog.Logger
	handler  Handler

	fsw      *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// New watches path for ont. The parent directory is watched rather than
// the file so that editors which save by renaming a temporary file are
// followed.
func New(path string, ont *axiom.Ontology, opts Options) (*Watcher, error) {
	if ont == nil {
		return nil, fmt.Errorf("watch %s: nil ontology", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		ont:      ont,
		debounce: opts.Debounce,
		log:      opts.Logger.With("component", "watch", "path", abs),
		handler:  opts.Handler,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string { return w.path }

// Reload reads the file and replaces the ontology's statements with its
// content. On a read or parse error the ontology is left as it was.
func (w *Watcher) Reload() ([]axiom.Change, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stmts, err := axiom.ParseDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", w.path, err)
	}
	return w.ont.Replace(stmts...), nil
}

// Run processes file events until ctx is cancelled or Close is called. It
// returns ctx.Err() or ErrClosed.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return ErrClosed

		case event, ok := <-w.fsw.Events:
			if !ok {
				return ErrClosed
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrClosed
			}
			w.log.Warn("file watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	res := Result{Path: w.path, At: time.Now()}
	res.Changes, res.Err = w.Reload()
	switch {
	case errors.Is(res.Err, os.ErrNotExist):
		// Mid-rename; the create event that follows triggers another reload.
		w.log.Debug("file missing, waiting for next save")
		return
	case res.Err != nil:
		w.log.Warn("reload failed, keeping previous statements", "error", res.Err)
	default:
		w.log.Info("reloaded", "changes", len(res.Changes), "statements", w.ont.Len())
	}
	if w.handler != nil {
		w.handler(res)
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
