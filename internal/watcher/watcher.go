// Package watcher observes the themes root for file changes and delivers
// debounced change batches to registered handlers. The server uses it to
// drop cached templates and push live reloads.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/storefront-preview/previewkit/internal/logging"
)

// EventType classifies one file change.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventRenamed
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ChangeEvent is one observed file change.
type ChangeEvent struct {
	Type EventType
	Path string
	At   time.Time
}

// Theme reports the top-level theme folder the change belongs to,
// relative to the watched root. Empty when the path sits at the root.
func (e ChangeEvent) Theme(root string) string {
	rel, err := filepath.Rel(root, e.Path)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// Handler receives one debounced batch of changes.
type Handler func(events []ChangeEvent)

// watchedExtensions are the theme file kinds worth reacting to.
var watchedExtensions = map[string]bool{
	".twig": true,
	".json": true,
	".css":  true,
	".js":   true,
	".png":  true,
	".jpg":  true,
	".svg":  true,
}

const defaultDebounce = 300 * time.Millisecond

// ThemeWatcher watches a themes root recursively with debouncing.
type ThemeWatcher struct {
	root     string
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   logging.Logger

	mu       sync.Mutex
	handlers []Handler
	pending  []ChangeEvent
	timer    *time.Timer
}

// New creates a watcher over the themes root. A non-positive debounce
// uses the default.
func New(root string, debounce time.Duration, logger logging.Logger) (*ThemeWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &ThemeWatcher{
		root:     root,
		fs:       fs,
		debounce: debounce,
		logger:   logger.WithComponent("watcher"),
	}, nil
}

// OnChange registers a batch handler. Handlers run sequentially on the
// debounce goroutine.
func (w *ThemeWatcher) OnChange(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Start registers the root tree and runs the watch loop until the
// context is cancelled.
func (w *ThemeWatcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

// Close stops the watcher.
func (w *ThemeWatcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}

func (w *ThemeWatcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

func (w *ThemeWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "watch error")
		}
	}
}

func (w *ThemeWatcher) handleEvent(event fsnotify.Event) {
	// New directories join the watch set so nested theme edits surface.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addTree(event.Name)
			return
		}
	}

	if !watchedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	change := ChangeEvent{Path: event.Name, At: time.Now()}
	switch {
	case event.Op.Has(fsnotify.Create):
		change.Type = EventCreated
	case event.Op.Has(fsnotify.Remove):
		change.Type = EventDeleted
	case event.Op.Has(fsnotify.Rename):
		change.Type = EventRenamed
	default:
		change.Type = EventModified
	}

	w.enqueue(change)
}

// enqueue adds a change to the pending batch and (re)arms the debounce
// timer. The batch flushes once changes go quiet for the debounce window.
func (w *ThemeWatcher) enqueue(change ChangeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, change)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *ThemeWatcher) flush() {
	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	handlers := append([]Handler(nil), w.handlers...)
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	batch = dedupe(batch)
	for _, h := range handlers {
		h(batch)
	}
}

// dedupe keeps the last event per path, preserving first-seen order.
func dedupe(events []ChangeEvent) []ChangeEvent {
	last := make(map[string]ChangeEvent, len(events))
	order := make([]string, 0, len(events))
	for _, e := range events {
		if _, seen := last[e.Path]; !seen {
			order = append(order, e.Path)
		}
		last[e.Path] = e
	}

	out := make([]ChangeEvent, 0, len(order))
	for _, p := range order {
		out = append(out, last[p])
	}
	return out
}
