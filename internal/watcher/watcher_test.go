package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-preview/previewkit/internal/logging"
)

func fsnotifyWrite(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}

func TestDedupeKeepsLastEventPerPath(t *testing.T) {
	events := []ChangeEvent{
		{Type: EventCreated, Path: "a.twig"},
		{Type: EventModified, Path: "b.twig"},
		{Type: EventModified, Path: "a.twig"},
	}

	out := dedupe(events)
	require.Len(t, out, 2)
	assert.Equal(t, "a.twig", out[0].Path)
	assert.Equal(t, EventModified, out[0].Type)
	assert.Equal(t, "b.twig", out[1].Path)
}

func TestChangeEventTheme(t *testing.T) {
	root := filepath.Join("themes")
	e := ChangeEvent{Path: filepath.Join("themes", "aurora", "views", "pages", "home.twig")}
	assert.Equal(t, "aurora", e.Theme(root))

	top := ChangeEvent{Path: filepath.Join("themes", "readme.json")}
	assert.Equal(t, "", top.Theme(root))
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "created", EventCreated.String())
	assert.Equal(t, "modified", EventModified.String())
	assert.Equal(t, "deleted", EventDeleted.String())
	assert.Equal(t, "renamed", EventRenamed.String())
}

func TestDebounceBatchesRapidChanges(t *testing.T) {
	w := &ThemeWatcher{debounce: 50 * time.Millisecond, logger: logging.NewNop()}

	var mu sync.Mutex
	var batches [][]ChangeEvent
	w.OnChange(func(events []ChangeEvent) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		w.enqueue(ChangeEvent{Type: EventModified, Path: "aurora/views/pages/home.twig"})
	}
	w.enqueue(ChangeEvent{Type: EventModified, Path: "aurora/views/pages/index.twig"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, batches[0], 2)
}

func TestWatcherDeliversFileChanges(t *testing.T) {
	root := t.TempDir()
	pagesDir := filepath.Join(root, "aurora", "views", "pages")
	require.NoError(t, os.MkdirAll(pagesDir, 0o755))

	w, err := New(root, 30*time.Millisecond, logging.NewNop())
	require.NoError(t, err)
	defer w.Close()

	var mu sync.Mutex
	var got []ChangeEvent
	w.OnChange(func(events []ChangeEvent) {
		mu.Lock()
		got = append(got, events...)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	target := filepath.Join(pagesDir, "home.twig")
	require.NoError(t, os.WriteFile(target, []byte("<html></html>"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, target, got[0].Path)
	assert.Equal(t, "aurora", got[0].Theme(root))
}

func TestWatcherIgnoresUnrelatedExtensions(t *testing.T) {
	w := &ThemeWatcher{debounce: 20 * time.Millisecond, logger: logging.NewNop()}

	var mu sync.Mutex
	fired := false
	w.OnChange(func([]ChangeEvent) {
		mu.Lock()
		fired = true
		mu.Unlock()
	})

	// The extension filter runs in handleEvent; a .tmp write never queues.
	w.handleEvent(fsnotifyWrite(filepath.Join("aurora", "cache.tmp")))

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired)
}
