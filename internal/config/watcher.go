package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/FerroO2000/sensorring/internal"
	"github.com/fsnotify/fsnotify"
)

// reloadedFile validates a reloaded configuration against the running one.
type reloadedFile struct {
	next *File
	prev *File
}

func (rf *reloadedFile) Validate(ac *AnomalyCollector) {
	rf.next.Validate(ac)

	// The buffer cannot be resized and the sensors are spawned once
	CheckUnchanged(ac, "BufferCapacity", &rf.next.BufferCapacity, rf.prev.BufferCapacity)
	CheckUnchanged(ac, "ProducerCount", &rf.next.ProducerCount, rf.prev.ProducerCount)
}

// DefaultWatcherDebounce is the time the watcher waits after the last
// file event before reloading, so a truncate followed by a write
// results in a single reload.
const DefaultWatcherDebounce = 100 * time.Millisecond

// Watcher reloads the pacing of the process when the configuration file changes.
type Watcher struct {
	tel *internal.Telemetry

	path string
	curr *File

	store *PacingStore

	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher returns a new watcher of the file at the given path.
// The file has already been loaded into curr.
func NewWatcher(path string, curr *File, store *PacingStore) *Watcher {
	return &Watcher{
		tel: internal.NewTelemetry("config", "watcher"),

		path: filepath.Clean(path),
		curr: curr,

		store: store,

		debounce: DefaultWatcherDebounce,
	}
}

// Init starts watching the directory of the file,
// so editors replacing the file are detected as well.
func (w *Watcher) Init() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	w.watcher = watcher

	return nil
}

// Run handles the file events until the context is done.
func (w *Watcher) Run(ctx context.Context) error {
	reloadTimer := time.NewTimer(w.debounce)
	reloadTimer.Stop()
	defer reloadTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-reloadTimer.C:
			w.reload()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if w.isRelevant(event) {
				reloadTimer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			w.tel.LogError("watcher error", err)
		}
	}
}

func (w *Watcher) isRelevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}

	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) reload() {
	next, err := Load(w.path)
	if err != nil {
		w.tel.LogError("failed to reload config, keeping the previous one", err, "path", w.path)
		return
	}

	NewValidator(w.tel).Validate(&reloadedFile{next: next, prev: w.curr})

	w.curr = next
	w.store.Store(next.Pacing())

	pacing := next.Pacing()
	w.tel.LogInfo("pacing reloaded",
		"producer_sleep_min", pacing.ProducerSleepMin,
		"producer_sleep_max", pacing.ProducerSleepMax,
		"consumer_interval", pacing.ConsumerInterval)
}

// Close stops watching the file.
func (w *Watcher) Close() error {
	if w.watcher == nil {
		return nil
	}

	return w.watcher.Close()
}
