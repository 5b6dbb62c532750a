package travel

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jsexpertdev/ostad-ai-agent/internal/metrics"
	"github.com/rs/zerolog"
)

// defaultStabilityThreshold coalesces bursts of writes into one reload
const defaultStabilityThreshold = 200 * time.Millisecond

// CatalogWatcher reloads a catalog file into a store when it changes. A file
// that fails to parse leaves the previous catalog in place.
type CatalogWatcher struct {
	watcher            *fsnotify.Watcher
	path               string
	store              *CatalogStore
	metrics            *metrics.Metrics
	logger             zerolog.Logger
	stabilityThreshold time.Duration

	done     chan struct{}
	timer    *time.Timer
	timerMu  sync.Mutex
	stopOnce sync.Once
}

// CatalogWatcherConfig holds configuration for the watcher
type CatalogWatcherConfig struct {
	Path               string
	Store              *CatalogStore
	Metrics            *metrics.Metrics
	Logger             zerolog.Logger
	StabilityThreshold time.Duration
}

// NewCatalogWatcher creates a new catalog watcher
func NewCatalogWatcher(cfg CatalogWatcherConfig) (*CatalogWatcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("catalog store is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	threshold := cfg.StabilityThreshold
	if threshold <= 0 {
		threshold = defaultStabilityThreshold
	}

	return &CatalogWatcher{
		watcher:            watcher,
		path:               filepath.Clean(cfg.Path),
		store:              cfg.Store,
		metrics:            cfg.Metrics,
		logger:             cfg.Logger,
		stabilityThreshold: threshold,
		done:               make(chan struct{}),
	}, nil
}

// Start watches the catalog's directory, so replacing the file by rename
// is seen as well as in-place writes
func (w *CatalogWatcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go w.eventLoop()

	w.logger.Info().Str("path", w.path).Msg("Catalog watcher started")
	return nil
}

// Stop stops the watcher
func (w *CatalogWatcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Info().Msg("Catalog watcher stopped")
	return nil
}

func (w *CatalogWatcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.debounce()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Catalog watcher error")

		case <-w.done:
			return
		}
	}
}

// debounce schedules a reload once writes settle
func (w *CatalogWatcher) debounce() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.stabilityThreshold, func() {
		select {
		case <-w.done:
			return
		default:
			w.Reload()
		}
	})
}

// Reload reads the catalog file and swaps it in if it is valid
func (w *CatalogWatcher) Reload() error {
	c, err := LoadCatalog(w.path)
	if err != nil {
		w.metrics.RecordCatalogReload(false)
		w.logger.Error().Err(err).Str("path", w.path).Msg("Catalog reload failed, keeping previous catalog")
		return err
	}

	w.store.Set(c)
	w.metrics.RecordCatalogReload(true)
	w.logger.Info().
		Str("path", w.path).
		Int("flights", len(c.Flights)).
		Int("hotels", len(c.Hotels)).
		Msg("Catalog reloaded")
	return nil
}
