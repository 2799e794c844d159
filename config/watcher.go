package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mindmesh/mindmesh/pkg/logger"
)

// HotReloadableConfig is the subset of settings a running engine can absorb
// without a restart: log verbosity, maintenance cadence, and ingestion
// throttling. Cold settings (worker pool size, mailbox capacity, registry
// sizing, server ports) are fixed at startup.
type HotReloadableConfig struct {
	LogLevel            string
	LogFormat           string
	MaintenanceInterval time.Duration
	LearnEvery          int
	IngestionRateLimit  float64
}

// ExtractHotReloadable pulls the hot-reloadable subset from a Config.
func ExtractHotReloadable(cfg *Config) HotReloadableConfig {
	return HotReloadableConfig{
		LogLevel:            cfg.Log.Level,
		LogFormat:           cfg.Log.Format,
		MaintenanceInterval: cfg.Maintenance.Interval,
		LearnEvery:          cfg.Maintenance.LearnEvery,
		IngestionRateLimit:  cfg.Ingestion.RateLimit,
	}
}

// Changed reports whether any hot-reloadable setting differs.
func (h HotReloadableConfig) Changed(other HotReloadableConfig) bool {
	return h != other
}

// Watcher monitors the configuration file and notifies callbacks when a
// change touches the hot-reloadable subset. Edits that only affect cold
// settings are logged and otherwise ignored.
type Watcher struct {
	watcher    *fsnotify.Watcher
	loader     *Loader
	configPath string
	debounce   time.Duration

	mu        sync.RWMutex
	callbacks []func(*Config)
	last      HotReloadableConfig
	running   bool

	stopCh chan struct{}
}

// WatcherOption is a functional option for Watcher configuration.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce duration for file change events.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a new configuration file watcher.
func NewWatcher(configPath string, loader *Loader, opts ...WatcherOption) (*Watcher, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config path is required for watching")
	}

	fswatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:    fswatcher,
		loader:     loader,
		configPath: configPath,
		debounce:   500 * time.Millisecond,
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// OnChange registers a callback invoked with the freshly loaded Config
// whenever a hot-reloadable setting changes.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Watch blocks, monitoring the configuration file, until the context is
// cancelled or Stop is called. File events are debounced so editors that
// write in several bursts trigger a single reload.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if err := w.watcher.Add(w.configPath); err != nil {
		return fmt.Errorf("watch config file %s: %w", w.configPath, err)
	}

	// Seed the baseline so an unchanged rewrite does not notify.
	if cfg, err := w.loader.Load(w.configPath, nil); err == nil {
		w.mu.Lock()
		w.last = ExtractHotReloadable(cfg)
		w.mu.Unlock()
	}

	var pending *time.Timer
	var pendingC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-w.stopCh:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(w.debounce)
				pendingC = pending.C
			} else {
				if !pending.Stop() {
					select {
					case <-pending.C:
					default:
					}
				}
				pending.Reset(w.debounce)
			}

		case <-pendingC:
			pending = nil
			pendingC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "path", w.configPath, "error", err)
		}
	}
}

// reload re-reads the configuration and notifies callbacks when the
// hot-reloadable subset changed.
func (w *Watcher) reload() {
	cfg, err := w.loader.Load(w.configPath, nil)
	if err != nil {
		logger.Warn("config reload failed", "path", w.configPath, "error", err)
		return
	}

	hot := ExtractHotReloadable(cfg)

	w.mu.Lock()
	if !hot.Changed(w.last) {
		w.mu.Unlock()
		logger.Debug("config change has no hot-reloadable effect", "path", w.configPath)
		return
	}
	w.last = hot
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	logger.Info("configuration reloaded",
		"path", w.configPath,
		"log_level", hot.LogLevel,
		"maintenance_interval", hot.MaintenanceInterval,
		"learn_every", hot.LearnEvery,
		"ingest_rate_limit", hot.IngestionRateLimit,
	)
	for _, cb := range callbacks {
		w.invoke(cb, cfg)
	}
}

// invoke runs one callback, containing panics.
func (w *Watcher) invoke(cb func(*Config), cfg *Config) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("config callback panic", "panic", r)
		}
	}()
	cb(cfg)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// ConfigPath returns the path being watched.
func (w *Watcher) ConfigPath() string {
	return w.configPath
}
