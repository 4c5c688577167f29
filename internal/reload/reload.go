package reload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eugenenazirov/vangers-settings/internal/metrics"
	"github.com/eugenenazirov/vangers-settings/internal/settings"
	"github.com/eugenenazirov/vangers-settings/internal/store"
)

var (
	// ErrThrottled indicates the reload was dropped because triggers arrived too quickly.
	ErrThrottled = errors.New("reload throttled")
	// ErrReloadDisabled indicates focus reloads are switched off by window.reload_on_focus.
	ErrReloadDisabled = errors.New("reload on focus is disabled")
)

const defaultSettle = 100 * time.Millisecond

// Reload triggers reported to the Observer.
const (
	TriggerManual = "manual"
	TriggerFocus  = "focus"
	TriggerWatch  = "watch"
)

// Observer is told about every reload attempt.
type Observer interface {
	ObserveReload(trigger, result string)
	ObserveRejection(kind string)
	SetVersion(v uint64)
}

type nopObserver struct{}

func (nopObserver) ObserveReload(string, string) {}
func (nopObserver) ObserveRejection(string)      {}
func (nopObserver) SetVersion(uint64)            {}

// LoadFunc reads and validates the settings at path.
type LoadFunc func(path string) (*settings.Settings, error)

// Option configures a Reloader.
type Option func(*Reloader)

// WithLimit throttles reloads to rps per second with the given burst. A
// non-positive rps disables throttling.
func WithLimit(rps float64, burst int) Option {
	return func(r *Reloader) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLoader overrides settings.Load (primarily for tests).
func WithLoader(load LoadFunc) Option {
	return func(r *Reloader) {
		r.load = load
	}
}

// WithObserver reports reload outcomes to o.
func WithObserver(o Observer) Option {
	return func(r *Reloader) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithSettle sets how long Watch waits for file events to stop before reloading.
func WithSettle(d time.Duration) Option {
	return func(r *Reloader) {
		r.settle = d
	}
}

// Reloader replaces the settings in a store with a freshly loaded copy.
type Reloader struct {
	path     string
	store    store.Store
	logger   *zap.Logger
	limiter  *rate.Limiter
	load     LoadFunc
	settle   time.Duration
	observer Observer

	mu sync.Mutex
}

// New creates a Reloader for the settings file at path.
func New(path string, st store.Store, logger *zap.Logger, opts ...Option) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reloader{
		path:     path,
		store:    st,
		logger:   logger,
		load:     settings.Load,
		settle:   defaultSettle,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.observer.SetVersion(st.Version())
	return r
}

// Path returns the settings file being reloaded.
func (r *Reloader) Path() string {
	return r.path
}

// Reload loads the settings file and publishes the result. On failure the
// store is left untouched and the loader's error is returned.
func (r *Reloader) Reload(ctx context.Context) (*settings.Settings, error) {
	return r.reload(ctx, TriggerManual)
}

func (r *Reloader) reload(ctx context.Context, trigger string) (*settings.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.limiter != nil && !r.limiter.Allow() {
		r.logger.Debug("settings reload throttled", zap.String("path", r.path), zap.String("trigger", trigger))
		r.observer.ObserveReload(trigger, metrics.ResultThrottled)
		return nil, ErrThrottled
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.load(r.path)
	if err != nil {
		r.logger.Warn("settings reload rejected, keeping previous settings",
			zap.String("path", r.path),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		r.observer.ObserveReload(trigger, metrics.ResultRejected)
		var settingsErr *settings.Error
		if errors.As(err, &settingsErr) {
			r.observer.ObserveRejection(settingsErr.Kind.String())
		}
		return nil, err
	}

	if _, err := r.store.Swap(next); err != nil {
		return nil, fmt.Errorf("publish settings: %w", err)
	}

	version := r.store.Version()
	r.observer.ObserveReload(trigger, metrics.ResultOK)
	r.observer.SetVersion(version)
	r.logger.Info("settings reloaded",
		zap.String("path", r.path),
		zap.String("trigger", trigger),
		zap.Uint64("version", version),
	)
	return next, nil
}

// Focus handles the window regaining focus.
func (r *Reloader) Focus(ctx context.Context) (*settings.Settings, error) {
	if !r.store.Current().Window.ReloadOnFocus {
		r.observer.ObserveReload(TriggerFocus, metrics.ResultDisabled)
		return nil, ErrReloadDisabled
	}
	return r.reload(ctx, TriggerFocus)
}

// Watch reloads whenever the settings file is written, created or renamed
// into place, until ctx is done. Bursts of events within the settle period
// trigger a single reload.
func (r *Reloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file instead of writing it, so watch the directory.
	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(r.path)
	r.logger.Info("watching settings file", zap.String("path", r.path))

	settle := time.NewTimer(time.Hour)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			settle.Reset(r.settle)
		case <-settle.C:
			if _, err := r.reload(ctx, TriggerWatch); errors.Is(err, ErrThrottled) {
				settle.Reset(r.settle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("settings watcher error", zap.Error(err))
		}
	}
}
