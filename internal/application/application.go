package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/eugenenazirov/vangers-settings/internal/api"
	"github.com/eugenenazirov/vangers-settings/internal/config"
	"github.com/eugenenazirov/vangers-settings/internal/metrics"
	"github.com/eugenenazirov/vangers-settings/internal/reload"
	"github.com/eugenenazirov/vangers-settings/internal/settings"
	"github.com/eugenenazirov/vangers-settings/internal/store"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	cfg      config.Config
	store    *store.Snapshot
	metrics  *metrics.Metrics
	reloader *reload.Reloader
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server

	stopOnce    sync.Once
	stopWatcher context.CancelFunc
	watchDone   chan struct{}
}

// New loads the settings file named by the configuration and wires the
// store, reloader and HTTP server around it. A settings file that fails to
// load is returned as the *settings.Error from settings.Load.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	initial, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}

	snapshot, err := store.NewSnapshot(initial)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize settings store: %w", err)
	}

	m := metrics.New()
	reloader := reload.New(cfg.SettingsPath, snapshot, logger,
		reload.WithLimit(cfg.ReloadRPS, cfg.ReloadBurst),
		reload.WithObserver(m),
	)
	handler := api.NewHandler(snapshot, reloader)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	logger.Info("settings loaded",
		zap.String("path", cfg.SettingsPath),
		zap.String("level", initial.Game.Level),
		zap.Stringer("backend", initial.Backend),
	)

	return &App{
		cfg:      cfg,
		store:    snapshot,
		metrics:  m,
		reloader: reloader,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter, m.Handler())),
	}, nil
}

// BuildRootHandler mounts the API under /api/, the metrics handler (when
// given) at /metrics, and sends the bare root to the current settings.
func BuildRootHandler(apiHandler, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/api/settings", http.StatusFound)
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server and, when enabled, the settings file watcher
// in background goroutines.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()

	if a.cfg.Watch {
		a.startWatcher()
	}
	return nil
}

func (a *App) startWatcher() {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatcher = cancel
	a.watchDone = make(chan struct{})

	go func() {
		defer close(a.watchDone)
		if err := a.reloader.Watch(ctx); err != nil {
			a.logger.Error("settings watcher stopped", zap.Error(err))
		}
	}()
}

// StopWatching stops the settings file watcher and waits for it to exit.
func (a *App) StopWatching() {
	a.stopOnce.Do(func() {
		if a.stopWatcher == nil {
			return
		}
		a.stopWatcher()
		<-a.watchDone
	})
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Settings returns the settings currently in effect.
func (a *App) Settings() *settings.Settings {
	return a.store.Current()
}
