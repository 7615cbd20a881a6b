package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eugenenazirov/service-calculator/internal/api"
	"github.com/eugenenazirov/service-calculator/internal/cache"
	"github.com/eugenenazirov/service-calculator/internal/catalog"
	"github.com/eugenenazirov/service-calculator/internal/config"
	"github.com/eugenenazirov/service-calculator/internal/planner"
	"github.com/eugenenazirov/service-calculator/internal/solver"
)

const redisPingTimeout = 2 * time.Second

// App encapsulates the application dependencies and HTTP server.
type App struct {
	core    *Core
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// Core holds the dependencies shared by the HTTP server and the interactive calculator.
type Core struct {
	Store   *catalog.MemoryStore
	Cache   cache.Cache
	Planner *planner.Planner

	closers []func() error
}

// NewCore builds the catalog store, result cache and planner described by cfg.
func NewCore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Core, error) {
	policy, err := PolicyFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	core := &Core{}

	storeOpts := []catalog.Option{catalog.WithLogger(logger.Named("catalog"))}
	switch cfg.CatalogDriver {
	case config.DriverJSON:
		storeOpts = append(storeOpts, catalog.WithPersister(catalog.NewFileStore(cfg.CatalogPath)))
	case config.DriverSQLite:
		sqlStore, err := catalog.OpenSQLite(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog database: %w", err)
		}
		core.closers = append(core.closers, sqlStore.Close)
		storeOpts = append(storeOpts, catalog.WithPersister(sqlStore))
	}
	core.Store = catalog.NewMemoryStore(storeOpts...)
	core.Store.Load(ctx)

	core.Cache = newCache(ctx, cfg, logger)
	if closer, ok := core.Cache.(interface{ Close() error }); ok {
		core.closers = append(core.closers, closer.Close)
	}

	core.Planner = planner.New(core.Store,
		planner.WithCache(core.Cache),
		planner.WithPolicy(policy),
		planner.WithLogger(logger.Named("planner")),
	)

	logger.Info("core initialized",
		zap.String("catalog_driver", cfg.CatalogDriver),
		zap.String("catalog_path", cfg.CatalogPath),
		zap.Bool("cache", cfg.CacheEnabled()),
	)

	return core, nil
}

// Close releases the database and cache connections.
func (c *Core) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// PolicyFromConfig converts the solver settings into a planner policy.
func PolicyFromConfig(cfg config.Config) (planner.Policy, error) {
	tie, err := solver.ParseTiePolicy(cfg.TiePolicy)
	if err != nil {
		return planner.Policy{}, err
	}
	return planner.Policy{
		ExactMaxItems:  cfg.ExactMaxItems,
		MaxAdditional:  cfg.MaxAdditional,
		SearchMargin:   cfg.SearchMargin,
		NodeBudget:     cfg.NodeBudget,
		TiePolicy:      tie,
		FloorAtCurrent: cfg.FloorAtCurrent,
	}, nil
}

// newCache connects to Redis when configured. An unreachable server degrades
// to no caching.
func newCache(ctx context.Context, cfg config.Config, logger *zap.Logger) cache.Cache {
	if !cfg.CacheEnabled() {
		return cache.Noop{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: redisPingTimeout,
	})
	rc := cache.NewRedis(client, cfg.CacheTTL)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		logger.Warn("redis unavailable, result cache disabled",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
		_ = rc.Close()
		return cache.Noop{}
	}
	return rc
}

// New initializes the application with all dependencies from the provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(core.Planner, core.Store, api.WithTolerance(cfg.Tolerance))
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		core:    core,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// BuildRootHandler mounts the API under /api/ and serves a short index at /.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service": "service-calculator",
			"endpoints": []string{
				"GET /api/health",
				"GET /api/catalog",
				"PUT /api/catalog",
				"PUT /api/catalog/project-name",
				"POST /api/catalog/services",
				"PATCH /api/catalog/services/{index}",
				"DELETE /api/catalog/services/{index}",
				"POST /api/solve",
			},
		})
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

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Close releases resources held by the application core.
func (a *App) Close() error {
	return a.core.Close()
}
