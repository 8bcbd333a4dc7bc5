package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"finsight/internal/cache"
	"finsight/internal/config"
	"finsight/internal/executor"
	"finsight/internal/logger"
	"finsight/internal/server"
	"finsight/internal/source"
	"finsight/internal/source/sectors"
)

// App wires configuration into the running service: cache, rate limiter,
// sector registry, adapters, resolver, executor and the HTTP front end.
type App struct {
	cfg      *config.Config
	store    cache.Store
	adapters executor.Adapters
	service  *Service
	httpSrv  *server.Server
}

// NewApp builds the application from config without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	store, err := buildStore(cfg.Cache)
	if err != nil {
		return nil, err
	}
	limits := buildLimiter(cfg.Sources)

	universe, err := sectors.NewRegistry(cfg.Sectors.Path)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading sector registry failed: %w", err)
	}

	adapters, err := buildAdapters(cfg.Sources, universe)
	if err != nil {
		store.Close()
		return nil, err
	}

	res := buildResolver(cfg.Cache, cfg.Executor, store, limits)
	exec := executor.New(executor.NewRegistry(adapters), res, executor.Options{
		Parallel:      cfg.Executor.Parallel,
		MaxConcurrent: cfg.Executor.MaxConcurrent,
	})
	service := NewService(exec)

	httpSrv, err := server.New(server.Config{
		Addr:    cfg.App.HTTPAddr,
		Service: service,
		Cache:   store,
		Stats:   sourceStats(adapters),
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{cfg: cfg, store: store, adapters: adapters, service: service, httpSrv: httpSrv}, nil
}

// Service exposes the query service for embedding and tests.
func (a *App) Service() *Service {
	if a == nil {
		return nil
	}
	return a.service
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	logger.Infof("finsight listening on %s", a.httpSrv.Addr())

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	err := group.Wait()
	if cerr := a.store.Close(); cerr != nil {
		logger.Warnf("closing cache store failed: %v", cerr)
	}
	return err
}

func sourceStats(adapters executor.Adapters) server.StatsSource {
	all := []source.Adapter{adapters.Regulatory, adapters.Research}
	all = append(all, adapters.Market...)
	return func() map[string]source.Stats {
		out := make(map[string]source.Stats, len(all))
		for _, a := range all {
			if a != nil {
				out[a.Identity()] = a.Stats()
			}
		}
		return out
	}
}
