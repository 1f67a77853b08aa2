package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kbukum/runkit/cache"
	"github.com/kbukum/runkit/chain"
	"github.com/kbukum/runkit/config"
	"github.com/kbukum/runkit/logger"
	"github.com/kbukum/runkit/observability"
	"github.com/kbukum/runkit/runnable"
	"github.com/kbukum/runkit/version"
)

// app holds everything a command needs, built from the loaded config.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	catalog  *chain.Catalog
	metrics  http.Handler
	checkers []observability.HealthChecker
	closers  []func(context.Context) error
}

// loadApp loads the configuration named by the global flags and wires an app.
func loadApp(ctx context.Context, g *globalFlags) (*app, error) {
	var opts []config.LoaderOption
	if g.configFile != "" {
		opts = append(opts, config.WithConfigFile(g.configFile))
	}
	if g.envFile != "" {
		opts = append(opts, config.WithEnvFile(g.envFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return newApp(ctx, cfg)
}

// newApp wires the catalog, cache, telemetry and middleware for cfg.
// Partially built resources are released when wiring fails.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{
		cfg: cfg,
		log: logger.New(&cfg.Logging, cfg.Base.Name),
	}
	logger.SetGlobalLogger(a.log)
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	catalogOpts := []chain.CatalogOption{chain.WithCatalogLogger(a.log)}

	store, err := a.cacheStore(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil {
		catalogOpts = append(catalogOpts, chain.WithCacheStore(store, cfg.Cache.DefaultTTL()))
	}

	mws, err := a.middlewares(ctx)
	if err != nil {
		return nil, err
	}
	catalogOpts = append(catalogOpts, chain.WithMiddleware(mws...))

	a.catalog = chain.NewCatalog(
		chain.Builtins(chain.NewRegistry()),
		chain.NewFileLoader(cfg.Chains.Dirs...),
		catalogOpts...,
	)
	a.checkers = append([]observability.HealthChecker{a.catalog}, a.checkers...)
	return a, nil
}

func (a *app) cacheStore(ctx context.Context) (cache.Store, error) {
	cc := a.cfg.Cache
	if !cc.Enabled {
		return nil, nil
	}
	switch cc.Backend {
	case cache.BackendRedis:
		rdb, err := cache.NewRedisClient(ctx, cc.Redis, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		store := cache.NewRedisStore(rdb, cc.Prefix)
		a.checkers = append(a.checkers, store)
		return store, nil
	default:
		return cache.NewMemoryStore(), nil
	}
}

// middlewares returns the chain middleware, outermost first: tracing,
// logging, metrics, resilience and then the per-attempt timeout.
func (a *app) middlewares(ctx context.Context) ([]runnable.Middleware[any, any], error) {
	cfg := a.cfg
	tc := cfg.Telemetry
	serviceVersion := cfg.Base.Version
	if serviceVersion == "" {
		serviceVersion = version.Get().Short()
	}

	var mws []runnable.Middleware[any, any]

	if tc.Tracing {
		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    cfg.Base.Name,
			ServiceVersion: serviceVersion,
			Environment:    cfg.Base.Environment,
			Endpoint:       tc.Endpoint,
			Insecure:       tc.Insecure,
			SampleRate:     tc.SampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing tracer: %w", err)
		}
		a.closers = append(a.closers, tp.Shutdown)
		mws = append(mws, runnable.WithTracing[any, any](cfg.Base.Name))
	}

	mws = append(mws, runnable.WithLogging[any, any](a.log.WithComponent("runnable")))

	var recorders []observability.Recorder
	if tc.Prometheus {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		pm, err := observability.NewPromMetrics(reg)
		if err != nil {
			return nil, err
		}
		a.metrics = pm.Handler()
		recorders = append(recorders, pm)
	}
	if tc.Metrics {
		mp, err := observability.InitMeter(ctx, observability.MeterConfig{
			ServiceName:    cfg.Base.Name,
			ServiceVersion: serviceVersion,
			Environment:    cfg.Base.Environment,
			Endpoint:       tc.Endpoint,
			Insecure:       tc.Insecure,
			Interval:       tc.MetricsInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing meter: %w", err)
		}
		a.closers = append(a.closers, mp.Shutdown)
		om, err := observability.NewMetrics(observability.Meter(cfg.Base.Name))
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, om)
	}
	if len(recorders) > 0 {
		mws = append(mws, runnable.WithMetrics[any, any](observability.Multi(recorders...)))
	}

	if !cfg.Runtime.Resilience.IsEmpty() {
		mws = append(mws, runnable.WithResilience[any, any](cfg.Runtime.Resilience))
	}
	mws = append(mws, runnable.WithTimeout[any, any](cfg.Runtime.DefaultTimeout))
	return mws, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
