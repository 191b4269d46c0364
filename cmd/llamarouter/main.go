package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/thebeast/llamarouter/internal/config"
	"github.com/thebeast/llamarouter/internal/db"
	dbRedis "github.com/thebeast/llamarouter/internal/db/redis"
	"github.com/thebeast/llamarouter/internal/domain/filter"
	"github.com/thebeast/llamarouter/internal/domain/retrieval"
	"github.com/thebeast/llamarouter/internal/domain/target"
	logpkg "github.com/thebeast/llamarouter/internal/logger"
	"github.com/thebeast/llamarouter/internal/metrics"
	"github.com/thebeast/llamarouter/internal/repository/routecache"
	"github.com/thebeast/llamarouter/internal/resilience"
	chiTransport "github.com/thebeast/llamarouter/internal/transport/chi"
	"github.com/thebeast/llamarouter/internal/transport/llamacloud"
	openaiRouter "github.com/thebeast/llamarouter/internal/transport/openai"
	healthuc "github.com/thebeast/llamarouter/internal/usecase/health"
	queryuc "github.com/thebeast/llamarouter/internal/usecase/query"
	retrieveuc "github.com/thebeast/llamarouter/internal/usecase/retrieve"
	routeuc "github.com/thebeast/llamarouter/internal/usecase/route"
	"github.com/thebeast/llamarouter/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting llamarouter API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("build_date", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("targets", len(cfg.Targets)),
		zap.Bool("routed", cfg.Routed()),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterHTTPMetrics()

	targets, err := buildTargets(cfg.Targets)
	if err != nil {
		logger.Fatal("Invalid targets", zap.Error(err))
	}

	// Optional routing cache
	store, err := openStore(cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	if store != nil {
		defer store.Close()

		ctx := context.Background()
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Retrieval dependency
	indexes := make([]llamacloud.Index, len(cfg.Targets))
	for i, t := range cfg.Targets {
		indexes[i] = llamacloud.Index{Target: t.Name, IndexName: t.IndexName, PipelineID: t.PipelineID}
	}
	lc, err := llamacloud.New(llamacloud.Config{
		APIKey:         cfg.LlamaCloud.APIKey,
		BaseURL:        cfg.LlamaCloud.BaseURL,
		OrganizationID: cfg.LlamaCloud.OrganizationID,
		ProjectName:    cfg.LlamaCloud.ProjectName,
		ConnectTimeout: time.Duration(cfg.LlamaCloud.ConnectTimeout) * time.Second,
		ReadTimeout:    time.Duration(cfg.LlamaCloud.ReadTimeout) * time.Second,
	}, indexes)
	if err != nil {
		logger.Fatal("Failed to create LlamaCloud client", zap.Error(err))
	}

	retrieveSvc := buildRetriever(cfg, lc, logger)

	// Router (only with more than one target)
	var router queryuc.Router
	var selector *openaiRouter.Selector
	if cfg.Routed() {
		selector = openaiRouter.NewSelector(&openaiRouter.Config{
			APIKey:  cfg.Router.APIKey,
			BaseURL: cfg.Router.BaseURL,
			Model:   cfg.Router.Model,
			Logger:  logger,
		})

		var sel routeuc.Selector = selector
		if store != nil {
			sel = routecache.New(selector, store, cfg.CacheTTL(), metrics.RouteCacheTotal, logger)
		}
		router = routeuc.New(targets, sel, retrieveSvc, logger)
		logger.Info("Router created",
			zap.String("provider", cfg.Router.Provider),
			zap.String("model", cfg.Router.Model),
		)
	}

	normalizer := filter.NewNormalizer(filter.Expansion(cfg.Filters.Expansion), cfg.Filters.VariantFields...)

	tuning := make(map[string]retrieval.Tuning, len(cfg.Targets))
	for _, t := range cfg.Targets {
		tuning[t.Name] = t.Tuning
	}

	querySvc, err := queryuc.New(normalizer, targets, retrieveSvc, router, queryuc.Options{
		RequiredFilterKeys: cfg.Query.RequiredFilterKeys,
		EmptyResultMessage: cfg.Query.EmptyResultMessage,
		TargetTuning:       tuning,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create query service", zap.Error(err))
	}

	// Health service
	healthSvc := healthuc.New(healthuc.DefaultTimeout, logger).
		Register("llamacloud", lc)
	if selector != nil {
		healthSvc.Register("router", selector)
	}
	if store != nil {
		healthSvc.Register("cache", healthuc.CheckerFunc(store.Ping))
	}

	// Create chi server
	server := chiTransport.NewServer(querySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func buildTargets(cfgs []config.TargetConfig) (target.Set, error) {
	targets := make([]target.Target, len(cfgs))
	for i, t := range cfgs {
		targets[i] = target.Target{Name: t.Name, Description: t.Description}
	}
	return target.NewSet(targets...)
}

// openStore returns nil when caching is disabled. Valkey speaks the Redis protocol.
func openStore(cfg config.CacheConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.CacheRedis, config.CacheValkey:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	default:
		return nil, nil
	}
}

// buildRetriever assembles the retry chain: LlamaCloud -> (limiter) -> (breaker) -> retry.
func buildRetriever(cfg config.Config, index retrieveuc.Index, logger *zap.Logger) *retrieveuc.Service {
	svc := retrieveuc.New(index, resilience.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff:     cfg.Backoff(),
		Retryable:   llamacloud.IsTransient,
	}, logger)

	if cfg.Breaker.Enabled {
		svc.WithBreaker(resilience.NewBreaker("llamacloud", resilience.BreakerConfig{
			MinRequests:     cfg.Breaker.MinRequests,
			FailureRatio:    cfg.Breaker.FailureRatio,
			OpenTimeout:     time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
			HalfOpenMaxCall: cfg.Breaker.HalfOpenMaxCalls,
			Interval:        time.Duration(cfg.Breaker.IntervalSec) * time.Second,
		}, countsAsFailure, logger))
	}

	// Pass nil interface (not typed nil pointer!) if rate limiting is not configured.
	if cfg.RateLimit.RPS > 0 {
		svc.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst))
	}
	return svc
}

// countsAsFailure ignores caller cancellation so abandoned requests do not trip the breaker.
func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}
