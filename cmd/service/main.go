package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rcallahan/dispatch-relay-service/internal/backends"
	"github.com/rcallahan/dispatch-relay-service/internal/cache"
	"github.com/rcallahan/dispatch-relay-service/internal/config"
	"github.com/rcallahan/dispatch-relay-service/internal/dataset"
	"github.com/rcallahan/dispatch-relay-service/internal/hazmat"
	httphandler "github.com/rcallahan/dispatch-relay-service/internal/http"
	"github.com/rcallahan/dispatch-relay-service/internal/incidents"
	"github.com/rcallahan/dispatch-relay-service/internal/interactions"
	"github.com/rcallahan/dispatch-relay-service/internal/observability"
	"github.com/rcallahan/dispatch-relay-service/internal/quota"
	"github.com/rcallahan/dispatch-relay-service/internal/routing"
	"github.com/rcallahan/dispatch-relay-service/internal/throttle"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	gate := throttle.NewGateFromFile(cfg.QuotaFile)
	logger.Info("throttle gate",
		zap.Int("limit", gate.Limit()),
		zap.Duration("period", gate.Period()))

	recorder := quota.NewRecorder(cfg.QuotaStateFile)

	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	datasets := dataset.NewStore(cfg.DataDir, cfg.Offline,
		throttle.NewClient(gate, 30*time.Second), logger)
	hazmatSvc := hazmat.NewService(datasets, cacheSvc, cfg.CacheTTL)

	interactionsClient := interactions.NewClient(
		cfg.FDAAPIURL,
		throttle.NewClient(gate, cfg.FDAAPITimeout),
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
		recorder,
	)

	incidentsClient := incidents.NewClient(
		cfg.CADFeedURL,
		throttle.NewClient(gate, cfg.CADFeedTimeout),
		logger,
	)

	directory, err := routing.LoadDirectory(cfg.FailoverFile)
	if err != nil {
		logger.Fatal("failover directory", zap.Error(err))
	}

	registry := routing.NewRegistry()
	backends.Register(registry, backends.Deps{
		Hazmat:        hazmatSvc,
		Incidents:     incidentsClient,
		Interactions:  interactionsClient,
		ProbeLocation: cfg.ProbeLocation,
		ProbeUNNA:     cfg.ProbeUNNA,
		ProbeDrug1:    cfg.ProbeDrug1,
		ProbeDrug2:    cfg.ProbeDrug2,
	})
	serviceRouter := routing.NewRouter(directory, registry, logger)

	var cachePing func() error
	if memcacheCloser != nil {
		cachePing = memcacheCloser.Ping
	}
	handler := httphandler.NewHandler(serviceRouter, hazmatSvc, interactionsClient, incidentsClient, logger, cachePing)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	api := router.PathPrefix("/").Subrouter()
	api.Use(httphandler.RateLimitMiddleware(limiter))
	api.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	api.HandleFunc("/route/{category}", handler.GetRoute).Methods("GET")
	api.HandleFunc("/hazmat/{unna}", handler.GetHazmat).Methods("GET")
	api.HandleFunc("/interactions", handler.GetInteractions).Methods("GET")
	api.HandleFunc("/incidents", handler.GetIncidents).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
