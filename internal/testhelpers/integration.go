//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/rcallahan/dispatch-relay-service/internal/cache"
	"github.com/rcallahan/dispatch-relay-service/internal/dataset"
	"github.com/rcallahan/dispatch-relay-service/internal/hazmat"
	"github.com/rcallahan/dispatch-relay-service/internal/observability"
	"github.com/rcallahan/dispatch-relay-service/internal/throttle"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	DataDir       string
	CacheBackend  string // "in_memory" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test if INTEGRATION_DATA_DIR is not set, so integration tests
// only run when a dataset directory is prepared.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	dataDir := os.Getenv("INTEGRATION_DATA_DIR")
	if dataDir == "" {
		t.Skip("INTEGRATION_DATA_DIR not set, skipping integration test")
	}

	cacheBackend := os.Getenv("INTEGRATION_CACHE_BACKEND")
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}

	return IntegrationTestConfig{
		DataDir:       dataDir,
		CacheBackend:  cacheBackend,
		MemcachedAddr: memcachedAddr,
	}
}

// SetupIntegrationService creates a fully configured hazmat service over the
// real dataset store. Returns the service, the cache instance, and a cleanup
// function.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*hazmat.Service, cache.Cache, func()) {
	logger, err := observability.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	var cacheSvc cache.Cache
	cleanup := func() { _ = logger.Sync() }

	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err != nil {
			t.Fatalf("NewMemcachedCache() error = %v", err)
		}
		if err := mc.Ping(); err != nil {
			t.Skipf("memcached not reachable at %s: %v", cfg.MemcachedAddr, err)
		}
		cacheSvc = mc
		cleanup = func() {
			_ = mc.Close()
			_ = logger.Sync()
		}
	} else {
		cacheSvc = cache.NewInMemoryCache()
	}

	gate := throttle.NewGate(10, time.Second)
	store := dataset.NewStore(cfg.DataDir, false, throttle.NewClient(gate, 30*time.Second), logger)
	svc := hazmat.NewService(store, cacheSvc, 5*time.Minute)

	return svc, cacheSvc, cleanup
}
