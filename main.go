package main

import (
	"context"
	"embed"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"synonyms-api/internal/cache"
	"synonyms-api/internal/common/logging"
	"synonyms-api/internal/config"
	"synonyms-api/internal/handlers"
	"synonyms-api/internal/middleware"
	"synonyms-api/internal/quota"
	redisclient "synonyms-api/internal/redis"
	"synonyms-api/internal/server"
	"synonyms-api/internal/storage"
	"synonyms-api/internal/storage/postgres"
	"synonyms-api/internal/storage/sqlite"
)

//go:embed web/static
var webFS embed.FS

func main() {
	if err := run(); err != nil {
		logging.Error("fatal", err)
		logging.MustSync()
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	runtime.GOMAXPROCS(runtime.NumCPU())

	logging.InitGlobalLogger()
	defer logging.MustSync()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Redis is optional: without it (or if it is unreachable) the quota
	// ledger and the response cache run on in-process backends, which is
	// the documented per-instance degradation mode.
	var redisClient *redisclient.Client
	if cfg.RedisAddress != "" {
		redisClient, err = redisclient.NewClient(&redisclient.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
		})
		if err != nil {
			logging.Warn("Redis unreachable, falling back to in-process quota and cache",
				logging.Field{Key: "address", Value: cfg.RedisAddress},
				logging.Err(err),
			)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	} else {
		logging.Warn("REDIS_ADDRESS not set, rate limiting and caching are per-instance only")
	}

	var quotaStore quota.Store
	if redisClient != nil {
		quotaStore, err = quota.NewRedisStore(redisClient)
		if err != nil {
			return err
		}
	}
	ledger := quota.NewLedger(quota.Config{
		Enabled: cfg.RateLimitEnabled,
		Max:     cfg.RateLimitMax,
		Window:  cfg.RateLimitWindow,
	}, quotaStore)

	cacheCfg := cache.DefaultConfig()
	cacheCfg.TTL = cfg.CacheTTL
	if redisClient != nil {
		cacheCfg.Type = cache.TypeRedis
		cacheCfg.RedisBackend = redisClient
	}
	responseCache, err := cache.New(cacheCfg)
	if err != nil {
		return err
	}

	var checker handlers.HealthChecker
	if redisClient != nil {
		checker = redisClient
	}
	h := handlers.New(store, responseCache, ledger, checker, cfg, webFS)

	router := mux.NewRouter()
	router.Use(middleware.Logging)

	router.HandleFunc("/api/synonyms", h.HandleOptions).Methods("OPTIONS")
	router.Handle("/api/synonyms",
		h.ValidateAPIKey(h.RateLimit(http.HandlerFunc(h.HandleSynonyms)))).Methods("GET")
	router.HandleFunc("/api", h.HandleAPIInfo).Methods("GET")
	router.HandleFunc("/api/", h.HandleAPIInfo).Methods("GET")
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
	router.PathPrefix("/").Handler(h.ServeFrontend()).Methods("GET")

	srv := server.New(router, cfg.Port, cfg.TLSCert, cfg.TLSKey)
	if err := srv.Start(); err != nil {
		return err
	}

	logging.Info("server started",
		logging.Field{Key: "port", Value: cfg.Port},
		logging.Field{Key: "database", Value: cfg.DatabaseType},
		logging.Field{Key: "rate_limit_max", Value: cfg.RateLimitMax},
		logging.Field{Key: "rate_limit_window", Value: cfg.RateLimitWindow.String()},
		logging.Field{Key: "redis", Value: redisClient != nil},
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logging.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	logging.Info("server exited")
	return nil
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DatabaseType {
	case "postgres":
		return postgres.New(cfg.PostgresDSN())
	default:
		return sqlite.New(cfg.DatabasePath)
	}
}
