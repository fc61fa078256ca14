package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"infergate/internal/cache"
	"infergate/internal/handlers"
	"infergate/internal/httpserver"
	"infergate/internal/metrics"
	"infergate/internal/preset"
	"infergate/internal/upstream"
	"infergate/pkg/logging"
)

type Config struct {
	Port            string
	AIAPIURL        string
	CORSOrigin      string
	CacheBackend    string // "memory" or "redis"
	RedisAddr       string
	VersionID       string
	UpstreamTimeout time.Duration
}

func LoadConfig() Config {
	return Config{
		Port:            getenv("PORT", "8080"),
		AIAPIURL:        getenv("AI_API_URL", "http://localhost:8000"),
		CORSOrigin:      os.Getenv("CORS_ORIGIN"),
		CacheBackend:    getenv("CACHE_BACKEND", "memory"),
		RedisAddr:       getenv("REDIS_ADDR", "127.0.0.1:6379"),
		VersionID:       getenv("GATEWAY_VERSION", "v1"),
		UpstreamTimeout: getdur("UPSTREAM_TIMEOUT", 0),
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("gateway exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer func() { _ = logger.Sync() }()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg := LoadConfig()
	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("ai_api_url", cfg.AIAPIURL),
		zap.String("cors_origin", cfg.CORSOrigin),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("version_id", cfg.VersionID),
		zap.Duration("upstream_timeout", cfg.UpstreamTimeout),
	)

	// ----- Preset tables -----
	presets, err := preset.Default()
	if err != nil {
		return err
	}

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
	}

	// ----- Cache -----
	responseCache := cache.New(cache.Config{
		Backend: cfg.CacheBackend,
		TTL:     5 * time.Minute,
		Prefix:  "infergate",
	}, redisClient)
	responseCache = cache.NewLogging(responseCache)

	// ----- Upstream client -----
	upClient, err := upstream.NewClient(upstream.Config{
		BaseURL:       cfg.AIAPIURL,
		StreamTimeout: cfg.UpstreamTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = upClient.Close() }()

	// ----- Handlers + router -----
	gw := handlers.NewGateway(upClient, presets, responseCache, cfg.VersionID)
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, gw, cfg.CORSOrigin)

	// ----- HTTP server -----
	// No WriteTimeout: relay streams are long-lived by design.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting gateway", zap.String("addr", srv.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
