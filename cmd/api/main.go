/**
 * @description
 * Entry point for the treasury API. Wires configuration, the PostgreSQL pool,
 * the optional RabbitMQ producer and Redis rate limiter, then serves HTTP until
 * a termination signal arrives.
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mentora/treasury-service/internal/api"
	"github.com/mentora/treasury-service/internal/app"
	"github.com/mentora/treasury-service/internal/config"
	"github.com/mentora/treasury-service/internal/store"
	"github.com/mentora/treasury-service/pkg/rabbitmq"
	"github.com/mentora/treasury-service/pkg/ratelimit"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.InternalAPIKey == "" {
		logger.Warn("INTERNAL_API_KEY is empty; treasury routes are unauthenticated")
	}

	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	var publisher app.EventPublisher = &rabbitmq.EventProducerFallback{}
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		logger.Warn("RABBITMQ_URL not set; events will be dropped")
	} else if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		logger.Warn("rabbitmq producer unavailable; using fallback", "error", err)
	} else {
		defer producer.Close()
		publisher = producer
		logger.Info("rabbitmq producer connected")
	}

	var limiter api.RateLimiter
	if cfg.ReportRateLimitPerMinute > 0 && cfg.RedisURL != "" {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			logger.Warn("redis url parse failed; report rate limiting disabled", "error", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
			pingErr := redisClient.Ping(pingCtx).Err()
			cancelPing()
			if pingErr != nil {
				logger.Warn("redis ping failed; report rate limiting disabled", "error", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RedisRateLimitPrefix)
				logger.Info("redis connected")
			}
		}
	}

	repository := store.NewPostgresRepository(dbpool)
	service := app.NewService(repository, publisher, logger, cfg.BusinessTimezone, cfg.EventsExchange)
	handler := api.NewHandler(service, repository, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		InternalAPIKey:           cfg.InternalAPIKey,
		AdminJWTSecret:           cfg.AdminJWTSecret,
		AllowedOrigins:           cfg.CORSAllowedOrigins,
		MetricsEnabled:           cfg.MetricsEnabled,
		Limiter:                  limiter,
		ReportRateLimitPerMinute: cfg.ReportRateLimitPerMinute,
		Logger:                   logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("treasury service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}
