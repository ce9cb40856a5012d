package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anon-comments-api/internal/api"
	"github.com/anon-comments-api/internal/ban"
	"github.com/anon-comments-api/internal/captcha"
	"github.com/anon-comments-api/internal/config"
	"github.com/anon-comments-api/internal/database"
	"github.com/anon-comments-api/internal/events"
	"github.com/anon-comments-api/internal/lock"
	"github.com/anon-comments-api/internal/metrics"
	"github.com/anon-comments-api/internal/repository"
	"github.com/anon-comments-api/internal/service"
	"github.com/anon-comments-api/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.New(config.LogConfig{})
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log)
	log.Info().Msg("Starting anonymous comments API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := metrics.RegisterDBStats(db.DB); err != nil {
		log.Warn().Err(err).Msg("Failed to register database metrics")
	}

	// Run migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Optional Redis for the cross-replica sweep lock
	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		cancel()
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "anon-comments:lock:")
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connected")
	}

	// Optional NATS for moderation events
	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATS, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		publisher = nc
	}
	defer publisher.Close()

	// Initialize services
	services, err := service.NewServices(repos, service.Dependencies{
		Captcha: captcha.New(cfg.Captcha, log),
		Events:  publisher,
	}, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	// Start background ban sweeper
	sweeper := ban.NewSweeper(services.Bans, locker, publisher, cfg.Moderation.BanSweepInterval, log)
	go sweeper.Start(context.Background())
	log.Info().Dur("interval", cfg.Moderation.BanSweepInterval).Msg("Background ban sweeper started")

	// Initialize router
	router := api.NewRouter(services, db, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop ban sweeper
	sweeper.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exited gracefully")
}
