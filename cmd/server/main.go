package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/app"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/config"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/db"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/events"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/lease"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/logger"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.AppEnv, cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	appCfg := app.Config{
		Settings: cfg,
		Logger:   log,
		DBPool:   pool,
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return err
		}
		appCfg.Locker = lease.NewRedisLocker(rdb)
		log.Info("sweeper lease backed by redis", slog.String("addr", cfg.RedisAddr))
	} else {
		log.Warn("REDIS_ADDR not set, sweeper lease is local to this process")
	}

	if cfg.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				log.Warn("close event publisher failed", slog.Any("error", err))
			}
		}()
		appCfg.Publisher = pub
		log.Info("publishing events to rabbitmq", slog.String("exchange", cfg.EventsExchange))
	} else {
		log.Warn("AMQP_URL not set, events are only logged")
	}

	container := app.NewContainer(appCfg)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		container.Sweeper.Start(ctx)
	}()

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server running", slog.String("addr", cfg.HTTPAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			container.Sweeper.Stop()
			wg.Wait()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", slog.Any("error", err))
	}

	container.Sweeper.Stop()
	wg.Wait()
	return nil
}
