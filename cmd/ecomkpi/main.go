package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ecomkpi/internal/amqp"
	"ecomkpi/internal/backend"
	"ecomkpi/internal/cache"
	"ecomkpi/internal/cli"
	apphttp "ecomkpi/internal/http"
	"ecomkpi/internal/kpi"
	"ecomkpi/internal/log"
	"ecomkpi/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	svc := kpi.NewService(kpi.Config{
		CacheSize:    cfg.CacheSize,
		CacheTTL:     cfg.CacheTTL,
		QueryTimeout: cfg.QueryTimeout,
	}, logger)

	cacheManager := cache.NewManager(logger)
	if c := svc.Cache(); c != nil {
		cacheManager.Register(c)
		cacheManager.StartCleanup(cfg.CacheTTL)
	}

	reloader := worker.NewReloadWorker(res.Loader, svc, cfg.LoadTimeout, logger)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitRPM: cfg.RateLimitRPM,
		Logger:       logger,
		Status:       func() any { return reloader.Status() },
	})

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, reload notifications disabled", log.FieldError, err)
			amqpClient = nil
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(sctx context.Context) {
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			amqpClient.Close()
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	// Queries answer 503 until the first load succeeds.
	go func() {
		if err := reloader.Reload(ctx, "startup"); err != nil {
			logger.Error("Initial dataset load failed", log.FieldError, err)
		}
	}()
	go func() {
		if err := reloader.Run(ctx, cfg.ReloadInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Periodic reload stopped", log.FieldError, err)
		}
	}()
	if amqpClient != nil {
		go func() {
			if err := amqpClient.ConsumeReloads(ctx, reloader.HandleReloadMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Reload consumer stopped", log.FieldError, err)
			}
		}()
	}

	logger.Info("Starting ecomkpi server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", amqpClient != nil,
		"queries", len(kpi.Names()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
