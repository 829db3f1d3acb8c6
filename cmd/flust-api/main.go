// Flust API — HTTP сервер компиляции Flow.
//
// API:
//   - POST /api/v1/compile — синхронная компиляция с LRU кэшем
//   - /api/v1/compilations — асинхронные компиляции через RabbitMQ
//   - /metrics — Prometheus
//
// Без RabbitMQ компиляции всё равно сохраняются: воркер подберёт их polling'ом.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Flust/internal/api"
	"github.com/shaiso/Flust/internal/config"
	"github.com/shaiso/Flust/internal/mq"
	"github.com/shaiso/Flust/internal/repo"
	"github.com/shaiso/Flust/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting flust-api", "port", cfg.APIPort, "log_level", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	handlerCfg := api.Config{
		Store:          repo.NewCompilationRepo(pool),
		CacheSize:      cfg.CompileCacheSize,
		CompileTimeout: cfg.CompileTimeout,
		Logger:         logger,
	}

	// RabbitMQ
	mqConn, err := mq.NewConnection(cfg.AMQPURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, compilations wait for worker polling", "error", err)
	} else {
		defer mqConn.Close()

		logger.Debug("topology", "info", mq.TopologyInfo())

		handlerCfg.Broker = mqConn
		handlerCfg.Publisher = mq.NewPublisher(mqConn, logger)

		events := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue:   mq.QueueCompilationsCompleted,
			Handler: logCompletion(logger),
		})
		go func() {
			if err := events.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("completion consumer error", "error", err)
			}
		}()
	}

	handler, err := api.NewHandler(handlerCfg)
	if err != nil {
		logger.Error("failed to create handler", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// logCompletion пишет события compilation.completed в лог API.
func logCompletion(logger *slog.Logger) mq.Handler {
	return func(_ context.Context, d *mq.Delivery) error {
		payload, err := mq.ParsePayload[mq.CompilationCompletedPayload](&d.Message)
		if err != nil {
			return mq.Permanent(err)
		}

		telemetry.WithCompilationID(logger, payload.CompilationID.String()).Info("compilation completed",
			"status", payload.Status,
			"kind", payload.ErrorKind,
			"duration_ms", payload.DurationMs,
		)
		return nil
	}
}
