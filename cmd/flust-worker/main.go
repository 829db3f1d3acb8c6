// Flust Worker — выполняет асинхронные компиляции.
//
// Worker:
//   - Получает заявки из очереди compilations.requested
//   - Подбирает PENDING компиляции polling'ом, если RabbitMQ недоступен
//   - Сохраняет код или ошибку и публикует compilation.completed
//   - По cron-расписанию снимает компиляции, зависшие в RUNNING
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Flust/internal/config"
	"github.com/shaiso/Flust/internal/mq"
	"github.com/shaiso/Flust/internal/repo"
	"github.com/shaiso/Flust/internal/scheduler"
	"github.com/shaiso/Flust/internal/telemetry"
	"github.com/shaiso/Flust/internal/worker"
)

func main() {
	logger := telemetry.SetupLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting flust-worker", "timeout", cfg.CompileTimeout, "prefetch", cfg.WorkerPrefetch)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
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
	logger.Info("database connected")

	store := repo.NewCompilationRepo(pool)

	workerCfg := worker.Config{
		Store:    store,
		Timeout:  cfg.CompileTimeout,
		Prefetch: cfg.WorkerPrefetch,
		Logger:   logger,
	}

	// RabbitMQ
	var publisher *mq.Publisher
	mqConn, err := mq.NewConnection(cfg.AMQPURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected", "state", mqConn.Status().State)

		publisher = mq.NewPublisher(mqConn, logger)
		workerCfg.Conn = mqConn
		workerCfg.Publisher = publisher
	}

	w := worker.New(workerCfg)
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// stale compilations
	if cfg.ReaperSchedule != "" {
		schedCfg := scheduler.Config{
			Store:      store,
			Schedule:   cfg.ReaperSchedule,
			StaleAfter: cfg.StaleAfter,
			Logger:     logger,
		}
		if publisher != nil {
			schedCfg.Publisher = publisher
		}

		sched, err := scheduler.New(schedCfg)
		if err != nil {
			logger.Error("invalid reaper schedule", "error", err)
			os.Exit(1)
		}
		go sched.Run(ctx)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.WorkerAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	w.Stop()
	logger.Info("flust-worker stopped")
}
