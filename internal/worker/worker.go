package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Flust/internal/codegen"
	"github.com/shaiso/Flust/internal/domain"
	"github.com/shaiso/Flust/internal/mq"
	"github.com/shaiso/Flust/internal/repo"
)

// Default configuration values.
const (
	defaultPollInterval = 30 * time.Second
	defaultBatchSize    = 50
	defaultPrefetch     = 4
	defaultTimeout      = 10 * time.Second

	// finalizeTimeout ограничивает запись результата после отмены ctx.
	finalizeTimeout = 5 * time.Second
)

// Store — хранилище компиляций, нужное воркеру.
// Реализуется repo.CompilationRepo.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Compilation, error)
	List(ctx context.Context, filter repo.CompilationFilter) ([]domain.Compilation, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID, code string) error
	MarkFailed(ctx context.Context, id uuid.UUID, kind, msg string) error
}

// Publisher публикует события о завершении компиляций.
// Реализуется mq.Publisher.
type Publisher interface {
	PublishCompilationCompleted(ctx context.Context, payload mq.CompilationCompletedPayload) error
}

// Worker выполняет асинхронные компиляции.
//
// Worker — stateless компонент, который:
//   - Получает заявки из очереди compilations.requested (event-driven)
//   - Периодически подбирает PENDING компиляции из БД (polling fallback)
//   - Генерирует код с таймаутом и сохраняет результат
//   - Публикует compilation.completed
//
// Несколько экземпляров могут потреблять одну очередь: захват
// компиляции выполняется атомарным переходом PENDING → RUNNING.
type Worker struct {
	store     Store
	publisher Publisher
	generator *codegen.Generator

	// MQ
	conn     *mq.Connection
	consumer *mq.Consumer
	prefetch int

	// Configuration
	timeout      time.Duration
	pollInterval time.Duration
	batchSize    int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Store     Store
	Publisher Publisher // опционально; nil — события не публикуются
	Conn      *mq.Connection

	// Generator (опционально; если nil — codegen.New())
	Generator *codegen.Generator

	Timeout      time.Duration // таймаут одной компиляции (default: 10s)
	Prefetch     int           // prefetch consumer'а (default: 4)
	PollInterval time.Duration // интервал polling (default: 30s)
	BatchSize    int           // компиляций за один poll (default: 50)

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		store:        cfg.Store,
		publisher:    cfg.Publisher,
		generator:    cfg.Generator,
		conn:         cfg.Conn,
		prefetch:     cfg.Prefetch,
		timeout:      cfg.Timeout,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		logger:       logger,
	}

	if w.generator == nil {
		w.generator = codegen.New(codegen.WithLogger(logger))
	}
	if w.prefetch <= 0 {
		w.prefetch = defaultPrefetch
	}
	if w.timeout <= 0 {
		w.timeout = defaultTimeout
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}
	if w.batchSize <= 0 {
		w.batchSize = defaultBatchSize
	}

	return w
}

// Start запускает consumer и polling.
func (w *Worker) Start(ctx context.Context) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"timeout", w.timeout,
		"prefetch", w.prefetch,
		"poll_interval", w.pollInterval,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    mq.QueueCompilationsRequested,
			Handler:  w.handleCompilationRequested,
			Prefetch: w.prefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("compilation consumer error", "error", err)
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения текущих компиляций.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// pollLoop — цикл polling для fallback.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу: подхватываем заявки, созданные пока воркер был выключен
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (w *Worker) poll(ctx context.Context) {
	pending, err := w.store.List(ctx, repo.CompilationFilter{
		Status: domain.CompilationStatusPending,
		Limit:  w.batchSize,
	})
	if err != nil {
		w.logger.Error("failed to list pending compilations", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	w.logger.Debug("poll found pending compilations", "count", len(pending))

	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		err := w.processCompilation(ctx, pending[i].ID)
		if err != nil && !errors.Is(err, ErrNotPending) {
			w.logger.Error("failed to process compilation from poll",
				"compilation_id", pending[i].ID,
				"error", err,
			)
		}
	}
}
