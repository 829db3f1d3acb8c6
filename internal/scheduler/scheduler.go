package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/Flust/internal/codegen"
	"github.com/shaiso/Flust/internal/domain"
	"github.com/shaiso/Flust/internal/mq"
	"github.com/shaiso/Flust/internal/repo"
	"github.com/shaiso/Flust/internal/telemetry"
)

const (
	defaultBatchSize  = 100
	defaultStaleAfter = 5 * time.Minute
)

// ErrNoSchedule — в Config не задано cron-выражение.
var ErrNoSchedule = errors.New("scheduler: empty schedule")

// Store — хранилище компиляций, нужное планировщику.
// Реализуется repo.CompilationRepo.
type Store interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]domain.Compilation, error)
	MarkFailed(ctx context.Context, id uuid.UUID, kind, msg string) error
}

// Publisher публикует события о завершении компиляций.
type Publisher interface {
	PublishCompilationCompleted(ctx context.Context, payload mq.CompilationCompletedPayload) error
}

// Scheduler по cron-расписанию снимает зависшие компиляции.
//
// Компиляция считается зависшей, если она в RUNNING дольше StaleAfter:
// воркер упал или потерял соединение с БД после захвата. Такие
// компиляции переводятся в FAILED с видом Timeout.
type Scheduler struct {
	store      Store
	publisher  Publisher
	schedule   cron.Schedule
	expr       string
	staleAfter time.Duration
	batchSize  int
	logger     *slog.Logger
	now        func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Store      Store
	Publisher  Publisher // опционально
	Schedule   string    // cron-выражение тиков
	StaleAfter time.Duration
	BatchSize  int // количество компиляций за один тик (default: 100)
	Logger     *slog.Logger
}

// New создаёт Scheduler. Возвращает ошибку для пустого
// или некорректного расписания.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Schedule == "" {
		return nil, ErrNoSchedule
	}
	schedule, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		store:      cfg.Store,
		publisher:  cfg.Publisher,
		schedule:   schedule,
		expr:       cfg.Schedule,
		staleAfter: cfg.StaleAfter,
		batchSize:  cfg.BatchSize,
		logger:     cfg.Logger,
		now:        time.Now,
	}
	if s.staleAfter <= 0 {
		s.staleAfter = defaultStaleAfter
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Run выполняет тики по расписанию до отмены ctx.
// Ошибка тика логируется и не останавливает цикл.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "schedule", s.expr, "stale_after", s.staleAfter)

	for {
		now := s.now()
		next := s.schedule.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return
		case <-timer.C:
			if _, err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит компиляции в RUNNING, начатые раньше now - StaleAfter
// 2. Переводит каждую в FAILED
// 3. Публикует compilation.completed
//
// Ошибки одной компиляции не блокируют обработку остальных.
// Возвращает количество снятых компиляций.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.now()

	stale, err := s.store.ListStale(ctx, now.Add(-s.staleAfter), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale compilations: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	s.logger.Debug("found stale compilations", "count", len(stale))

	var reaped int
	for i := range stale {
		c := &stale[i]

		ok, err := s.reap(ctx, c, now)
		if err != nil {
			s.logger.Error("failed to reap compilation",
				"compilation_id", c.ID,
				"name", c.Name,
				"error", err,
			)
			continue
		}
		if ok {
			reaped++
		}
	}

	telemetry.ObserveReaped(reaped)
	s.logger.Info("scheduler tick completed",
		"stale", len(stale),
		"reaped", reaped,
	)

	return reaped, nil
}

// reap переводит одну компиляцию в FAILED.
// Возвращает false, если воркер успел завершить её сам.
func (s *Scheduler) reap(ctx context.Context, c *domain.Compilation, now time.Time) (bool, error) {
	msg := fmt.Sprintf("%v: worker did not finish within %s", codegen.ErrTimeout, s.staleAfter)

	err := s.store.MarkFailed(ctx, c.ID, codegen.KindTimeout, msg)
	if errors.Is(err, repo.ErrInvalidState) || errors.Is(err, repo.ErrNotFound) {
		s.logger.Debug("compilation finished before reap", "compilation_id", c.ID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}

	logger := telemetry.WithFlowName(telemetry.WithCompilationID(s.logger, c.ID.String()), c.Name)
	logger.Warn("stale compilation failed", "started_at", c.StartedAt)

	if s.publisher == nil {
		return true, nil
	}

	var elapsed time.Duration
	if c.StartedAt != nil {
		elapsed = now.Sub(*c.StartedAt)
	}
	payload := mq.CompilationCompletedPayload{
		CompilationID: c.ID,
		Status:        string(domain.CompilationStatusFailed),
		ErrorKind:     codegen.KindTimeout,
		Error:         msg,
		DurationMs:    elapsed.Milliseconds(),
	}
	if err := s.publisher.PublishCompilationCompleted(ctx, payload); err != nil {
		// Статус уже сохранён в БД.
		logger.Warn("failed to publish compilation.completed", "error", err)
	}
	return true, nil
}
