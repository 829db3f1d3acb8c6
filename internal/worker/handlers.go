package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Flust/internal/codegen"
	"github.com/shaiso/Flust/internal/domain"
	"github.com/shaiso/Flust/internal/ir"
	"github.com/shaiso/Flust/internal/mq"
	"github.com/shaiso/Flust/internal/repo"
	"github.com/shaiso/Flust/internal/telemetry"
)

// handleCompilationRequested обрабатывает заявку из очереди compilations.requested.
func (w *Worker) handleCompilationRequested(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.CompilationRequestedPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse compilation.requested payload", "error", err)
		return mq.Permanent(err)
	}

	err = w.processCompilation(ctx, payload.CompilationID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotPending):
		// Дубликат доставки или компиляцию уже подобрал polling
		w.logger.Debug("compilation skipped", "compilation_id", payload.CompilationID, "reason", err)
		return nil
	case errors.Is(err, ErrCompilationNotFound):
		return mq.Permanent(err)
	default:
		return err
	}
}

// processCompilation захватывает компиляцию, генерирует код и сохраняет результат.
//
// Ошибки генерации не являются ошибками обработки: они сохраняются
// в компиляции со статусом FAILED. Возвращаются только ошибки хранилища.
func (w *Worker) processCompilation(ctx context.Context, id uuid.UUID) error {
	c, err := w.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrCompilationNotFound, id)
		}
		return fmt.Errorf("get compilation: %w", err)
	}
	if c.Status != domain.CompilationStatusPending {
		return ErrNotPending
	}

	if err := w.store.MarkRunning(ctx, id); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			return ErrNotPending
		}
		return fmt.Errorf("mark running: %w", err)
	}

	logger := telemetry.WithFlowName(telemetry.WithCompilationID(w.logger, id.String()), c.Name)
	logger.Info("compilation started", "nodes", len(c.Flow.Nodes))

	start := time.Now()
	code, genErr := w.compile(ctx, &c.Flow)
	elapsed := time.Since(start)
	kind := codegen.ErrorKind(genErr)

	telemetry.ObserveCompilation(telemetry.SourceWorker, elapsed, code, kind)

	// Результат сохраняется и при остановке воркера, иначе компиляция
	// останется в RUNNING до планировщика.
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	status := domain.CompilationStatusSucceeded
	if genErr != nil {
		status = domain.CompilationStatusFailed
		if err := w.store.MarkFailed(finalCtx, id, kind, genErr.Error()); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		logger.Warn("compilation failed", "kind", kind, "error", genErr, "duration", elapsed)
	} else {
		if err := w.store.MarkSucceeded(finalCtx, id, code); err != nil {
			return fmt.Errorf("mark succeeded: %w", err)
		}
		logger.Info("compilation succeeded", "bytes", len(code), "duration", elapsed)
	}

	w.publishCompletion(finalCtx, mq.CompilationCompletedPayload{
		CompilationID: id,
		Status:        string(status),
		ErrorKind:     kind,
		Error:         errorString(genErr),
		DurationMs:    elapsed.Milliseconds(),
	})

	return nil
}

// compile валидирует Flow и генерирует код с таймаутом воркера.
func (w *Worker) compile(ctx context.Context, flow *ir.Flow) (string, error) {
	if err := ir.Validate(flow); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	return w.generator.GenerateContext(ctx, flow)
}

// publishCompletion публикует событие compilation.completed.
// Результат уже сохранён в БД, поэтому ошибка публикации только логируется.
func (w *Worker) publishCompletion(ctx context.Context, payload mq.CompilationCompletedPayload) {
	if w.publisher == nil {
		return
	}

	if err := w.publisher.PublishCompilationCompleted(ctx, payload); err != nil {
		w.logger.Warn("failed to publish compilation.completed",
			"compilation_id", payload.CompilationID,
			"error", err,
		)
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
