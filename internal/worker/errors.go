package worker

import "errors"

// Ошибки воркера.
var (
	// ErrCompilationNotFound — компиляция не найдена в БД.
	ErrCompilationNotFound = errors.New("compilation not found")

	// ErrNotPending — компиляция уже взята другим воркером или завершена.
	ErrNotPending = errors.New("compilation is not in PENDING status")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
