package domain

// CompilationStatus — статус компиляции.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
type CompilationStatus string

const (
	// CompilationStatusPending — компиляция создана и ждёт воркера.
	CompilationStatusPending CompilationStatus = "PENDING"

	// CompilationStatusRunning — воркер взял компиляцию в работу.
	CompilationStatusRunning CompilationStatus = "RUNNING"

	// CompilationStatusSucceeded — код сгенерирован.
	CompilationStatusSucceeded CompilationStatus = "SUCCEEDED"

	// CompilationStatusFailed — генерация завершилась ошибкой.
	CompilationStatusFailed CompilationStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s CompilationStatus) IsTerminal() bool {
	switch s {
	case CompilationStatusSucceeded, CompilationStatusFailed:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление статуса.
func (s CompilationStatus) String() string {
	return string(s)
}

// ParseCompilationStatus парсит строку в CompilationStatus.
// Возвращает false для неизвестных значений.
func ParseCompilationStatus(s string) (CompilationStatus, bool) {
	switch CompilationStatus(s) {
	case CompilationStatusPending, CompilationStatusRunning,
		CompilationStatusSucceeded, CompilationStatusFailed:
		return CompilationStatus(s), true
	default:
		return "", false
	}
}
