package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Flust/internal/ir"
)

// Compilation — асинхронная компиляция Flow.
//
// Создаётся через API, выполняется воркером. Flow хранится целиком,
// чтобы результат можно было воспроизвести.
type Compilation struct {
	// ID — уникальный идентификатор компиляции.
	ID uuid.UUID `json:"id"`

	// Name — имя, заданное пользователем (например, "pow-demo").
	Name string `json:"name"`

	// Status — текущий статус.
	Status CompilationStatus `json:"status"`

	// Flow — граф, который нужно скомпилировать.
	Flow ir.Flow `json:"flow"`

	// Code — сгенерированный код. Пустой, пока компиляция не завершена.
	Code string `json:"code,omitempty"`

	// ErrorKind — вид ошибки (codegen.ErrorKind), если статус FAILED.
	ErrorKind string `json:"error_kind,omitempty"`

	// Error — текст ошибки, если статус FAILED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt — время, когда воркер взял компиляцию в работу.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения. Nil, пока компиляция не завершена.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewCompilation создаёт компиляцию в статусе PENDING.
func NewCompilation(name string, flow ir.Flow) *Compilation {
	return &Compilation{
		ID:        uuid.New(),
		Name:      name,
		Status:    CompilationStatusPending,
		Flow:      flow,
		CreatedAt: time.Now().UTC(),
	}
}

// IsFinished возвращает true, если компиляция завершена (в любом статусе).
func (c *Compilation) IsFinished() bool {
	return c.Status.IsTerminal()
}

// Duration возвращает время от создания до завершения.
// Возвращает 0, если компиляция ещё не завершена.
func (c *Compilation) Duration() time.Duration {
	if c.FinishedAt == nil {
		return 0
	}
	return c.FinishedAt.Sub(c.CreatedAt)
}

// MarkRunning переводит компиляцию в статус RUNNING.
func (c *Compilation) MarkRunning() {
	now := time.Now().UTC()
	c.Status = CompilationStatusRunning
	c.StartedAt = &now
}

// IsStale возвращает true, если компиляция в RUNNING дольше maxAge.
func (c *Compilation) IsStale(now time.Time, maxAge time.Duration) bool {
	if c.Status != CompilationStatusRunning || c.StartedAt == nil {
		return false
	}
	return now.Sub(*c.StartedAt) > maxAge
}

// MarkSucceeded переводит компиляцию в статус SUCCEEDED.
func (c *Compilation) MarkSucceeded(code string) {
	now := time.Now().UTC()
	c.Status = CompilationStatusSucceeded
	c.Code = code
	c.ErrorKind = ""
	c.Error = ""
	c.FinishedAt = &now
}

// MarkFailed переводит компиляцию в статус FAILED.
func (c *Compilation) MarkFailed(kind, msg string) {
	now := time.Now().UTC()
	c.Status = CompilationStatusFailed
	c.Code = ""
	c.ErrorKind = kind
	c.Error = msg
	c.FinishedAt = &now
}
