package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/shaiso/Flust/internal/domain"
	"github.com/shaiso/Flust/internal/ir"
	"github.com/shaiso/Flust/internal/mq"
)

// validate проверяет входящие DTO по тегам validate.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Compile DTOs

// CompileResponse — результат синхронной компиляции.
type CompileResponse struct {
	Code   string `json:"code"`
	Lines  int    `json:"lines"`
	Cached bool   `json:"cached"`
}

// Compilation DTOs

// CreateCompilationRequest — запрос на асинхронную компиляцию.
type CreateCompilationRequest struct {
	Name string   `json:"name" validate:"required,max=128"`
	Flow *ir.Flow `json:"flow" validate:"required"`
}

// ListCompilationsQuery — параметры списка компиляций.
type ListCompilationsQuery struct {
	Status string `validate:"omitempty,oneof=PENDING RUNNING SUCCEEDED FAILED"`
	Limit  int    `validate:"gte=0,lte=500"`
	Offset int    `validate:"gte=0"`
}

// CompilationResponse — ответ с компиляцией.
type CompilationResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Code       string     `json:"code,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	Error      string     `json:"error,omitempty"`
	DurationMs int64      `json:"duration_ms,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Flow       *ir.Flow   `json:"flow,omitempty"`
}

// CompilationFromDomain конвертирует domain.Compilation в CompilationResponse.
// Flow в ответ не входит: его добавляет только GET по ID.
func CompilationFromDomain(c domain.Compilation) CompilationResponse {
	return CompilationResponse{
		ID:         c.ID,
		Name:       c.Name,
		Status:     string(c.Status),
		Code:       c.Code,
		ErrorKind:  c.ErrorKind,
		Error:      c.Error,
		DurationMs: c.Duration().Milliseconds(),
		CreatedAt:  c.CreatedAt,
		FinishedAt: c.FinishedAt,
	}
}

// Health DTOs

// HealthResponse — состояние сервиса.
// Status: "ok" или "degraded", если брокер переподключается.
type HealthResponse struct {
	Status  string     `json:"status"`
	Uptime  string     `json:"uptime"`
	Plugins int        `json:"plugins"`
	Broker  *mq.Status `json:"broker,omitempty"`
}
