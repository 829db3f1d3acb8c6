package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Flust/internal/domain"
)

// uniqueViolation — SQLSTATE нарушения уникальности.
const uniqueViolation = "23505"

const compilationColumns = `id, name, status, flow, code, error_kind, error, created_at, started_at, finished_at`

// CompilationRepo — репозиторий для работы с compilations.
type CompilationRepo struct {
	pool *pgxpool.Pool
}

// NewCompilationRepo создаёт новый CompilationRepo.
func NewCompilationRepo(pool *pgxpool.Pool) *CompilationRepo {
	return &CompilationRepo{pool: pool}
}

// CompilationFilter — фильтр для списка компиляций.
type CompilationFilter struct {
	Status domain.CompilationStatus
	Limit  int
	Offset int
}

// Create сохраняет новую компиляцию.
func (r *CompilationRepo) Create(ctx context.Context, c *domain.Compilation) error {
	flowJSON, err := json.Marshal(c.Flow)
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}

	query := `
		INSERT INTO compilations (id, name, status, flow, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		string(c.Status),
		flowJSON,
		c.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert compilation: %w", err)
	}
	return nil
}

// GetByID возвращает компиляцию по ID.
func (r *CompilationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Compilation, error) {
	query := `SELECT ` + compilationColumns + ` FROM compilations WHERE id = $1`
	return scanCompilation(r.pool.QueryRow(ctx, query, id))
}

// List возвращает компиляции, новые первыми.
func (r *CompilationRepo) List(ctx context.Context, filter CompilationFilter) ([]domain.Compilation, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	query := `
		SELECT ` + compilationColumns + `
		FROM compilations
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list compilations: %w", err)
	}
	defer rows.Close()

	var result []domain.Compilation
	for rows.Next() {
		c, err := scanCompilation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// ListStale возвращает компиляции, взятые в работу раньше before
// и до сих пор не завершённые. Старейшие первыми.
func (r *CompilationRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]domain.Compilation, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + compilationColumns + `
		FROM compilations
		WHERE status = 'RUNNING' AND started_at < $1
		ORDER BY started_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale compilations: %w", err)
	}
	defer rows.Close()

	var result []domain.Compilation
	for rows.Next() {
		c, err := scanCompilation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// MarkRunning переводит компиляцию из PENDING в RUNNING.
// Возвращает ErrInvalidState, если компиляция уже взята в работу или завершена.
func (r *CompilationRepo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE compilations
		SET status = 'RUNNING', started_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`
	return r.transition(ctx, id, query, id, time.Now().UTC())
}

// MarkSucceeded сохраняет сгенерированный код.
func (r *CompilationRepo) MarkSucceeded(ctx context.Context, id uuid.UUID, code string) error {
	query := `
		UPDATE compilations
		SET status = 'SUCCEEDED', code = $2, error_kind = NULL, error = NULL, finished_at = $3
		WHERE id = $1 AND status IN ('PENDING', 'RUNNING')
	`
	return r.transition(ctx, id, query, id, code, time.Now().UTC())
}

// MarkFailed сохраняет ошибку компиляции.
func (r *CompilationRepo) MarkFailed(ctx context.Context, id uuid.UUID, kind, msg string) error {
	query := `
		UPDATE compilations
		SET status = 'FAILED', code = NULL, error_kind = $2, error = $3, finished_at = $4
		WHERE id = $1 AND status IN ('PENDING', 'RUNNING')
	`
	return r.transition(ctx, id, query, id, nullString(kind), msg, time.Now().UTC())
}

// transition выполняет UPDATE со сменой статуса и различает
// отсутствующую запись и запись в неподходящем статусе.
func (r *CompilationRepo) transition(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update compilation: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM compilations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check compilation: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidState
}

// scanCompilation сканирует одну строку в Compilation.
// Подходит и для pgx.Row, и для pgx.Rows.
func scanCompilation(row pgx.Row) (*domain.Compilation, error) {
	var (
		c         domain.Compilation
		status    string
		flowJSON  []byte
		code      *string
		errorKind *string
		errorMsg  *string
	)

	err := row.Scan(
		&c.ID,
		&c.Name,
		&status,
		&flowJSON,
		&code,
		&errorKind,
		&errorMsg,
		&c.CreatedAt,
		&c.StartedAt,
		&c.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan compilation: %w", err)
	}

	c.Status = domain.CompilationStatus(status)

	if err := json.Unmarshal(flowJSON, &c.Flow); err != nil {
		return nil, fmt.Errorf("unmarshal flow: %w", err)
	}

	if code != nil {
		c.Code = *code
	}
	if errorKind != nil {
		c.ErrorKind = *errorKind
	}
	if errorMsg != nil {
		c.Error = *errorMsg
	}

	return &c, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
