package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/Flust/internal/domain"
	"github.com/shaiso/Flust/internal/ir"
	"github.com/shaiso/Flust/internal/repo"
	"github.com/shaiso/Flust/internal/telemetry"
)

// CreateCompilation сохраняет компиляцию и ставит её в очередь воркера.
// POST /api/v1/compilations
func (h *Handler) CreateCompilation(w http.ResponseWriter, r *http.Request) {
	logger := telemetry.FromContext(r.Context())

	var req CreateCompilationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		ValidationFailed(w, err)
		return
	}

	// Структурные ошибки отсекаются сразу, остальное решит воркер
	if err := ir.Validate(req.Flow); err != nil {
		CompileError(w, logger, err)
		return
	}

	c := domain.NewCompilation(req.Name, *req.Flow)
	if err := h.store.Create(r.Context(), c); err != nil {
		HandleRepoError(w, logger, err, "")
		return
	}

	logger = telemetry.WithFlowName(telemetry.WithCompilationID(logger, c.ID.String()), c.Name)

	if h.publisher != nil {
		if err := h.publisher.PublishCompilationRequested(r.Context(), c.ID); err != nil {
			// Компиляция уже сохранена, воркер подберёт её через polling
			logger.Warn("failed to publish compilation.requested", "error", err)
		}
	}

	logger.Info("compilation created", "nodes", len(c.Flow.Nodes))

	Created(w, CompilationFromDomain(*c))
}

// ListCompilations возвращает список компиляций.
// GET /api/v1/compilations?status=FAILED&limit=20&offset=0
func (h *Handler) ListCompilations(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	if err := validate.Struct(q); err != nil {
		ValidationFailed(w, err)
		return
	}

	compilations, err := h.store.List(r.Context(), repo.CompilationFilter{
		Status: domain.CompilationStatus(q.Status),
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if HandleRepoError(w, telemetry.FromContext(r.Context()), err, "") {
		return
	}

	result := make([]CompilationResponse, len(compilations))
	for i, c := range compilations {
		result[i] = CompilationFromDomain(c)
	}

	List(w, result, len(result))
}

// GetCompilation возвращает компиляцию по ID вместе с исходным Flow.
// GET /api/v1/compilations/{id}
func (h *Handler) GetCompilation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid compilation id")
		return
	}

	c, err := h.store.GetByID(r.Context(), id)
	if HandleRepoError(w, telemetry.FromContext(r.Context()), err, "compilation not found") {
		return
	}

	resp := CompilationFromDomain(*c)
	resp.Flow = &c.Flow

	Success(w, resp)
}

// parseListQuery читает параметры списка из query string.
func parseListQuery(r *http.Request) (ListCompilationsQuery, error) {
	values := r.URL.Query()
	q := ListCompilationsQuery{Status: strings.ToUpper(values.Get("status"))}

	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, invalidParamError("limit")
		}
		q.Limit = n
	}
	if v := values.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, invalidParamError("offset")
		}
		q.Offset = n
	}
	return q, nil
}

type invalidParamError string

func (e invalidParamError) Error() string {
	return "invalid " + string(e)
}
