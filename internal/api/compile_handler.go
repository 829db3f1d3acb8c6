package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Flust/internal/codegen"
	"github.com/shaiso/Flust/internal/ir"
	"github.com/shaiso/Flust/internal/telemetry"
)

// Health возвращает состояние сервиса.
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
		Plugins: h.generator.Registry().Count(),
	}
	if h.broker != nil {
		st := h.broker.Status()
		resp.Broker = &st
		if !st.Healthy() {
			resp.Status = "degraded"
		}
	}
	Success(w, resp)
}

// ListPlugins возвращает каталог плагинов.
// GET /api/v1/plugins
func (h *Handler) ListPlugins(w http.ResponseWriter, _ *http.Request) {
	descs := h.generator.Registry().Descriptors()
	List(w, descs, len(descs))
}

// Compile синхронно компилирует документ Flow (JSON или YAML) из тела запроса.
// Результаты кэшируются по SHA-256 документа.
// POST /api/v1/compile
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	logger := telemetry.FromContext(r.Context())

	doc, ok := readDocument(w, r)
	if !ok {
		return
	}

	key := documentKey(doc)
	if h.cache != nil {
		if code, hit := h.cache.Get(key); hit {
			telemetry.ObserveCacheLookup(true)
			Success(w, CompileResponse{Code: code, Lines: countLines(code), Cached: true})
			return
		}
		telemetry.ObserveCacheLookup(false)
	}

	start := time.Now()
	code, err := h.compile(r.Context(), doc)
	elapsed := time.Since(start)
	kind := codegen.ErrorKind(err)
	telemetry.ObserveCompilation(telemetry.SourceAPI, elapsed, code, kind)

	if err != nil {
		logger.Info("compile failed", "kind", kind, "error", err, "duration", elapsed)
		CompileError(w, logger, err)
		return
	}

	if h.cache != nil {
		h.cache.Add(key, code)
	}
	logger.Debug("compile succeeded", "bytes", len(code), "duration", elapsed)

	Success(w, CompileResponse{Code: code, Lines: countLines(code)})
}

// compile разбирает, валидирует и генерирует код с таймаутом API.
func (h *Handler) compile(ctx context.Context, doc []byte) (string, error) {
	flow, err := ir.Parse(doc)
	if err != nil {
		return "", err
	}
	if err := ir.Validate(flow); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	return h.generator.WithLogger(telemetry.FromContext(ctx)).GenerateContext(ctx, flow)
}

// readDocument читает тело запроса с ограничением размера.
// При ошибке сам отправляет ответ и возвращает false.
func readDocument(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "document is too large")
			return nil, false
		}
		BadRequest(w, "cannot read request body")
		return nil, false
	}

	if len(bytes.TrimSpace(doc)) == 0 {
		BadRequest(w, "empty document")
		return nil, false
	}
	return doc, true
}

// documentKey — ключ кэша компиляций.
func documentKey(doc []byte) string {
	sum := sha256.Sum256(doc)
	return hex.EncodeToString(sum[:])
}

func countLines(code string) int {
	return strings.Count(code, "\n")
}
