package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/shaiso/Flust/internal/codegen"
	"github.com/shaiso/Flust/internal/domain"
	"github.com/shaiso/Flust/internal/mq"
	"github.com/shaiso/Flust/internal/repo"
)

// Default configuration values.
const (
	defaultCompileTimeout = 10 * time.Second
	maxDocumentBytes      = 4 << 20
)

// Store — хранилище компиляций. Реализуется repo.CompilationRepo.
type Store interface {
	Create(ctx context.Context, c *domain.Compilation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Compilation, error)
	List(ctx context.Context, filter repo.CompilationFilter) ([]domain.Compilation, error)
}

// Publisher ставит компиляции в очередь. Реализуется mq.Publisher.
type Publisher interface {
	PublishCompilationRequested(ctx context.Context, compilationID uuid.UUID) error
}

// Broker сообщает состояние соединения с брокером. Реализуется mq.Connection.
type Broker interface {
	Status() mq.Status
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store     Store
	publisher Publisher
	broker    Broker
	generator *codegen.Generator
	cache     *lru.Cache[string, string] // nil — кэш выключен
	timeout   time.Duration
	startedAt time.Time
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Store (опционально; nil — маршруты /compilations не регистрируются)
	Store Store

	// Publisher (опционально; nil — компиляции ждут polling воркера)
	Publisher Publisher

	// Broker (опционально; nil — health без блока broker)
	Broker Broker

	// Generator (опционально; nil — codegen.New())
	Generator *codegen.Generator

	CacheSize      int           // размер кэша синхронных компиляций, 0 — без кэша
	CompileTimeout time.Duration // таймаут синхронной компиляции (default: 10s)

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) (*Handler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cache *lru.Cache[string, string]
	if cfg.CacheSize > 0 {
		var err error
		if cache, err = lru.New[string, string](cfg.CacheSize); err != nil {
			return nil, fmt.Errorf("create compile cache: %w", err)
		}
	}

	timeout := cfg.CompileTimeout
	if timeout <= 0 {
		timeout = defaultCompileTimeout
	}

	generator := cfg.Generator
	if generator == nil {
		generator = codegen.New(codegen.WithLogger(logger))
	}

	return &Handler{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		broker:    cfg.Broker,
		generator: generator,
		cache:     cache,
		timeout:   timeout,
		startedAt: time.Now(),
		logger:    logger,
	}, nil
}
