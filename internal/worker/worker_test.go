package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Flust/internal/domain"
	"github.com/shaiso/Flust/internal/ir"
	"github.com/shaiso/Flust/internal/mq"
	"github.com/shaiso/Flust/internal/repo"
)

// --- fakes ---

type fakeStore struct {
	mu           sync.Mutex
	compilations map[uuid.UUID]*domain.Compilation
	failMark     error
	honorCtx     bool // Mark* возвращают ctx.Err(), как настоящая БД
}

func newFakeStore(cs ...*domain.Compilation) *fakeStore {
	s := &fakeStore{compilations: make(map[uuid.UUID]*domain.Compilation)}
	for _, c := range cs {
		s.compilations[c.ID] = c
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Compilation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.compilations[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *fakeStore) List(_ context.Context, filter repo.CompilationFilter) ([]domain.Compilation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Compilation
	for _, c := range s.compilations {
		if filter.Status == "" || c.Status == filter.Status {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (s *fakeStore) MarkRunning(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.compilations[id]
	if !ok {
		return repo.ErrNotFound
	}
	if c.Status != domain.CompilationStatusPending {
		return repo.ErrInvalidState
	}
	c.MarkRunning()
	return nil
}

func (s *fakeStore) MarkSucceeded(ctx context.Context, id uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if s.failMark != nil {
		return s.failMark
	}
	s.compilations[id].MarkSucceeded(code)
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id uuid.UUID, kind, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if s.failMark != nil {
		return s.failMark
	}
	s.compilations[id].MarkFailed(kind, msg)
	return nil
}

func (s *fakeStore) get(id uuid.UUID) domain.Compilation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.compilations[id]
}

type fakePublisher struct {
	mu       sync.Mutex
	payloads []mq.CompilationCompletedPayload
	ctxErrs  []error
	err      error
}

func (p *fakePublisher) PublishCompilationCompleted(ctx context.Context, payload mq.CompilationCompletedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return p.err
}

// --- helpers ---

func newTestWorker(store Store, pub Publisher) *Worker {
	return New(Config{
		Store:     store,
		Publisher: pub,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func debugFlow() ir.Flow {
	return ir.Flow{Nodes: []ir.Node{
		{ID: "d", PluginType: "debug", Properties: map[string]any{"variable": "x"}},
	}}
}

func cyclicFlow() ir.Flow {
	return ir.Flow{
		Nodes: []ir.Node{
			{ID: "a", PluginType: "legacy-code", Properties: map[string]any{"code": "a();"}},
			{ID: "b", PluginType: "legacy-code", Properties: map[string]any{"code": "b();"}},
		},
		Connections: []ir.Connection{{From: "a", To: "b"}, {From: "b", To: "a"}},
	}
}

func requestDelivery(id string) *mq.Delivery {
	return &mq.Delivery{Message: mq.Message{
		Type:    mq.MessageTypeCompilationRequested,
		Payload: map[string]any{"compilation_id": id},
	}}
}

// --- processCompilation ---

func TestProcessCompilation_Success(t *testing.T) {
	c := domain.NewCompilation("debug", debugFlow())
	store := newFakeStore(c)
	pub := &fakePublisher{}
	w := newTestWorker(store, pub)

	require.NoError(t, w.processCompilation(context.Background(), c.ID))

	got := store.get(c.ID)
	assert.Equal(t, domain.CompilationStatusSucceeded, got.Status)
	assert.Contains(t, got.Code, `println!("{:?}", x);`)
	assert.Contains(t, got.Code, "#[tokio::main]")
	assert.NotNil(t, got.FinishedAt)

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, c.ID, pub.payloads[0].CompilationID)
	assert.Equal(t, "SUCCEEDED", pub.payloads[0].Status)
	assert.Empty(t, pub.payloads[0].ErrorKind)
}

func TestProcessCompilation_CancelledContextStillStoresResult(t *testing.T) {
	c := domain.NewCompilation("shutdown", debugFlow())
	store := newFakeStore(c)
	store.honorCtx = true
	pub := &fakePublisher{}
	w := newTestWorker(store, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, w.processCompilation(ctx, c.ID))

	// Генерация прервана отменой, но компиляция не остаётся в RUNNING.
	got := store.get(c.ID)
	assert.Equal(t, domain.CompilationStatusFailed, got.Status)
	assert.Equal(t, "Timeout", got.ErrorKind)

	require.Len(t, pub.payloads, 1)
	assert.NoError(t, pub.ctxErrs[0])
}

func TestProcessCompilation_GenerationErrorIsStored(t *testing.T) {
	tests := []struct {
		name     string
		flow     ir.Flow
		wantKind string
	}{
		{name: "cycle", flow: cyclicFlow(), wantKind: "CycleDetected"},
		{
			name: "dangling connection",
			flow: ir.Flow{
				Nodes:       []ir.Node{{ID: "a", PluginType: "debug", Properties: map[string]any{"variable": "x"}}},
				Connections: []ir.Connection{{From: "a", To: "ghost"}},
			},
			wantKind: "NodeNotFound",
		},
		{
			name:     "unknown plugin",
			flow:     ir.Flow{Nodes: []ir.Node{{ID: "a", PluginType: "teleport"}}},
			wantKind: "UnknownPluginType",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.NewCompilation(tt.name, tt.flow)
			store := newFakeStore(c)
			pub := &fakePublisher{}
			w := newTestWorker(store, pub)

			// Ошибка генерации — не ошибка обработки
			require.NoError(t, w.processCompilation(context.Background(), c.ID))

			got := store.get(c.ID)
			assert.Equal(t, domain.CompilationStatusFailed, got.Status)
			assert.Equal(t, tt.wantKind, got.ErrorKind)
			assert.NotEmpty(t, got.Error)
			assert.Empty(t, got.Code)

			require.Len(t, pub.payloads, 1)
			assert.Equal(t, "FAILED", pub.payloads[0].Status)
			assert.Equal(t, tt.wantKind, pub.payloads[0].ErrorKind)
		})
	}
}

func TestProcessCompilation_NotFound(t *testing.T) {
	w := newTestWorker(newFakeStore(), nil)

	err := w.processCompilation(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCompilationNotFound)
}

func TestProcessCompilation_NotPending(t *testing.T) {
	c := domain.NewCompilation("done", debugFlow())
	c.MarkSucceeded("fn main() {}\n")
	store := newFakeStore(c)
	pub := &fakePublisher{}
	w := newTestWorker(store, pub)

	err := w.processCompilation(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Empty(t, pub.payloads)
	assert.Equal(t, "fn main() {}\n", store.get(c.ID).Code)
}

func TestProcessCompilation_StoreError(t *testing.T) {
	c := domain.NewCompilation("debug", debugFlow())
	store := newFakeStore(c)
	store.failMark = errors.New("connection reset")
	pub := &fakePublisher{}
	w := newTestWorker(store, pub)

	err := w.processCompilation(context.Background(), c.ID)
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, pub.payloads, "nothing is published when the result was not stored")
}

func TestProcessCompilation_PublishErrorIgnored(t *testing.T) {
	c := domain.NewCompilation("debug", debugFlow())
	store := newFakeStore(c)
	pub := &fakePublisher{err: errors.New("channel closed")}
	w := newTestWorker(store, pub)

	require.NoError(t, w.processCompilation(context.Background(), c.ID))
	assert.Equal(t, domain.CompilationStatusSucceeded, store.get(c.ID).Status)
}

// --- handleCompilationRequested ---

func TestHandleCompilationRequested(t *testing.T) {
	pending := domain.NewCompilation("pending", debugFlow())
	finished := domain.NewCompilation("finished", debugFlow())
	finished.MarkFailed("CycleDetected", "cycle")
	store := newFakeStore(pending, finished)
	w := newTestWorker(store, nil)
	ctx := context.Background()

	// Обычная заявка
	require.NoError(t, w.handleCompilationRequested(ctx, requestDelivery(pending.ID.String())))
	assert.Equal(t, domain.CompilationStatusSucceeded, store.get(pending.ID).Status)

	// Повторная доставка подтверждается без работы
	assert.NoError(t, w.handleCompilationRequested(ctx, requestDelivery(pending.ID.String())))
	assert.NoError(t, w.handleCompilationRequested(ctx, requestDelivery(finished.ID.String())))

	// Неизвестная компиляция и битый payload уходят в DLQ
	err := w.handleCompilationRequested(ctx, requestDelivery(uuid.NewString()))
	assert.ErrorIs(t, err, mq.ErrPermanent)

	err = w.handleCompilationRequested(ctx, requestDelivery("not-a-uuid"))
	assert.ErrorIs(t, err, mq.ErrPermanent)
}

// --- poll ---

func TestPoll_ProcessesPending(t *testing.T) {
	a := domain.NewCompilation("a", debugFlow())
	b := domain.NewCompilation("b", cyclicFlow())
	done := domain.NewCompilation("done", debugFlow())
	done.MarkSucceeded("kept")
	store := newFakeStore(a, b, done)
	pub := &fakePublisher{}
	w := newTestWorker(store, pub)

	w.poll(context.Background())

	assert.Equal(t, domain.CompilationStatusSucceeded, store.get(a.ID).Status)
	assert.Equal(t, domain.CompilationStatusFailed, store.get(b.ID).Status)
	assert.Equal(t, "kept", store.get(done.ID).Code)
	assert.Len(t, pub.payloads, 2)
}

func TestWorker_StartStop(t *testing.T) {
	w := newTestWorker(newFakeStore(), nil)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()

	assert.True(t, w.IsStopped())
	assert.ErrorIs(t, w.Start(context.Background()), ErrWorkerStopped)
}

func TestNew_Defaults(t *testing.T) {
	w := New(Config{Store: newFakeStore()})

	assert.Equal(t, defaultTimeout, w.timeout)
	assert.Equal(t, defaultPrefetch, w.prefetch)
	assert.Equal(t, defaultPollInterval, w.pollInterval)
	assert.Equal(t, defaultBatchSize, w.batchSize)
	assert.NotNil(t, w.generator)
	assert.Nil(t, w.publisher)
}
