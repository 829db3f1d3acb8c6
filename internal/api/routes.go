package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		RequestID(h.logger),
		Logging(),
		Metrics(),
	)

	// Service
	mux.Handle("GET /api/v1/health", chain(http.HandlerFunc(h.Health)))
	mux.Handle("GET /api/v1/plugins", chain(http.HandlerFunc(h.ListPlugins)))

	// Sync compile
	mux.Handle("POST /api/v1/compile", chain(http.HandlerFunc(h.Compile)))

	// Async compilations
	if h.store != nil {
		mux.Handle("GET /api/v1/compilations", chain(http.HandlerFunc(h.ListCompilations)))
		mux.Handle("POST /api/v1/compilations", chain(http.HandlerFunc(h.CreateCompilation)))
		mux.Handle("GET /api/v1/compilations/{id}", chain(http.HandlerFunc(h.GetCompilation)))
	}
}
