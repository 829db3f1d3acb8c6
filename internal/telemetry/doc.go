// Package telemetry обеспечивает наблюдаемость Flust.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики компиляций и HTTP запросов
//
// flust-api и flust-worker используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
package telemetry
