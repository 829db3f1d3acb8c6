// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go             — Handler с DI (хранилище, publisher, генератор, кэш)
//   - routes.go              — регистрация маршрутов
//   - middleware.go          — middleware (recovery, request id, logging, metrics)
//   - response.go            — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                 — Data Transfer Objects с тегами validate
//   - compile_handler.go     — health, каталог плагинов, синхронная компиляция
//   - compilation_handler.go — асинхронные компиляции /compilations
//
// Ошибки компиляции отдаются с полями kind, node_id и key:
// 400 для непригодного документа, 422 для ошибок генерации,
// 503 для таймаута.
package api
