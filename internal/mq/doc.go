// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ: переподключение с backoff,
//     объявление топологии на каждом подключении, Status для health
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - compilation.requested — компиляция ожидает воркера
//   - compilation.completed — компиляция завершена (успешно или с ошибкой)
//
// Exchanges:
//   - flust.compilations — события компиляций
//   - flust.dlq          — dead letter queue
//
// Обработчик, вернувший ошибку через Permanent, отправляет сообщение
// в dlq.compilations. Прочие ошибки дают одну повторную доставку.
package mq
