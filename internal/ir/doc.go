// Package ir содержит промежуточное представление графа программы.
//
// Включает:
//   - flow.go       — Flow, Node, Connection и их JSON-декодирование
//   - properties.go — типизированный доступ к свойствам узла
//   - parser.go     — разбор YAML/JSON документов
//   - validate.go   — структурная валидация
//
// IR не содержит логики генерации: это данные и их инварианты.
package ir
