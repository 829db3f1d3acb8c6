// Package cli реализует инструмент командной строки flust.
//
// # Обзор
//
// Локальные команды компилируют Flow в процессе, через codegen:
//   - compile: -i FLOW -o DIR создаёт Cargo-проект (Cargo.toml с tokio
//     и src/main.rs), --stdout печатает код
//   - check: разбор, валидация и генерация без записи файлов
//   - plugins: каталог плагинов
//
// Группа remote работает с flust-api по HTTP и не импортирует internal/api:
//   - remote compile: синхронно или с --async через очередь
//   - remote show, remote list, remote plugins
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Flust API. Инкапсулирует HTTP-запросы, разбор
// ответов (data, list, error) и возвращает *APIError для ответов 4xx/5xx.
//
//	client := cli.NewClient("http://localhost:8080")
//	result, err := client.Compile(doc)
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные и код выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: flust compile -i flow.yaml --stdout | rustfmt
//
// ## Commands
//
// Каждая команда создаётся фабричной функцией (NewCompileCmd и т.д.),
// принимающей замыкания для ленивого создания Generator, Client и Output
// после парсинга PersistentFlags.
package cli
