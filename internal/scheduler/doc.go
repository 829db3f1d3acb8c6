// Package scheduler снимает зависшие компиляции по cron-расписанию.
//
// Воркер захватывает компиляцию переходом PENDING → RUNNING. Если он
// падает до сохранения результата, компиляция остаётся в RUNNING
// навсегда. Scheduler периодически находит такие компиляции и переводит
// их в FAILED с видом Timeout, публикуя compilation.completed.
//
// Расписание задаётся cron-выражением (REAPER_SCHEDULE), например
// "*/1 * * * *" или "@every 30s". Несколько экземпляров безопасны:
// MarkFailed меняет только незавершённые компиляции.
package scheduler
