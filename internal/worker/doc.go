// Package worker выполняет асинхронные компиляции.
//
// # Обзор
//
// Worker — stateless компонент, который превращает заявки из очереди
// compilations.requested в готовый код:
//
//  1. Загрузка компиляции из БД, проверка статуса PENDING
//  2. Захват: атомарный переход PENDING → RUNNING (повторная доставка
//     и гонка с polling отсекаются здесь)
//  3. ir.Validate и codegen.Generator.GenerateContext с таймаутом
//  4. Успех → MarkSucceeded, ошибка → MarkFailed с codegen.ErrorKind
//  5. Метрики и событие compilation.completed
//
// Ошибки генерации сохраняются в компиляции и не считаются ошибками
// обработки: сообщение подтверждается. Ошибки хранилища возвращают
// сообщение в очередь, неизвестные компиляции уходят в DLQ.
//
// Polling раз в PollInterval подбирает PENDING компиляции, для которых
// сообщение было потеряно.
//
//	w := worker.New(worker.Config{
//	    Store:     repo.NewCompilationRepo(pool),
//	    Publisher: mq.NewPublisher(conn, logger),
//	    Conn:      conn,
//	    Timeout:   cfg.CompileTimeout,
//	    Logger:    logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
package worker
