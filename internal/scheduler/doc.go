// Package scheduler — основной цикл планирования и его обслуживание.
//
// Оба действия работают под SchedulerLock, поэтому обслуживающие
// poller'ы никогда не видят расписания посреди решения диспетчера.
//
// Структура:
//   - dispatcher.go — Dispatcher: due schedules → schedule.due → next_due_at
//   - planner.go    — Planner: первый next_due_at для новых расписаний
//   - cron.go       — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	d := scheduler.NewDispatcher(scheduler.DispatcherConfig{
//	    Store:     scheduleRepo,
//	    Publisher: publisher,
//	    Logger:    logger,
//	})
//
//	p, err := poller.New(poller.Config{
//	    Name:     scheduler.DispatcherName,
//	    Interval: time.Second,
//	    LockType: poller.LockScheduler,
//	    Lock:     schedulerLock,
//	    Action:   d,
//	    ...
//	})
//
// Leader election здесь не реализуется: poller вызывает действие только на лидере.
package scheduler
