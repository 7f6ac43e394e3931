// Package poller реализует leader-only poller — основу всех фоновых
// maintenance-действий housekeeper.
//
// Poller владеет собственным таймером (robfig/cron с фиксированным интервалом)
// и на каждом тике:
//
//  1. Проверяет лидерство. Не лидер — тик пропускается целиком:
//     lock не берётся, действие не вызывается.
//  2. Если LockType == LockScheduler — берёт SchedulerLock (блокирующе).
//  3. Вызывает Action и замеряет длительность.
//  4. Классифицирует результат: nil — успех; обычная ошибка — Notifier;
//     ошибка, помеченная Fatal (или паника) — Aborter.
//  5. Отпускает lock на любом пути выхода.
//
// Тики одного poller'а никогда не перекрываются. Разные poller'ы работают
// параллельно и сериализуются только через SchedulerLock.
//
// Использование:
//
//	p, err := poller.New(poller.Config{
//	    Name:       "mail-record-cleaner",
//	    Interval:   time.Hour,
//	    LockType:   poller.LockNone,
//	    Action:     cleaner,
//	    Leadership: elector,
//	    Notifier:   notifier,
//	    Abort:      aborter,
//	    Logger:     logger,
//	})
//	if err := p.Start(ctx); err != nil { ... }
//	defer p.Stop()
//
// Нулевой интервал означает, что poller выключен: Start ничего не планирует.
package poller
