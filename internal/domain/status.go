package domain

// PollerState — состояние poller'а.
//
// Жизненный цикл:
//
//	IDLE → RUNNING → STOPPED
//	     ↘ DISABLED (нулевой интервал, таймер не заводится)
type PollerState string

const (
	// PollerStateIdle — poller создан, но ещё не запущен.
	PollerStateIdle PollerState = "IDLE"

	// PollerStateRunning — таймер заведён, тики выполняются.
	PollerStateRunning PollerState = "RUNNING"

	// PollerStateDisabled — интервал нулевой, poller ничего не делает.
	PollerStateDisabled PollerState = "DISABLED"

	// PollerStateStopped — poller остановлен, повторный запуск невозможен.
	PollerStateStopped PollerState = "STOPPED"
)

// TickOutcome — результат одного тика poller'а.
type TickOutcome string

const (
	// TickSkipped — инстанс не лидер или poller остановлен, действие не вызывалось.
	TickSkipped TickOutcome = "skipped"

	// TickSucceeded — действие завершилось без ошибки.
	TickSucceeded TickOutcome = "succeeded"

	// TickFailed — recoverable ошибка, отправлена в notifier.
	TickFailed TickOutcome = "failed"

	// TickFatal — fatal ошибка, отправлена в abort.
	TickFatal TickOutcome = "fatal"
)
