// Package abort — последний рубеж: завершение процесса при небезопасном состоянии.
//
// Компоненты сообщают о fatal-ситуации через Abort; решение о завершении
// процесса принимает только этот пакет. Функция выхода инжектируется,
// поэтому поведение проверяется в тестах без реального os.Exit.
package abort

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/shaiso/housekeeper/internal/telemetry"
)

// Reason — причина abort.
type Reason string

const (
	// ReasonUnrecoverableError — действие poller'а сообщило о fatal-ошибке.
	ReasonUnrecoverableError Reason = "unrecoverable_error"

	// ReasonLockProtocolViolation — нарушен протокол acquire/release scheduler lock.
	ReasonLockProtocolViolation Reason = "lock_protocol_violation"

	// ReasonLostLeadership — инстанс потерял удерживаемое лидерство.
	ReasonLostLeadership Reason = "lost_leadership"
)

// Notifier — получатель отчёта об ошибке (см. internal/notify).
type Notifier interface {
	Notify(ctx context.Context, err error, tags map[string]string)
}

// Abort завершает процесс один раз.
type Abort struct {
	logger   *slog.Logger
	notifier Notifier
	metrics  *telemetry.Metrics
	exit     func(code int)

	mu    sync.Mutex
	hooks []func()

	once    sync.Once
	aborted atomic.Bool
}

// Config — конфигурация Abort.
type Config struct {
	Logger   *slog.Logger
	Notifier Notifier // опционально
	Metrics  *telemetry.Metrics

	// Exit вызывается последним (default: os.Exit).
	Exit func(code int)
}

// New создаёт новый Abort.
func New(cfg Config) *Abort {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	exit := cfg.Exit
	if exit == nil {
		exit = os.Exit
	}

	return &Abort{
		logger:   logger,
		notifier: cfg.Notifier,
		metrics:  metrics,
		exit:     exit,
	}
}

// OnAbort регистрирует hook, выполняемый перед выходом (например, cancel корневого контекста).
// Hooks выполняются в обратном порядке регистрации.
func (a *Abort) OnAbort(hook func()) {
	a.mu.Lock()
	a.hooks = append(a.hooks, hook)
	a.mu.Unlock()
}

// Abort логирует причину, уведомляет notifier, выполняет hooks и вызывает exit(1).
//
// Срабатывает только первый вызов; последующие лишь логируются.
// Вызывающий не должен рассчитывать на возврат управления, но в тестах
// (с подменённым Exit) управление возвращается.
func (a *Abort) Abort(ctx context.Context, reason Reason, cause error) {
	a.metrics.Aborts.WithLabelValues(string(reason)).Inc()

	fired := false
	a.once.Do(func() {
		fired = true
		a.aborted.Store(true)

		a.logger.Error("aborting process",
			"reason", reason,
			"error", cause,
		)

		if a.notifier != nil {
			err := cause
			if err == nil {
				err = errors.New(string(reason))
			}
			a.notifier.Notify(ctx, err, map[string]string{
				"source": "abort",
				"reason": string(reason),
			})
		}

		a.mu.Lock()
		hooks := make([]func(), len(a.hooks))
		copy(hooks, a.hooks)
		a.mu.Unlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i]()
		}

		a.exit(1)
	})

	if !fired {
		a.logger.Warn("abort already in progress, ignoring",
			"reason", reason,
			"error", cause,
		)
	}
}

// Aborted возвращает true, если Abort уже сработал.
func (a *Abort) Aborted() bool {
	return a.aborted.Load()
}
