package poller

import (
	"sync/atomic"
	"time"

	"github.com/shaiso/housekeeper/internal/telemetry"
)

// LockType определяет, должен ли тик удерживать SchedulerLock.
type LockType int

const (
	// LockNone — действие не трогает состояние планирования.
	LockNone LockType = iota

	// LockScheduler — действие сериализуется с основным циклом планирования.
	LockScheduler
)

func (t LockType) String() string {
	switch t {
	case LockNone:
		return "none"
	case LockScheduler:
		return "scheduler"
	default:
		return "unknown"
	}
}

// Locker — блокировка, которую берёт тик с LockScheduler.
type Locker interface {
	// Acquire блокирует до освобождения lock. Таймаута нет.
	Acquire()

	// Release отпускает lock; ErrLockNotHeld, если lock не был взят.
	Release() error
}

// SchedulerLock — процессный mutex вокруг логики, меняющей состояние планирования.
//
// Не реентерабелен: повторный Acquire до Release блокируется навсегда.
// Release без Acquire возвращает ErrLockNotHeld (sync.Mutex в этом случае
// роняет рантайм).
type SchedulerLock struct {
	sem        chan struct{}
	acquiredAt atomic.Int64
	metrics    *telemetry.Metrics
}

// NewSchedulerLock создаёт свободный SchedulerLock.
func NewSchedulerLock(metrics *telemetry.Metrics) *SchedulerLock {
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &SchedulerLock{
		sem:     make(chan struct{}, 1),
		metrics: metrics,
	}
}

// Acquire берёт lock, ожидая сколько потребуется.
func (l *SchedulerLock) Acquire() {
	start := time.Now()
	l.sem <- struct{}{}
	l.acquiredAt.Store(time.Now().UnixNano())
	l.metrics.SchedulerLockWait.Observe(time.Since(start).Seconds())
}

// Release отпускает lock.
func (l *SchedulerLock) Release() error {
	acquiredAt := l.acquiredAt.Load()
	select {
	case <-l.sem:
		l.metrics.SchedulerLockHeld.Observe(time.Since(time.Unix(0, acquiredAt)).Seconds())
		return nil
	default:
		return ErrLockNotHeld
	}
}

// Held возвращает true, если lock сейчас кем-то удерживается.
func (l *SchedulerLock) Held() bool {
	return len(l.sem) == 1
}

// noLock используется для LockNone: acquire/release на всех путях
// выполняются так же, как для настоящего lock.
type noLock struct{}

func (noLock) Acquire()       {}
func (noLock) Release() error { return nil }
