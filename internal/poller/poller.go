package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/housekeeper/internal/abort"
	"github.com/shaiso/housekeeper/internal/domain"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

// Action — тело maintenance-действия.
//
// Действие должно переносить пропуск или задержку тика: повторной попыткой
// служит только следующий тик.
type Action interface {
	RunActionOnPoll(ctx context.Context) error
}

// ActionFunc — адаптер функции к Action.
type ActionFunc func(ctx context.Context) error

func (f ActionFunc) RunActionOnPoll(ctx context.Context) error {
	return f(ctx)
}

// Leadership — точечный запрос "лидер ли я сейчас".
type Leadership interface {
	IsLeader() bool
}

// Notifier получает recoverable ошибки тиков.
type Notifier interface {
	Notify(ctx context.Context, err error, tags map[string]string)
}

// Aborter получает fatal ошибки тиков.
type Aborter interface {
	Abort(ctx context.Context, reason abort.Reason, cause error)
}

// Config — конфигурация Poller.
type Config struct {
	// Name — имя poller'а для логов, метрик и admin API.
	Name string

	// Interval — период тиков. 0 — poller выключен, < 0 — ошибка.
	Interval time.Duration

	// LockType — нужен ли SchedulerLock на время действия.
	LockType LockType

	// Lock — обязателен при LockScheduler.
	Lock Locker

	Action     Action
	Leadership Leadership
	Notifier   Notifier
	Abort      Aborter

	// AbortOnError — эскалировать в abort любую ошибку действия, а не только fatal.
	AbortOnError bool

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Poller — leader-only poller.
type Poller struct {
	name         string
	interval     time.Duration
	lockType     LockType
	lock         Locker
	action       Action
	leadership   Leadership
	notifier     Notifier
	aborter      Aborter
	abortOnError bool
	logger       *slog.Logger
	metrics      *telemetry.Metrics

	// tickMu сериализует тики: следующий тик не начнётся, пока не вернулся предыдущий.
	tickMu sync.Mutex

	mu     sync.Mutex
	state  domain.PollerState
	cron   *cron.Cron
	doneCh chan struct{}
	stats  stats
}

type stats struct {
	leaderKnown  bool
	leader       bool
	ticks        uint64
	skipped      uint64
	failures     uint64
	lastOutcome  domain.TickOutcome
	lastTickAt   time.Time
	lastDuration time.Duration
	lastError    string
}

// New создаёт Poller. Ошибки конфигурации возвращаются здесь, а не на тике.
func New(cfg Config) (*Poller, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}

	lock := cfg.Lock
	if cfg.LockType == LockNone {
		lock = noLock{}
	}

	return &Poller{
		name:         cfg.Name,
		interval:     cfg.Interval,
		lockType:     cfg.LockType,
		lock:         lock,
		action:       cfg.Action,
		leadership:   cfg.Leadership,
		notifier:     cfg.Notifier,
		aborter:      cfg.Abort,
		abortOnError: cfg.AbortOnError,
		logger:       telemetry.WithPoller(logger, cfg.Name),
		metrics:      metrics,
		state:        domain.PollerStateIdle,
		doneCh:       make(chan struct{}),
	}, nil
}

func validate(cfg Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Name) == "" {
		missing = append(missing, "name")
	}
	if cfg.Action == nil {
		missing = append(missing, "action")
	}
	if cfg.Leadership == nil {
		missing = append(missing, "leadership")
	}
	if cfg.Notifier == nil {
		missing = append(missing, "notifier")
	}
	if cfg.Abort == nil {
		missing = append(missing, "abort")
	}
	if cfg.LockType == LockScheduler && cfg.Lock == nil {
		missing = append(missing, "lock")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	if cfg.LockType != LockNone && cfg.LockType != LockScheduler {
		return fmt.Errorf("%w: unknown lock type %d", ErrInvalidConfig, cfg.LockType)
	}
	if cfg.Interval < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, cfg.Interval)
	}
	return nil
}

// Name возвращает имя poller'а.
func (p *Poller) Name() string {
	return p.name
}

// Start заводит таймер. Повторный вызов ничего не делает,
// вызов после Stop возвращает ErrStopped.
//
// ctx передаётся в каждое действие; Stop его не отменяет.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case domain.PollerStateRunning, domain.PollerStateDisabled:
		return nil
	case domain.PollerStateStopped:
		return ErrStopped
	}

	if p.interval == 0 {
		p.state = domain.PollerStateDisabled
		p.logger.Info("poller disabled: zero interval")
		return nil
	}

	logger := cronLogger{logger: p.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(fixedInterval(p.interval), cron.FuncJob(func() {
		p.Tick(ctx)
	}))
	c.Start()

	p.cron = c
	p.state = domain.PollerStateRunning

	p.logger.Info("poller started",
		"interval", p.interval,
		"lock", p.lockType,
	)
	return nil
}

// Stop отменяет таймер. После возврата новые тики не планируются;
// тик, который уже выполняется, завершается штатно (см. Done).
// Повторный вызов безопасен.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == domain.PollerStateStopped {
		return
	}
	p.state = domain.PollerStateStopped

	var jobs <-chan struct{}
	if p.cron != nil {
		jobs = p.cron.Stop().Done()
	}

	go func() {
		if jobs != nil {
			<-jobs
		}
		// дожидаемся ручного Tick, если он идёт
		p.tickMu.Lock()
		p.tickMu.Unlock()
		close(p.doneCh)
	}()

	p.logger.Info("poller stopped")
}

// Done закрывается после Stop, когда выполняющийся тик (если был) завершился.
func (p *Poller) Done() <-chan struct{} {
	return p.doneCh
}

// Trigger выполняет внеплановый тик (admin API).
// Для остановленного poller'а возвращает ErrStopped; проверка делается под
// tickMu, поэтому Trigger, ждавший завершения текущего тика, после Stop не
// выполнит действие.
func (p *Poller) Trigger(ctx context.Context) (domain.TickOutcome, error) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	if p.stopped() {
		return "", ErrStopped
	}
	return p.tickLocked(ctx), nil
}

// Tick выполняет один тик синхронно. Ошибки действия не выходят наружу:
// они классифицируются и уходят в Notifier или Aborter.
// После Stop тик пропускается без записи в статистику.
func (p *Poller) Tick(ctx context.Context) domain.TickOutcome {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	if p.stopped() {
		p.logger.Debug("poller stopped, tick dropped")
		return domain.TickSkipped
	}
	return p.tickLocked(ctx)
}

func (p *Poller) stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == domain.PollerStateStopped
}

// tickLocked вызывается под tickMu.
func (p *Poller) tickLocked(ctx context.Context) domain.TickOutcome {
	leader := p.leadership.IsLeader()
	p.observeLeadership(leader)

	if !leader {
		p.logger.Debug("not leader, skipping tick")
		p.record(domain.TickSkipped, 0, nil)
		return domain.TickSkipped
	}

	start := time.Now()
	err := p.runWithLock(ctx)
	duration := time.Since(start)

	outcome := p.classify(ctx, err, duration)
	p.metrics.PollerTickDuration.WithLabelValues(p.name).Observe(duration.Seconds())
	p.record(outcome, duration, err)
	return outcome
}

// runWithLock берёт lock (если нужен) и гарантированно отпускает его.
func (p *Poller) runWithLock(ctx context.Context) (err error) {
	p.lock.Acquire()
	defer func() {
		if rerr := p.lock.Release(); rerr != nil {
			err = errors.Join(err, Fatal(fmt.Errorf("release scheduler lock: %w", rerr)))
		}
	}()

	return p.invoke(ctx)
}

func (p *Poller) invoke(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Fatal(&PanicError{Value: r, Stack: debug.Stack()})
		}
	}()

	return p.action.RunActionOnPoll(ctx)
}

func (p *Poller) classify(ctx context.Context, err error, duration time.Duration) domain.TickOutcome {
	if err == nil {
		p.logger.Debug("poller action completed", "duration", duration)
		return domain.TickSucceeded
	}

	if IsFatal(err) || p.abortOnError {
		reason := abort.ReasonUnrecoverableError
		if errors.Is(err, ErrLockNotHeld) {
			reason = abort.ReasonLockProtocolViolation
		}

		p.logger.Error("poller action failed fatally",
			"duration", duration,
			"reason", reason,
			"error", err,
		)
		p.aborter.Abort(ctx, reason, err)
		return domain.TickFatal
	}

	p.logger.Error("poller action failed",
		"duration", duration,
		"error", err,
	)
	p.notifier.Notify(ctx, err, map[string]string{
		"source": "poller",
		"poller": p.name,
		"lock":   p.lockType.String(),
	})
	return domain.TickFailed
}

func (p *Poller) observeLeadership(leader bool) {
	p.mu.Lock()
	changed := p.stats.leaderKnown && p.stats.leader != leader
	p.stats.leaderKnown = true
	p.stats.leader = leader
	p.mu.Unlock()

	if changed {
		p.logger.Info("observed leadership change", "leader", leader)
	}
}

func (p *Poller) record(outcome domain.TickOutcome, duration time.Duration, err error) {
	p.metrics.PollerTicks.WithLabelValues(p.name, string(outcome)).Inc()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.lastOutcome = outcome
	if outcome == domain.TickSkipped {
		p.stats.skipped++
		return
	}

	p.stats.ticks++
	p.stats.lastTickAt = time.Now()
	p.stats.lastDuration = duration
	p.stats.lastError = ""
	if err != nil {
		p.stats.failures++
		p.stats.lastError = err.Error()
	}
}

// Status — снимок состояния poller'а для admin API.
type Status struct {
	Name         string             `json:"name"`
	State        domain.PollerState `json:"state"`
	Interval     string             `json:"interval"`
	Lock         string             `json:"lock"`
	Leader       bool               `json:"leader"`
	Ticks        uint64             `json:"ticks"`
	Skipped      uint64             `json:"skipped"`
	Failures     uint64             `json:"failures"`
	LastOutcome  domain.TickOutcome `json:"last_outcome,omitempty"`
	LastTickAt   *time.Time         `json:"last_tick_at,omitempty"`
	LastDuration string             `json:"last_duration,omitempty"`
	LastError    string             `json:"last_error,omitempty"`
}

// Status возвращает снимок состояния.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		Name:        p.name,
		State:       p.state,
		Interval:    p.interval.String(),
		Lock:        p.lockType.String(),
		Leader:      p.stats.leader,
		Ticks:       p.stats.ticks,
		Skipped:     p.stats.skipped,
		Failures:    p.stats.failures,
		LastOutcome: p.stats.lastOutcome,
		LastError:   p.stats.lastError,
	}
	if !p.stats.lastTickAt.IsZero() {
		at := p.stats.lastTickAt
		s.LastTickAt = &at
		s.LastDuration = p.stats.lastDuration.String()
	}
	return s
}
