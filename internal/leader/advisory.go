package leader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/housekeeper/internal/telemetry"
)

const (
	defaultAcquireInterval = 5 * time.Second
	unlockTimeout          = 5 * time.Second
)

// Advisory — выборы лидера через session-level advisory lock в Postgres.
//
// Lock живёт пока живо соединение, поэтому лидер удерживает одно соединение
// из пула на всё время лидерства и периодически проверяет его.
// Разрыв соединения означает потерю лидерства.
type Advisory struct {
	broadcaster

	pool     *pgxpool.Pool
	key      int64
	interval time.Duration
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	onLost   func(err error)
}

// AdvisoryConfig — конфигурация Advisory.
type AdvisoryConfig struct {
	Pool            *pgxpool.Pool
	LockKey         int64
	AcquireInterval time.Duration // default: 5s
	Logger          *slog.Logger
	Metrics         *telemetry.Metrics

	// OnLost вызывается, когда удерживаемое лидерство потеряно не по отмене ctx.
	OnLost func(err error)
}

// NewAdvisory создаёт Advisory. Выборы начинаются в Run.
func NewAdvisory(cfg AdvisoryConfig) *Advisory {
	interval := cfg.AcquireInterval
	if interval <= 0 {
		interval = defaultAcquireInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}

	return &Advisory{
		pool:     cfg.Pool,
		key:      cfg.LockKey,
		interval: interval,
		logger:   logger.With("lock_key", cfg.LockKey),
		metrics:  metrics,
		onLost:   cfg.OnLost,
	}
}

// Run участвует в выборах до отмены ctx. При выходе lock отпускается.
func (a *Advisory) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var held *pgxpool.Conn
	defer func() {
		if held != nil {
			a.resign(held)
		}
	}()

	for {
		if held == nil {
			conn, err := a.tryAcquire(ctx)
			if err != nil && ctx.Err() == nil {
				a.logger.Warn("leader acquire failed", "error", err)
			}
			if conn != nil {
				held = conn
				a.becomeLeader()
			}
		} else if err := a.verify(ctx, held); err != nil && ctx.Err() == nil {
			a.drop(held)
			held = nil
			a.loseLeadership(err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// tryAcquire берёт соединение и пытается захватить lock на нём.
// Возвращает соединение только при успехе.
func (a *Advisory) tryAcquire(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", a.key).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, nil
	}
	return conn, nil
}

func (a *Advisory) verify(ctx context.Context, conn *pgxpool.Conn) error {
	if _, err := conn.Exec(ctx, "select 1"); err != nil {
		return fmt.Errorf("verify leader session: %w", err)
	}
	return nil
}

func (a *Advisory) becomeLeader() {
	if a.set(true) {
		a.metrics.Leader.Set(1)
		a.logger.Info("leadership acquired")
	}
}

func (a *Advisory) loseLeadership(err error) {
	if a.set(false) {
		a.metrics.Leader.Set(0)
		a.logger.Error("leadership lost", "error", err)
		if a.onLost != nil {
			a.onLost(err)
		}
	}
}

// drop закрывает сломанное соединение, не возвращая его в пул:
// сессия (и lock вместе с ней) гарантированно завершается.
func (a *Advisory) drop(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
	defer cancel()
	_ = conn.Hijack().Close(ctx)
}

// resign отпускает lock при штатной остановке.
func (a *Advisory) resign(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
	defer cancel()

	if _, err := conn.Exec(ctx, "select pg_advisory_unlock($1)", a.key); err != nil {
		a.logger.Warn("advisory unlock failed, closing session", "error", err)
		_ = conn.Hijack().Close(ctx)
	} else {
		conn.Release()
	}

	if a.set(false) {
		a.metrics.Leader.Set(0)
		a.logger.Info("leadership released")
	}
}
