package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/housekeeper/internal/abort"
	"github.com/shaiso/housekeeper/internal/api"
	"github.com/shaiso/housekeeper/internal/config"
	"github.com/shaiso/housekeeper/internal/leader"
	"github.com/shaiso/housekeeper/internal/mailrecord"
	"github.com/shaiso/housekeeper/internal/mq"
	"github.com/shaiso/housekeeper/internal/notify"
	"github.com/shaiso/housekeeper/internal/poller"
	"github.com/shaiso/housekeeper/internal/repo"
	"github.com/shaiso/housekeeper/internal/scheduler"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

// App — собранный процесс.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	pool   *pgxpool.Pool
	redis  *redis.Client
	mqConn *mq.Connection

	leader   leader.State
	advisory *leader.Advisory
	abort    *abort.Abort
	group    *poller.Group
	server   *http.Server
}

// New подключается к внешним системам и собирает poller'ы.
// При ошибке всё, что уже открыто, закрывается.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(registry)

	a.pool, err = repo.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connected")

	checks := map[string]api.ReadinessCheck{
		"database": a.pool.Ping,
	}

	store, err := a.mailStore(ctx, checks)
	if err != nil {
		return nil, err
	}

	publisher := a.connectRabbitMQ(ctx, checks)

	notifierCfg := notify.Config{Logger: logger, Metrics: metrics}
	if publisher != nil {
		notifierCfg.Publisher = publisher
	}
	notifier := notify.New(notifierCfg)

	a.abort = abort.New(abort.Config{
		Logger:   logger,
		Notifier: notifier,
		Metrics:  metrics,
	})

	leadership := a.leadership(metrics)
	a.leader = leadership
	schedulerLock := poller.NewSchedulerLock(metrics)

	pollerDeps := func(name string, interval time.Duration, lockType poller.LockType, action poller.Action) poller.Config {
		return poller.Config{
			Name:       name,
			Interval:   interval,
			LockType:   lockType,
			Lock:       schedulerLock,
			Action:     action,
			Leadership: leadership,
			Notifier:   notifier,
			Abort:      a.abort,
			Logger:     logger,
			Metrics:    metrics,
		}
	}

	cleaner, err := mailrecord.NewPoller(mailrecord.PollerConfig{
		Cleaner: mailrecord.NewCleaner(mailrecord.Config{
			Store:   store,
			Expiry:  cfg.RateLimitExpiry(),
			Logger:  logger,
			Metrics: metrics,
		}),
		Leadership: leadership,
		Notifier:   notifier,
		Abort:      a.abort,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create mail record cleaner: %w", err)
	}

	scheduleRepo := repo.NewScheduleRepo(a.pool)

	planner, err := poller.New(pollerDeps(scheduler.PlannerName, cfg.Scheduler.PlanInterval, poller.LockScheduler,
		scheduler.NewPlanner(scheduler.PlannerConfig{
			Store:     scheduleRepo,
			Logger:    logger,
			Metrics:   metrics,
			BatchSize: cfg.Scheduler.BatchSize,
		})))
	if err != nil {
		return nil, fmt.Errorf("create schedule planner: %w", err)
	}

	a.group = poller.NewGroup()
	if err := a.group.Add(cleaner, planner); err != nil {
		return nil, err
	}

	if publisher != nil {
		dispatcher, err := poller.New(pollerDeps(scheduler.DispatcherName, cfg.Scheduler.DispatchInterval, poller.LockScheduler,
			scheduler.NewDispatcher(scheduler.DispatcherConfig{
				Store:     scheduleRepo,
				Publisher: publisher,
				Logger:    logger,
				Metrics:   metrics,
				BatchSize: cfg.Scheduler.BatchSize,
			})))
		if err != nil {
			return nil, fmt.Errorf("create schedule dispatcher: %w", err)
		}
		if err := a.group.Add(dispatcher); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("RabbitMQ not available, schedule dispatcher disabled")
	}

	handler := api.NewHandler(api.Config{
		Pollers:  a.group,
		Leader:   leadership,
		Checks:   checks,
		Gatherer: registry,
		Logger:   logger,
	})
	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// mailStore выбирает хранилище mail records по MAIL_STORE.
func (a *App) mailStore(ctx context.Context, checks map[string]api.ReadinessCheck) (mailrecord.Store, error) {
	if a.cfg.MailStore != config.MailStoreRedis {
		return repo.NewMailRecordRepo(a.pool), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	checks["redis"] = func(ctx context.Context) error {
		return a.redis.Ping(ctx).Err()
	}
	a.logger.Info("redis connected", "addr", a.cfg.Redis.Addr)

	return repo.NewMailRecordRedis(a.redis), nil
}

// connectRabbitMQ подключается к RabbitMQ. Без него housekeeper работает:
// ошибки только логируются, а диспетчер расписаний не запускается.
func (a *App) connectRabbitMQ(ctx context.Context, checks map[string]api.ReadinessCheck) *mq.Publisher {
	if a.cfg.RabbitMQURL == "" {
		return nil
	}

	conn, err := mq.NewConnection(a.cfg.RabbitMQURL, a.logger)
	if err != nil {
		a.logger.Warn("RabbitMQ not available, running without event publishing", "error", err)
		return nil
	}
	a.mqConn = conn
	a.logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, conn); err != nil {
		a.logger.Warn("failed to setup topology", "error", err)
	}

	checks["rabbitmq"] = func(context.Context) error {
		if !conn.IsConnected() {
			return mq.ErrNoChannel
		}
		return nil
	}

	return mq.NewPublisher(conn, a.logger)
}

// leadership выбирает источник лидерства.
func (a *App) leadership(metrics *telemetry.Metrics) leader.State {
	if a.cfg.Leader.Static {
		a.logger.Warn("static leadership: this instance always leads")
		metrics.Leader.Set(1)
		return leader.NewStatic(true)
	}

	a.advisory = leader.NewAdvisory(leader.AdvisoryConfig{
		Pool:            a.pool,
		LockKey:         a.cfg.Leader.LockKey,
		AcquireInterval: a.cfg.Leader.AcquireInterval,
		Logger:          a.logger,
		Metrics:         metrics,
		OnLost: func(err error) {
			if a.cfg.Leader.AbortOnLoss {
				a.abort.Abort(context.Background(), abort.ReasonLostLeadership, err)
			}
		},
	})
	return a.advisory
}

// watchLeadership пишет в журнал каждую смену роли до отмены ctx.
func watchLeadership(ctx context.Context, changes <-chan bool, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case isLeader := <-changes:
			if isLeader {
				logger.Info("leadership acquired")
			} else {
				logger.Warn("leadership lost, pollers will skip ticks")
			}
		}
	}
}

// Run работает до отмены ctx или abort.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.abort.OnAbort(cancel)

	changes := a.leader.Subscribe()

	// Тики не должны прерываться сигналом остановки: Stop ждёт их завершения.
	if err := a.group.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	// Лидерство отпускается последним, после остановки poller'ов.
	leaderCtx, leaderCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer leaderCancel()

	g, gctx := errgroup.WithContext(ctx)

	if a.advisory != nil {
		g.Go(func() error {
			return a.advisory.Run(leaderCtx)
		})
	}

	g.Go(func() error {
		watchLeadership(gctx, changes, a.logger)
		return nil
	})

	g.Go(func() error {
		a.logger.Info("listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		defer leaderCancel()

		a.logger.Info("shutting down", "timeout", a.cfg.ShutdownTimeout)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
		defer shutdownCancel()

		var errs []error
		if err := a.group.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop pollers: %w", err))
		}
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// Close закрывает внешние соединения.
func (a *App) Close() {
	if a.mqConn != nil {
		if err := a.mqConn.Close(); err != nil {
			a.logger.Warn("close rabbitmq", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
