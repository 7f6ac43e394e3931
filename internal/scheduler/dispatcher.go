package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/housekeeper/internal/domain"
	"github.com/shaiso/housekeeper/internal/mq"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

// DispatcherName — имя poller'а диспетчера.
const DispatcherName = "schedule-dispatcher"

// Dispatcher — действие основного цикла планирования.
type Dispatcher struct {
	store     Store
	publisher DuePublisher
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	now       func() time.Time
	batchSize int
}

// DispatcherConfig — конфигурация Dispatcher.
type DispatcherConfig struct {
	Store     Store
	Publisher DuePublisher
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	Now       func() time.Time
	BatchSize int // количество schedules за один тик (default: 100)
}

// NewDispatcher создаёт новый Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}

	return &Dispatcher{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		logger:    logger,
		metrics:   metrics,
		now:       now,
		batchSize: batchSize,
	}
}

// RunActionOnPoll реализует poller.Action.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Публикует schedule.due
// 3. Переносит next_due_at
//
// Ошибка одного расписания не блокирует остальные; все ошибки
// возвращаются вместе. Если публикация не удалась, next_due_at не
// двигается и расписание сработает на следующем тике. Расписание, для
// которого следующее срабатывание не вычисляется, выключается.
func (d *Dispatcher) RunActionOnPoll(ctx context.Context) error {
	now := d.now()

	schedules, err := d.store.ListDue(ctx, now, d.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	d.logger.Debug("found due schedules", "count", len(schedules))

	var errs []error
	var dispatched int
	for i := range schedules {
		sched := &schedules[i]

		if err := d.dispatch(ctx, sched, now); err != nil {
			telemetry.WithScheduleID(d.logger, sched.ID.String()).Error("failed to dispatch schedule",
				"schedule_name", sched.Name,
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		dispatched++
	}

	d.logger.Info("dispatch tick completed",
		"due", len(schedules),
		"dispatched", dispatched,
	)

	return errors.Join(errs...)
}

func (d *Dispatcher) dispatch(ctx context.Context, sched *domain.Schedule, now time.Time) error {
	dueAt := *sched.NextDueAt

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		return disableUnschedulable(ctx, d.store, d.logger, d.metrics, sched, err)
	}

	err = d.publisher.PublishScheduleDue(ctx, mq.ScheduleDuePayload{
		ScheduleID: sched.ID,
		Name:       sched.Name,
		DueAt:      dueAt,
	})
	if err != nil {
		return fmt.Errorf("publish schedule %s: %w", sched.ID, err)
	}
	d.metrics.SchedulesDispatched.Inc()

	sched.Advance(dueAt, nextDue)
	if err := d.store.SetNextDue(ctx, sched.ID, sched.LastDueAt, nextDue); err != nil {
		return fmt.Errorf("advance schedule %s: %w", sched.ID, err)
	}
	return nil
}
