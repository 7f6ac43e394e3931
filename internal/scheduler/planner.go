package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/housekeeper/internal/telemetry"
)

// PlannerName — имя poller'а планировщика.
const PlannerName = "schedule-planner"

// Planner назначает первый next_due_at включённым расписаниям, у которых его нет.
type Planner struct {
	store     Store
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	now       func() time.Time
	batchSize int
}

// PlannerConfig — конфигурация Planner.
type PlannerConfig struct {
	Store     Store
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	Now       func() time.Time
	BatchSize int
}

// NewPlanner создаёт новый Planner.
func NewPlanner(cfg PlannerConfig) *Planner {
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

	return &Planner{
		store:     cfg.Store,
		logger:    logger,
		metrics:   metrics,
		now:       now,
		batchSize: batchSize,
	}
}

// RunActionOnPoll реализует poller.Action.
func (p *Planner) RunActionOnPoll(ctx context.Context) error {
	schedules, err := p.store.ListUnplanned(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("list unplanned schedules: %w", err)
	}

	now := p.now()

	var errs []error
	var planned int
	for i := range schedules {
		sched := &schedules[i]

		nextDue, err := CalculateNextDue(sched, now)
		if err != nil {
			errs = append(errs, disableUnschedulable(ctx, p.store, p.logger, p.metrics, sched, err))
			continue
		}
		if err := p.store.SetNextDue(ctx, sched.ID, nil, nextDue); err != nil {
			errs = append(errs, fmt.Errorf("plan schedule %s: %w", sched.ID, err))
			continue
		}

		planned++
		p.metrics.SchedulesPlanned.Inc()
		telemetry.WithScheduleID(p.logger, sched.ID.String()).Debug("schedule planned",
			"schedule_name", sched.Name,
			"next_due_at", nextDue,
		)
	}

	if planned > 0 {
		p.logger.Info("planned schedules", "count", planned)
	}

	return errors.Join(errs...)
}
