package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/housekeeper/internal/domain"
	"github.com/shaiso/housekeeper/internal/mq"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

// Store — хранилище расписаний (repo.ScheduleRepo).
type Store interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	ListUnplanned(ctx context.Context, limit int) ([]domain.Schedule, error)
	SetNextDue(ctx context.Context, id uuid.UUID, lastDue *time.Time, nextDue time.Time) error
	Disable(ctx context.Context, id uuid.UUID, reason string) error
}

// DuePublisher публикует сработавшие расписания (mq.Publisher).
type DuePublisher interface {
	PublishScheduleDue(ctx context.Context, payload mq.ScheduleDuePayload) error
}

const defaultBatchSize = 100

// disableUnschedulable выключает расписание, для которого не удалось
// вычислить следующее срабатывание. Иначе оно остаётся в начале выборки
// ListDue на каждом тике и вытесняет остальные расписания из батча.
// Возвращает исходную ошибку (и ошибку Disable, если была).
func disableUnschedulable(ctx context.Context, store Store, logger *slog.Logger, metrics *telemetry.Metrics, sched *domain.Schedule, cause error) error {
	err := fmt.Errorf("schedule %s: %w", sched.ID, cause)

	telemetry.WithScheduleID(logger, sched.ID.String()).Warn("failed to calculate next due, disabling schedule",
		"schedule_name", sched.Name,
		"error", cause,
	)
	if derr := store.Disable(ctx, sched.ID, cause.Error()); derr != nil {
		return errors.Join(err, fmt.Errorf("disable schedule %s: %w", sched.ID, derr))
	}
	sched.Disable(cause.Error())
	metrics.SchedulesDisabled.Inc()
	return err
}
