package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/housekeeper/internal/domain"
)

const scheduleColumns = `id, name, cron_expr, interval_sec, timezone, enabled,
		       disabled_reason, next_due_at, last_due_at, updated_at`

// ScheduleRepo — репозиторий расписаний.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// ListDue возвращает включённые расписания с next_due_at <= now.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE enabled = true
		  AND next_due_at IS NOT NULL
		  AND next_due_at <= $1
		ORDER BY next_due_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	return collectSchedules(rows)
}

// ListUnplanned возвращает включённые расписания без next_due_at.
func (r *ScheduleRepo) ListUnplanned(ctx context.Context, limit int) ([]domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE enabled = true
		  AND next_due_at IS NULL
		ORDER BY updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unplanned schedules: %w", err)
	}
	return collectSchedules(rows)
}

// SetNextDue обновляет next_due_at (и last_due_at, если задан).
func (r *ScheduleRepo) SetNextDue(ctx context.Context, id uuid.UUID, lastDue *time.Time, nextDue time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE schedules
		SET next_due_at = $2,
		    last_due_at = COALESCE($3, last_due_at),
		    updated_at = NOW()
		WHERE id = $1
	`, id, nextDue, lastDue)
	if err != nil {
		return fmt.Errorf("update schedule next due: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Disable выключает расписание и сбрасывает next_due_at.
func (r *ScheduleRepo) Disable(ctx context.Context, id uuid.UUID, reason string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE schedules
		SET enabled = false,
		    disabled_reason = $2,
		    next_due_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return fmt.Errorf("disable schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectSchedules(rows pgx.Rows) ([]domain.Schedule, error) {
	schedules, err := pgx.CollectRows(rows, scanSchedule)
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	return schedules, nil
}

func scanSchedule(row pgx.CollectableRow) (domain.Schedule, error) {
	var s domain.Schedule
	var name, cronExpr, disabledReason *string
	var intervalSec *int

	err := row.Scan(
		&s.ID,
		&name,
		&cronExpr,
		&intervalSec,
		&s.Timezone,
		&s.Enabled,
		&disabledReason,
		&s.NextDueAt,
		&s.LastDueAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return s, err
	}

	if name != nil {
		s.Name = *name
	}
	if cronExpr != nil {
		s.CronExpr = *cronExpr
	}
	if intervalSec != nil {
		s.IntervalSec = *intervalSec
	}
	if disabledReason != nil {
		s.DisabledReason = *disabledReason
	}
	return s, nil
}
