package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — расписание, по которому основной цикл планирования
// публикует события schedule.due.
//
// Расписание задаётся:
// - cron-выражением: "0 9 * * *" (каждый день в 9:00)
// - интервалом: каждые N секунд
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// Name — имя расписания для удобства.
	Name string `json:"name,omitempty"`

	// CronExpr — cron-выражение "минуты часы дни месяцы дни_недели".
	// Если задан CronExpr, IntervalSec игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах между срабатываниями.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для вычисления времени (по умолчанию UTC).
	Timezone string `json:"timezone"`

	// Enabled — флаг активности расписания.
	Enabled bool `json:"enabled"`

	// DisabledReason — почему планировщик выключил расписание
	// (например, невалидное cron-выражение).
	DisabledReason string `json:"disabled_reason,omitempty"`

	// NextDueAt — время следующего срабатывания.
	// NULL означает, что расписание ещё не спланировано (см. scheduler.Planner).
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastDueAt — время последнего срабатывания.
	LastDueAt *time.Time `json:"last_due_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// Disable выключает расписание и снимает его с планирования.
func (s *Schedule) Disable(reason string) {
	s.Enabled = false
	s.DisabledReason = reason
	s.NextDueAt = nil
	s.UpdatedAt = time.Now()
}

// IsDue проверяет, пора ли срабатывать.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled || s.NextDueAt == nil {
		return false
	}
	return !now.Before(*s.NextDueAt)
}

// Advance фиксирует срабатывание и переносит NextDueAt.
func (s *Schedule) Advance(dueAt, nextDue time.Time) {
	s.LastDueAt = &dueAt
	s.NextDueAt = &nextDue
	s.UpdatedAt = time.Now()
}
