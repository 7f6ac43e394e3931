package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "housekeeper"

// Metrics — набор метрик процесса.
//
// Регистрируется в переданном Registerer, чтобы тесты могли использовать
// собственный prometheus.NewRegistry() без конфликтов с глобальным.
type Metrics struct {
	// PollerTicks — тики по poller и outcome (skipped/succeeded/failed/fatal).
	PollerTicks *prometheus.CounterVec

	// PollerTickDuration — длительность действия poller'а.
	PollerTickDuration *prometheus.HistogramVec

	// SchedulerLockWait — сколько тик ждал scheduler lock.
	SchedulerLockWait prometheus.Histogram

	// SchedulerLockHeld — сколько scheduler lock удерживался.
	SchedulerLockHeld prometheus.Histogram

	// Leader — 1, если инстанс сейчас лидер.
	Leader prometheus.Gauge

	// Notifications — ошибки, переданные в exception notifier.
	Notifications *prometheus.CounterVec

	// Aborts — срабатывания abort по причине.
	Aborts *prometheus.CounterVec

	MailRecordsSeen    prometheus.Counter
	MailRecordsCleaned prometheus.Counter

	// SchedulesDispatched — события schedule.due, опубликованные диспетчером.
	SchedulesDispatched prometheus.Counter

	// SchedulesPlanned — расписания, получившие первый next_due_at.
	SchedulesPlanned prometheus.Counter

	// SchedulesDisabled — расписания, выключенные из-за невычислимого next_due_at.
	SchedulesDisabled prometheus.Counter
}

// NewMetrics создаёт и регистрирует метрики.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PollerTicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poller_ticks_total",
			Help:      "Poller ticks by outcome.",
		}, []string{"poller", "outcome"}),
		PollerTickDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poller_tick_duration_seconds",
			Help:      "Duration of poller actions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"poller"}),
		SchedulerLockWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_lock_wait_seconds",
			Help:      "Time spent waiting for the scheduler lock.",
			Buckets:   prometheus.DefBuckets,
		}),
		SchedulerLockHeld: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_lock_held_seconds",
			Help:      "Time the scheduler lock was held.",
			Buckets:   prometheus.DefBuckets,
		}),
		Leader: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leader",
			Help:      "1 if this instance currently holds leadership.",
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Errors reported to the exception notifier.",
		}, []string{"source"}),
		Aborts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aborts_total",
			Help:      "Abort requests by reason.",
		}, []string{"reason"}),
		MailRecordsSeen: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_records_seen_total",
			Help:      "Mail record timestamps inspected by the cleaner.",
		}),
		MailRecordsCleaned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_records_cleaned_total",
			Help:      "Stale mail record timestamps deleted by the cleaner.",
		}),
		SchedulesDispatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedules_dispatched_total",
			Help:      "schedule.due events published.",
		}),
		SchedulesPlanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedules_planned_total",
			Help:      "Schedules that received their first next_due_at.",
		}),
		SchedulesDisabled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedules_disabled_total",
			Help:      "Schedules disabled because their next due time cannot be computed.",
		}),
	}
}

// NopMetrics возвращает метрики, зарегистрированные в отдельном реестре.
// Используется, когда компоненту метрики не переданы.
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
