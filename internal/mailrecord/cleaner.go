// Package mailrecord чистит устаревшие mail records — отметки rate-limit
// уведомлений. Запись старше max(cooldown, period) больше ничего не
// ограничивает и удаляется.
package mailrecord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/housekeeper/internal/domain"
	"github.com/shaiso/housekeeper/internal/poller"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

// PollerName — имя poller'а очистки в логах, метриках и admin API.
const PollerName = "mail-record-cleaner"

// Store — хранилище mail records (repo.MailRecordRepo, repo.MailRecordRedis).
// Каждая операция атомарна на уровне одной записи.
type Store interface {
	ListRequestIDs(ctx context.Context) ([]string, error)
	ListEmailTypes(ctx context.Context, requestID string) ([]string, error)
	ListTimestamps(ctx context.Context, requestID, emailType string) ([]string, error)
	Delete(ctx context.Context, rec domain.MailRecord) error
}

// Result — итог одного прохода.
type Result struct {
	Seen     int
	Cleaned  int
	Duration time.Duration
}

// Cleaner — действие poller'а: удаляет записи, у которых now - timestamp > expiry.
type Cleaner struct {
	store   Store
	expiry  time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// Config — конфигурация Cleaner.
type Config struct {
	Store Store

	// Expiry — max(cooldown, period) из конфигурации rate limit.
	Expiry time.Duration

	// Now — источник времени (default: time.Now).
	Now func() time.Time

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// NewCleaner создаёт новый Cleaner.
func NewCleaner(cfg Config) *Cleaner {
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

	return &Cleaner{
		store:   cfg.Store,
		expiry:  cfg.Expiry,
		now:     now,
		logger:  logger,
		metrics: metrics,
	}
}

// RunActionOnPoll реализует poller.Action.
func (c *Cleaner) RunActionOnPoll(ctx context.Context) error {
	_, err := c.Clean(ctx)
	return err
}

// Clean выполняет один проход по всем записям.
//
// "now" фиксируется в начале прохода. Ошибка листинга или удаления прерывает
// проход; записи с некорректным timestamp пропускаются, и их ошибки
// возвращаются вместе после обхода.
func (c *Cleaner) Clean(ctx context.Context) (Result, error) {
	start := c.now()
	nowMillis := start.UnixMilli()

	c.logger.Debug("cleaning stale mail records", "expiry", c.expiry)

	var res Result
	var malformed []error

	defer func() {
		res.Duration = c.now().Sub(start)
		c.metrics.MailRecordsSeen.Add(float64(res.Seen))
		c.metrics.MailRecordsCleaned.Add(float64(res.Cleaned))
		c.logger.Debug("cleaned mail record timestamps",
			"cleaned", res.Cleaned,
			"seen", res.Seen,
			"duration", res.Duration,
		)
	}()

	requestIDs, err := c.store.ListRequestIDs(ctx)
	if err != nil {
		return res, err
	}

	for _, requestID := range requestIDs {
		emailTypes, err := c.store.ListEmailTypes(ctx, requestID)
		if err != nil {
			return res, err
		}

		for _, emailType := range emailTypes {
			timestamps, err := c.store.ListTimestamps(ctx, requestID, emailType)
			if err != nil {
				return res, err
			}

			for _, ts := range timestamps {
				res.Seen++

				ms, err := domain.ParseMailTimestamp(ts)
				if err != nil {
					malformed = append(malformed, fmt.Errorf("%s/%s: %w", requestID, emailType, err))
					continue
				}
				if !domain.IsMailRecordStale(nowMillis, ms, c.expiry) {
					continue
				}

				rec := domain.MailRecord{RequestID: requestID, EmailType: emailType, Timestamp: ts}
				if err := c.store.Delete(ctx, rec); err != nil {
					return res, err
				}
				res.Cleaned++
			}
		}
	}

	return res, errors.Join(malformed...)
}

// PollerConfig — зависимости poller'а очистки.
type PollerConfig struct {
	Cleaner    *Cleaner
	Leadership poller.Leadership
	Notifier   poller.Notifier
	Abort      poller.Aborter
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
}

// NewPoller создаёт leader-only poller очистки: без scheduler lock,
// интервал равен expiry. Нулевой expiry (rate limit выключен) даёт
// выключенный poller.
func NewPoller(cfg PollerConfig) (*poller.Poller, error) {
	return poller.New(poller.Config{
		Name:       PollerName,
		Interval:   cfg.Cleaner.expiry,
		LockType:   poller.LockNone,
		Action:     cfg.Cleaner,
		Leadership: cfg.Leadership,
		Notifier:   cfg.Notifier,
		Abort:      cfg.Abort,
		Logger:     cfg.Logger,
		Metrics:    cfg.Metrics,
	})
}
