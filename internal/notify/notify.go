// Package notify реализует exception notifier: получатель некритичных ошибок
// тиков для внешнего репортинга. На control flow не влияет.
package notify

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shaiso/housekeeper/internal/mq"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

const publishTimeout = 5 * time.Second

// FailurePublisher — внешний канал репортинга (реализуется mq.Publisher).
type FailurePublisher interface {
	PublishFailure(ctx context.Context, payload mq.FailurePayload) error
}

// Notifier логирует ошибку, считает её в метриках и, если задан publisher,
// отправляет событие failure.poller.
type Notifier struct {
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	publisher FailurePublisher
	host      string
}

// Config — конфигурация Notifier.
type Config struct {
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	Publisher FailurePublisher // опционально
}

// New создаёт новый Notifier.
func New(cfg Config) *Notifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	host, _ := os.Hostname()

	return &Notifier{
		logger:    logger,
		metrics:   metrics,
		publisher: cfg.Publisher,
		host:      host,
	}
}

// Notify фиксирует ошибку. Никогда не паникует и не возвращает ошибку:
// сбой публикации только логируется.
func (n *Notifier) Notify(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}

	source := tags["source"]
	if source == "" {
		source = "unknown"
	}
	n.metrics.Notifications.WithLabelValues(source).Inc()

	attrs := make([]any, 0, 2+2*len(tags))
	attrs = append(attrs, "error", err)
	for k, v := range tags {
		attrs = append(attrs, k, v)
	}
	n.logger.Error("exception notified", attrs...)

	if n.publisher == nil {
		return
	}

	// Отчёт не должен зависеть от отменённого контекста тика.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	payload := mq.FailurePayload{
		Error: err.Error(),
		Tags:  tags,
		Host:  n.host,
	}
	if perr := n.publisher.PublishFailure(pubCtx, payload); perr != nil {
		n.logger.Warn("failed to publish failure event",
			"error", perr,
			"source", source,
		)
	}
}
