package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/housekeeper/internal/leader"
	"github.com/shaiso/housekeeper/internal/poller"
)

// Pollers — реестр poller'ов (poller.Group).
type Pollers interface {
	Get(name string) (*poller.Poller, error)
	Statuses() []poller.Status
}

// ReadinessCheck — проверка зависимости для /readyz (например, pool.Ping).
type ReadinessCheck func(ctx context.Context) error

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	pollers   Pollers
	leader    leader.State
	checks    map[string]ReadinessCheck
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	startedAt time.Time
}

// Config — конфигурация для создания Handler.
type Config struct {
	Pollers Pollers
	Leader  leader.State

	// Checks — именованные проверки готовности.
	Checks map[string]ReadinessCheck

	// Gatherer — источник метрик для /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		pollers:   cfg.Pollers,
		leader:    cfg.Leader,
		checks:    cfg.Checks,
		gatherer:  gatherer,
		logger:    logger,
		startedAt: time.Now(),
	}
}
