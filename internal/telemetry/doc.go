// Package telemetry обеспечивает наблюдаемость housekeeper.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики poller'ов, scheduler lock и лидерства
//
// Метрики экспортируются на /metrics admin-сервера (см. internal/httpapi).
package telemetry
