// Package api содержит admin HTTP API housekeeper'а.
//
// Структура:
//   - handler.go        — Handler с DI (poller'ы, leadership, проверки готовности)
//   - routes.go         — chi-роутер и регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - health_handler.go — /healthz, /readyz
//   - poller_handler.go — /api/v1/pollers
//
// API только наблюдает и вручную запускает тики; настроек через API нет.
package api
