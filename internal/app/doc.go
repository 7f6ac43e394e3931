// Package app собирает процесс housekeeper из конфигурации.
//
// Порядок сборки:
//
//	config → logger → metrics → postgres → (redis) → rabbitmq →
//	notifier → abort → leadership → scheduler lock → pollers → http
//
// Run запускает poller'ы, выборы лидера и admin HTTP под одним errgroup.
// Остановка: сначала poller'ы (с ожиданием текущих тиков), затем HTTP,
// затем отказ от лидерства.
package app
