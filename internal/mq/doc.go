// Package mq предоставляет инфраструктуру для публикации событий housekeeper в RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange, queues, bindings
//   - publisher.go  — публикация событий
//
// Типы сообщений:
//   - failure.poller — ошибка тика poller'а (из notify.Notifier)
//   - schedule.due   — сработало расписание (из scheduler.Dispatcher)
//
// Exchange:
//   - housekeeper.events (topic)
package mq
