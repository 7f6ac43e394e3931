// Package leader — лидерство инстанса в кластере housekeeper.
//
// Poller'ы используют только точечный запрос IsLeader на каждом тике.
// Уведомления о смене роли (Subscribe) app пишет в журнал; потерю
// лидерства Advisory дополнительно сообщает через OnLost (abort).
//
// Реализации:
//   - Advisory — выборы через pg_try_advisory_lock на выделенном соединении
//   - Static   — фиксированная роль (single-node режим и тесты)
package leader
