package domain

import (
	"fmt"
	"strconv"
	"time"
)

// MailRecord — отметка о том, что уведомление типа EmailType по запросу RequestID
// было отправлено (или подавлено) в момент Timestamp.
//
// Записи используются для rate-limit повторных уведомлений.
// Housekeeper их только читает и удаляет, никогда не создаёт.
type MailRecord struct {
	// RequestID — идентификатор запроса, к которому относится уведомление.
	RequestID string `json:"request_id"`

	// EmailType — тип письма (например, "welcome", "task_failed").
	EmailType string `json:"email_type"`

	// Timestamp — epoch millis в десятичной строке, как хранится в store.
	Timestamp string `json:"timestamp"`
}

// ParseMailTimestamp разбирает timestamp записи (epoch millis, base-10).
func ParseMailTimestamp(raw string) (int64, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse mail record timestamp %q: %w", raw, err)
	}
	return ms, nil
}

// FormatMailTimestamp — обратное преобразование для ParseMailTimestamp.
func FormatMailTimestamp(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

// IsMailRecordStale возвращает true, если запись старше expiry относительно now.
// Граница не включается: запись ровно на expiry ещё актуальна.
func IsMailRecordStale(nowMillis, timestampMillis int64, expiry time.Duration) bool {
	return nowMillis-timestampMillis > expiry.Milliseconds()
}
