package repo

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shaiso/housekeeper/internal/domain"
)

// Ключи Redis для mail records:
//
//	mail:requests              SET  requestId
//	mail:{req}:types           SET  emailType
//	mail:{req}:{type}          ZSET timestamp (score = epoch millis)
const mailRequestsKey = "mail:requests"

func mailTypesKey(requestID string) string {
	return "mail:" + requestID + ":types"
}

func mailRecordsKey(requestID, emailType string) string {
	return "mail:" + requestID + ":" + emailType
}

// deleteMailRecordScript удаляет timestamp и подчищает опустевшие индексы
// одной атомарной операцией: между ZCARD и SREM конкурентный writer не
// может добавить запись, которая останется без индекса.
//
//	KEYS: records, types, requests
//	ARGV: timestamp, emailType, requestId
var deleteMailRecordScript = redis.NewScript(`
local removed = redis.call('ZREM', KEYS[1], ARGV[1])
if redis.call('ZCARD', KEYS[1]) == 0 then
	redis.call('SREM', KEYS[2], ARGV[2])
	if redis.call('SCARD', KEYS[2]) == 0 then
		redis.call('SREM', KEYS[3], ARGV[3])
	end
end
return removed
`)

// MailRecordRedis — mail records в Redis.
type MailRecordRedis struct {
	rdb redis.Cmdable
}

// NewMailRecordRedis создаёт новый MailRecordRedis.
func NewMailRecordRedis(rdb redis.Cmdable) *MailRecordRedis {
	return &MailRecordRedis{rdb: rdb}
}

// ListRequestIDs возвращает запросы, у которых есть mail records.
func (r *MailRecordRedis) ListRequestIDs(ctx context.Context) ([]string, error) {
	ids, err := r.rdb.SMembers(ctx, mailRequestsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list mail record requests: %w", err)
	}
	return ids, nil
}

// ListEmailTypes возвращает типы писем с записями для запроса.
func (r *MailRecordRedis) ListEmailTypes(ctx context.Context, requestID string) ([]string, error) {
	types, err := r.rdb.SMembers(ctx, mailTypesKey(requestID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list email types for %s: %w", requestID, err)
	}
	return types, nil
}

// ListTimestamps возвращает timestamps записей для запроса и типа.
func (r *MailRecordRedis) ListTimestamps(ctx context.Context, requestID, emailType string) ([]string, error) {
	ts, err := r.rdb.ZRange(ctx, mailRecordsKey(requestID, emailType), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list mail records for %s/%s: %w", requestID, emailType, err)
	}
	return ts, nil
}

// Delete удаляет одну запись и подчищает опустевшие индексы (атомарно).
func (r *MailRecordRedis) Delete(ctx context.Context, rec domain.MailRecord) error {
	keys := []string{
		mailRecordsKey(rec.RequestID, rec.EmailType),
		mailTypesKey(rec.RequestID),
		mailRequestsKey,
	}
	err := deleteMailRecordScript.Run(ctx, r.rdb, keys, rec.Timestamp, rec.EmailType, rec.RequestID).Err()
	if err != nil {
		return fmt.Errorf("delete mail record %s/%s/%s: %w", rec.RequestID, rec.EmailType, rec.Timestamp, err)
	}
	return nil
}
