package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/housekeeper/internal/domain"
)

// MailRecordRepo — mail records в Postgres (таблица mail_records).
type MailRecordRepo struct {
	pool *pgxpool.Pool
}

// NewMailRecordRepo создаёт новый MailRecordRepo.
func NewMailRecordRepo(pool *pgxpool.Pool) *MailRecordRepo {
	return &MailRecordRepo{pool: pool}
}

// ListRequestIDs возвращает запросы, у которых есть mail records.
func (r *MailRecordRepo) ListRequestIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT request_id FROM mail_records`)
	if err != nil {
		return nil, fmt.Errorf("list mail record requests: %w", err)
	}
	return collectStrings(rows)
}

// ListEmailTypes возвращает типы писем с записями для запроса.
func (r *MailRecordRepo) ListEmailTypes(ctx context.Context, requestID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT email_type FROM mail_records WHERE request_id = $1
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list email types for %s: %w", requestID, err)
	}
	return collectStrings(rows)
}

// ListTimestamps возвращает timestamps (epoch millis строкой) для запроса и типа.
func (r *MailRecordRepo) ListTimestamps(ctx context.Context, requestID, emailType string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sent_at_ms FROM mail_records
		WHERE request_id = $1 AND email_type = $2
	`, requestID, emailType)
	if err != nil {
		return nil, fmt.Errorf("list mail records for %s/%s: %w", requestID, emailType, err)
	}

	millis, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan mail records: %w", err)
	}

	out := make([]string, len(millis))
	for i, ms := range millis {
		out[i] = domain.FormatMailTimestamp(ms)
	}
	return out, nil
}

// Delete удаляет одну запись. Отсутствие записи ошибкой не считается:
// её мог удалить предыдущий лидер.
func (r *MailRecordRepo) Delete(ctx context.Context, rec domain.MailRecord) error {
	ms, err := domain.ParseMailTimestamp(rec.Timestamp)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		DELETE FROM mail_records
		WHERE request_id = $1 AND email_type = $2 AND sent_at_ms = $3
	`, rec.RequestID, rec.EmailType, ms)
	if err != nil {
		return fmt.Errorf("delete mail record %s/%s/%s: %w", rec.RequestID, rec.EmailType, rec.Timestamp, err)
	}
	return nil
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	return out, nil
}
