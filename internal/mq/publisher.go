package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения.
type MessageType string

const (
	MessageTypePollerFailure MessageType = "failure.poller"
	MessageTypeScheduleDue   MessageType = "schedule.due"
)

// Message — конверт публикуемого события.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// FailurePayload — ошибка, пойманная на границе тика.
type FailurePayload struct {
	Error string            `json:"error"`
	Tags  map[string]string `json:"tags,omitempty"`
	Host  string            `json:"host,omitempty"`
}

// ScheduleDuePayload — сработавшее расписание.
type ScheduleDuePayload struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	Name       string    `json:"name,omitempty"`
	DueAt      time.Time `json:"due_at"`
}

// Publisher публикует события housekeeper.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в ExchangeEvents с routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			string(ExchangeEvents),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Type:         string(msg.Type),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish %s: %w", routingKey, err)
		}

		p.logger.Debug("published message",
			"routing_key", routingKey,
			"message_id", msg.ID,
		)
		return nil
	})
}

// PublishFailure публикует ошибку тика.
// Потребитель: внешняя система алертинга.
func (p *Publisher) PublishFailure(ctx context.Context, payload FailurePayload) error {
	return p.Publish(ctx, RoutingKeyPollerFailure, newMessage(MessageTypePollerFailure, payload))
}

// PublishScheduleDue публикует срабатывание расписания.
func (p *Publisher) PublishScheduleDue(ctx context.Context, payload ScheduleDuePayload) error {
	return p.Publish(ctx, RoutingKeyScheduleDue, newMessage(MessageTypeScheduleDue, payload))
}

func newMessage(t MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
