package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

const (
	ExchangeEvents Exchange = "housekeeper.events"
)

const (
	QueueFailures     Queue = "housekeeper.failures"
	QueueSchedulesDue Queue = "schedules.due"
)

const (
	RoutingKeyPollerFailure RoutingKey = "failure.poller"
	RoutingKeyScheduleDue   RoutingKey = "schedule.due"
)

type binding struct {
	queue   Queue
	pattern string
}

var bindings = []binding{
	{QueueFailures, "failure.#"},
	{QueueSchedulesDue, string(RoutingKeyScheduleDue)},
}

// SetupTopology объявляет exchange, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeEvents), // name
			"topic",                // type
			true,                   // durable
			false,                  // auto-deleted
			false,                  // internal
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), b.pattern, string(ExchangeEvents), false, nil); err != nil {
				return fmt.Errorf("bind queue %s: %w", b.queue, err)
			}
		}
		return nil
	})
}
