package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeCompilations Exchange = "flust.compilations"
	ExchangeDLQ          Exchange = "flust.dlq"
)

// Queues — имена очередей.
const (
	QueueCompilationsRequested Queue = "compilations.requested"
	QueueCompilationsCompleted Queue = "compilations.completed"
	QueueDLQCompilations       Queue = "dlq.compilations"
)

// Routing keys.
const (
	RoutingKeyRequested       RoutingKey = "requested"
	RoutingKeyCompleted       RoutingKey = "completed"
	RoutingKeyDLQCompilations RoutingKey = "compilations"
)

// declareTopology объявляет обменники, очереди и привязки.
// Операции идемпотентны: Connection вызывает её на каждом подключении.
func declareTopology(ch *amqp.Channel) error {
	if err := declareExchanges(ch); err != nil {
		return err
	}
	if err := declareQueues(ch); err != nil {
		return err
	}
	return bindQueues(ch)
}

func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeCompilations, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	// Заявки, которые воркер отверг как непригодные, уходят в DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQCompilations),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueCompilationsRequested, dlqArgs},
		{QueueCompilationsCompleted, nil},
		{QueueDLQCompilations, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueCompilationsRequested, RoutingKeyRequested, ExchangeCompilations},
		{QueueCompilationsCompleted, RoutingKeyCompleted, ExchangeCompilations},
		{QueueDLQCompilations, RoutingKeyDLQCompilations, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Flust RabbitMQ Topology:

    flust.compilations (direct)
    ├── compilations.requested [routing: requested]
    │       Consumer: flust-worker
    │       DLQ: dlq.compilations
    └── compilations.completed [routing: completed]
            Consumer: flust-api (event log)

    flust.dlq (direct)
    └── dlq.compilations [routing: compilations]
            Manual processing
  `
}
