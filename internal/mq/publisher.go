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

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeCompilationRequested MessageType = "compilation.requested"
	MessageTypeCompilationCompleted MessageType = "compilation.completed"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// CompilationRequestedPayload — заявка на компиляцию сохранённого Flow.
type CompilationRequestedPayload struct {
	CompilationID uuid.UUID `json:"compilation_id"`
}

// CompilationCompletedPayload — событие о завершённой компиляции.
type CompilationCompletedPayload struct {
	CompilationID uuid.UUID `json:"compilation_id"`
	Status        string    `json:"status"` // SUCCEEDED или FAILED
	ErrorKind     string    `json:"error_kind,omitempty"`
	Error         string    `json:"error,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishCompilationRequested ставит компиляцию в очередь.
// Потребитель: flust-worker.
func (p *Publisher) PublishCompilationRequested(ctx context.Context, compilationID uuid.UUID) error {
	msg := NewMessage(MessageTypeCompilationRequested, CompilationRequestedPayload{
		CompilationID: compilationID,
	})
	return p.Publish(ctx, ExchangeCompilations, RoutingKeyRequested, msg)
}

// PublishCompilationCompleted публикует результат компиляции.
func (p *Publisher) PublishCompilationCompleted(ctx context.Context, payload CompilationCompletedPayload) error {
	msg := NewMessage(MessageTypeCompilationCompleted, payload)
	return p.Publish(ctx, ExchangeCompilations, RoutingKeyCompleted, msg)
}
