package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrNoChannel — AMQP канал сейчас недоступен (идёт переподключение).
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrClosed — соединение закрыто через Close.
	ErrClosed = errors.New("amqp connection closed")
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// State — состояние соединения с брокером.
type State string

const (
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Status — снимок состояния соединения для health-проверок.
type Status struct {
	State      State     `json:"state"`
	Host       string    `json:"host"`
	Reconnects int       `json:"reconnects"`
	LastError  string    `json:"last_error,omitempty"`
	Since      time.Time `json:"since"`
}

// Healthy возвращает true, если через соединение можно публиковать.
func (s Status) Healthy() bool {
	return s.State == StateConnected
}

// Connection — соединение с RabbitMQ, которое само восстанавливается.
//
// После каждого подключения, первого и повторных, на новом канале
// объявляется топология компиляций. Канал становится доступен
// Publisher и Consumer только после этого, поэтому публикация заявки
// сразу после рестарта брокера не теряется в несуществующей очереди.
// Консьюмеры узнают о переподключении через ReconnectNotify.
type Connection struct {
	url    string
	logger *slog.Logger
	setup  func(ch *amqp.Channel) error

	mu         sync.RWMutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	state      State
	since      time.Time
	reconnects int
	lastErr    error

	done        chan struct{}
	reconnected chan struct{}
}

// ConnectionOption — опция Connection.
type ConnectionOption func(*Connection)

// WithSetup заменяет объявление топологии, выполняемое при подключении.
// nil отключает объявление.
func WithSetup(fn func(ch *amqp.Channel) error) ConnectionOption {
	return func(c *Connection) {
		c.setup = fn
	}
}

// NewConnection подключается к RabbitMQ и объявляет топологию.
// Ошибка первого подключения возвращается сразу, последующие разрывы
// восстанавливаются в фоне.
func NewConnection(url string, logger *slog.Logger, opts ...ConnectionOption) (*Connection, error) {
	c := newConnection(url, logger, opts...)

	if err := c.open(); err != nil {
		return nil, err
	}

	go c.supervise()

	return c, nil
}

func newConnection(url string, logger *slog.Logger, opts ...ConnectionOption) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Connection{
		url:         url,
		logger:      logger,
		setup:       declareTopology,
		state:       StateReconnecting,
		since:       time.Now().UTC(),
		done:        make(chan struct{}),
		reconnected: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// open устанавливает соединение, открывает канал и объявляет топологию.
// Dial выполняется без блокировки, чтобы Status не ждал сеть.
func (c *Connection) open() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if c.setup != nil {
		if err := c.setup(ch); err != nil {
			_ = conn.Close()
			return fmt.Errorf("setup topology: %w", err)
		}
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.channel = ch
	c.setStateLocked(StateConnected, nil)
	c.mu.Unlock()

	c.logger.Info("connected to RabbitMQ", "host", redactURL(c.url))
	return nil
}

// supervise ждёт разрыва соединения и восстанавливает его.
func (c *Connection) supervise() {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		lost := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.done:
			return
		case amqpErr := <-lost:
			var err error
			if amqpErr != nil {
				err = amqpErr
			}
			if !c.markLost(err) {
				return
			}
			c.logger.Warn("connection to RabbitMQ lost", "error", err)

			if !c.redial() {
				return
			}

			select {
			case c.reconnected <- struct{}{}:
			default:
			}
		}
	}
}

// markLost переводит соединение в reconnecting.
// Возвращает false, если соединение уже закрыто через Close.
func (c *Connection) markLost(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return false
	}
	c.channel = nil
	c.setStateLocked(StateReconnecting, err)
	return true
}

// redial повторяет подключение с экспоненциальной задержкой.
// Возвращает false, если ожидание прервано Close.
func (c *Connection) redial() bool {
	for attempt := 0; ; attempt++ {
		delay := backoff(attempt)
		c.logger.Info("reconnecting to RabbitMQ", "attempt", attempt+1, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-c.done:
			timer.Stop()
			return false
		case <-timer.C:
		}

		err := c.open()
		if errors.Is(err, ErrClosed) {
			return false
		}
		if err != nil {
			c.logger.Warn("reconnect failed", "attempt", attempt+1, "error", err)
			c.mu.Lock()
			c.lastErr = err
			c.mu.Unlock()
			continue
		}

		c.mu.Lock()
		c.reconnects++
		c.mu.Unlock()
		return true
	}
}

// backoff возвращает задержку перед попыткой attempt (с нуля):
// 1s, 2s, 4s ... не больше maxBackoff.
func backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 6 {
		return maxBackoff
	}
	return min(initialBackoff<<attempt, maxBackoff)
}

func (c *Connection) setStateLocked(state State, err error) {
	if c.state != state {
		c.since = time.Now().UTC()
	}
	c.state = state
	if err != nil {
		c.lastErr = err
	}
}

// Status возвращает снимок состояния соединения.
func (c *Connection) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Status{
		State:      c.state,
		Host:       redactURL(c.url),
		Reconnects: c.reconnects,
		Since:      c.since,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// Channel возвращает текущий AMQP канал или nil во время переподключения.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// ReconnectNotify возвращает канал уведомлений о переподключении.
// Уведомление приходит после объявления топологии.
func (c *Connection) ReconnectNotify() <-chan struct{} {
	return c.reconnected
}

// IsConnected проверяет, установлено ли соединение.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateConnected && c.conn != nil && !c.conn.IsClosed()
}

// WithChannel выполняет fn с текущим каналом.
// Возвращает ErrNoChannel во время переподключения и ErrClosed после Close.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	ch, state := c.channel, c.state
	c.mu.RUnlock()

	if state == StateClosed {
		return ErrClosed
	}
	if ch == nil || ch.IsClosed() {
		return ErrNoChannel
	}

	return fn(ch)
}

// Close закрывает канал и соединение. Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil
	}
	c.setStateLocked(StateClosed, nil)
	close(c.done)

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	c.logger.Info("connection to RabbitMQ closed")
	return errors.Join(errs...)
}

// redactURL убирает учётные данные из AMQP URL для логов.
func redactURL(raw string) string {
	u, err := amqp.ParseURI(raw)
	if err != nil {
		return "invalid"
	}
	return fmt.Sprintf("%s://%s:%d vhost=%s", u.Scheme, u.Host, u.Port, u.Vhost)
}
