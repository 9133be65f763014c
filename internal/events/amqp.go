package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrPublisherClosed = errors.New("events: publisher closed")

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type amqpSession struct {
	conn io.Closer
	ch   amqpChannel
}

func (s *amqpSession) close() error {
	var errs []error
	if !s.ch.IsClosed() {
		errs = append(errs, s.ch.Close())
	}
	return errors.Join(append(errs, s.conn.Close())...)
}

// AMQPPublisher publishes events to a durable topic exchange, routed by event name.
// A dropped connection or channel is redialled on the next Publish.
type AMQPPublisher struct {
	exchange string
	dial     func() (*amqpSession, error)
	logger   *slog.Logger

	mu      sync.Mutex
	session *amqpSession
	closed  bool
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{exchange: exchange, logger: slog.Default()}
	p.dial = func() (*amqpSession, error) { return p.dialBroker(url) }

	s, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.session = s
	return p, nil
}

func (p *AMQPPublisher) dialBroker(url string) (*amqpSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare failed: %w", err)
	}

	s := &amqpSession{conn: conn, ch: ch}
	go p.watch(s, ch.NotifyClose(make(chan *amqp.Error, 1)))
	return s, nil
}

// watch drops s once the broker closes its channel so the next Publish redials.
func (p *AMQPPublisher) watch(s *amqpSession, closed <-chan *amqp.Error) {
	reason, ok := <-closed
	if !ok || reason == nil {
		return
	}
	p.logger.Warn("rabbitmq channel closed",
		slog.String("exchange", p.exchange),
		slog.Int("code", reason.Code),
		slog.String("reason", reason.Reason),
	)
	p.drop(s)
}

func (p *AMQPPublisher) drop(s *amqpSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == s {
		_ = s.conn.Close()
		p.session = nil
	}
}

// current returns a live session, dialling a new one if needed. Callers hold p.mu.
func (p *AMQPPublisher) current() (*amqpSession, error) {
	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.session != nil && !p.session.ch.IsClosed() {
		return p.session, nil
	}
	if p.session != nil {
		_ = p.session.conn.Close()
		p.session = nil
	}

	s, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.logger.Info("rabbitmq reconnected", slog.String("exchange", p.exchange))
	p.session = s
	return s, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         e.Name,
		Timestamp:    e.OccurredAt,
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.current()
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s failed: %w", e.Name, err)
	}
	err = s.ch.PublishWithContext(ctx, p.exchange, e.Name, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		// The channel died between the check and the publish; one redial.
		if s, err = p.current(); err == nil {
			err = s.ch.PublishWithContext(ctx, p.exchange, e.Name, false, false, msg)
		}
	}
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s failed: %w", e.Name, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.session == nil {
		return nil
	}
	s := p.session
	p.session = nil
	return s.close()
}
