package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

const (
	defaultBuffer  = 1024
	publishTimeout = 5 * time.Second
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards reward activity to a RabbitMQ queue. Notifications are
// buffered and published by Run so the reward run never waits on the broker.
type Publisher struct {
	ch    channel
	conn  *amqp.Connection
	queue string
	log   *logrus.Logger

	queued    chan Message
	closeOnce sync.Once
}

var _ accrual.Observer = (*Publisher)(nil)

// Dial connects to the broker and declares a durable queue.
func Dial(url, queue string, log *logrus.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	p := newPublisher(ch, queue, log, defaultBuffer)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, queue string, log *logrus.Logger, buffer int) *Publisher {
	return &Publisher{
		ch:     ch,
		queue:  queue,
		log:    log,
		queued: make(chan Message, buffer),
	}
}

// Run publishes queued messages until ctx is cancelled, then flushes what is
// still buffered. Close must only be called after Run has returned.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case msg := <-p.queued:
			p.publish(ctx, msg)
		case <-ctx.Done():
			p.flush()
			return
		}
	}
}

func (p *Publisher) flush() {
	for {
		select {
		case msg := <-p.queued:
			p.publish(context.Background(), msg)
		default:
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, msg Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		p.log.WithError(err).WithField("type", msg.Type).Error("Failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         msg.Type,
		Timestamp:    msg.OccurredAt,
		Body:         body,
	})
	if err != nil {
		p.log.WithError(err).WithField("type", msg.Type).Error("Failed to publish event")
	}
}

func (p *Publisher) enqueue(msg Message) {
	select {
	case p.queued <- msg:
	default:
		p.log.WithField("type", msg.Type).Warn("Event buffer full, dropping event")
	}
}

func (p *Publisher) CreditApplied(entry model.LedgerEntry, sub model.Subscription) {
	msg, err := CreditedMessage(entry, sub)
	if err != nil {
		p.log.WithError(err).Error("Failed to build credit event")
		return
	}
	p.enqueue(msg)
}

// CreditFailed is not published; failures surface in the run summary.
func (p *Publisher) CreditFailed(uuid.UUID, error) {}

func (p *Publisher) RunCompleted(report accrual.RunReport, elapsed time.Duration) {
	msg, err := RunCompletedMessage(report, elapsed)
	if err != nil {
		p.log.WithError(err).Error("Failed to build run event")
		return
	}
	p.enqueue(msg)
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.ch.Close()
		if p.conn != nil {
			if cerr := p.conn.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
