package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"marketlink/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StatusQueue is the durable queue downstream consumers read booking events from.
const StatusQueue = "booking.status"

// AMQPRelay publishes booking events as persistent JSON messages. The connection is
// opened lazily and reopened after a failure.
type AMQPRelay struct {
	url    string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPRelay(url string, logger *zap.Logger) *AMQPRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPRelay{url: url, logger: logger}
}

func (r *AMQPRelay) channel() (*amqp.Channel, error) {
	if r.ch != nil && !r.ch.IsClosed() {
		return r.ch, nil
	}
	r.closeLocked()

	conn, err := amqp.Dial(r.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	if _, err := ch.QueueDeclare(StatusQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}
	r.conn, r.ch = conn, ch
	return ch, nil
}

func (r *AMQPRelay) Publish(ctx context.Context, event models.BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event failed: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ch, err := r.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", StatusQueue, false, false, pub); err != nil {
		r.closeLocked()
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (r *AMQPRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
	return nil
}

func (r *AMQPRelay) closeLocked() {
	if r.ch != nil {
		_ = r.ch.Close()
		r.ch = nil
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && err != amqp.ErrClosed {
			r.logger.Debug("rabbitmq: close connection", zap.Error(err))
		}
		r.conn = nil
	}
}
