package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"petpal/internal/platform/logger"
	mailport "petpal/internal/ports/mail"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	QueueName   = "mail.outbound"
	ConsumerTag = "mail-worker"
)

// QueuePublisher deja el mensaje en la cola durable; el envío real lo hace
// el mail-worker. La conexión se abre en el primer Send y se reabre si cae.
type QueuePublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewQueuePublisher(url string) (*QueuePublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("mail: rabbitmq url required")
	}
	return &QueuePublisher{url: url, queue: QueueName}, nil
}

func (p *QueuePublisher) Send(ctx context.Context, msg mailport.Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mail: encode message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("mail: publish: %w", err)
	}
	return nil
}

// channel requiere p.mu tomado.
func (p *QueuePublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("mail: dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mail: open channel: %w", err)
	}
	if _, err := declareQueue(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *QueuePublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *QueuePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("mail: declare queue %s: %w", name, err)
	}
	return q, nil
}

// Consumer lee la cola y entrega cada mensaje con sender (SMTP).
type Consumer struct {
	url      string
	queue    string
	sender   mailport.Sender
	log      logger.Logger
	prefetch int

	// máximo entre reconexiones
	maxBackoff time.Duration
}

func NewConsumer(url string, sender mailport.Sender, log logger.Logger) (*Consumer, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("mail: rabbitmq url required")
	}
	if sender == nil {
		return nil, errors.New("mail: sender required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Consumer{
		url:        url,
		queue:      QueueName,
		sender:     sender,
		log:        log.With(map[string]any{"component": ConsumerTag}),
		prefetch:   10,
		maxBackoff: 30 * time.Second,
	}, nil
}

// Run consume hasta que ctx se cancela, reconectando con backoff exponencial.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("consumer stopped, reconnecting", map[string]any{"error": err, "backoff": backoff.String()})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < c.maxBackoff {
			backoff = min(2*backoff, c.maxBackoff)
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if _, err := declareQueue(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queue, ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.log.Info("consuming", map[string]any{"queue": c.queue})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.process(ctx, d.Body, d)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// process entrega un mensaje. Los que fallan se descartan sin requeue
// para no entrar en un loop con un mensaje roto; si el envío se cortó por
// el apagado del worker, el mensaje vuelve a la cola.
func (c *Consumer) process(ctx context.Context, body []byte, d acknowledger) {
	var msg mailport.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		c.log.Error("discarding malformed message", map[string]any{"error": err})
		_ = d.Nack(false, false)
		return
	}
	if err := c.sender.Send(ctx, msg); err != nil {
		if ctx.Err() != nil {
			c.log.Warn("delivery interrupted, requeueing", map[string]any{"to": msg.To, "error": err})
			_ = d.Nack(false, true)
			return
		}
		c.log.Error("mail delivery failed", map[string]any{"to": msg.To, "subject": msg.Subject, "error": err})
		_ = d.Nack(false, false)
		return
	}
	c.log.Info("mail delivered", map[string]any{"to": msg.To, "subject": msg.Subject})
	_ = d.Ack(false)
}
