package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/shared/rabbitmq"
)

// RabbitQueue dispatches through a durable RabbitMQ queue with a
// dead-letter exchange behind it.
type RabbitQueue struct {
	client      *rabbitmq.Client
	consumerTag string
	logger      *slog.Logger
}

// NewRabbitQueue creates a queue over an already connected client.
func NewRabbitQueue(client *rabbitmq.Client, consumerTag string, logger *slog.Logger) *RabbitQueue {
	return &RabbitQueue{
		client:      client,
		consumerTag: consumerTag,
		logger:      logger,
	}
}

// Enqueue publishes a first-attempt message for jobPostingID.
func (q *RabbitQueue) Enqueue(ctx context.Context, jobPostingID int64) error {
	return q.publish(ctx, NewMessage(jobPostingID))
}

func (q *RabbitQueue) publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode dispatch message: %w", err)
	}

	err = q.client.PublishWithRetry(ctx, rabbitmq.Message{
		MessageID:   msg.MessageID,
		ContentType: contentTypeJSON,
		Body:        body,
		Headers:     map[string]any{"x-attempt": int32(msg.Attempt)},
	})
	if err != nil {
		return domain.TransportError("publish enrichment message", err)
	}
	return nil
}

// Consume starts a consumer and adapts its deliveries. Malformed bodies are
// dead-lettered without reaching the caller.
func (q *RabbitQueue) Consume(ctx context.Context) (<-chan Delivery, error) {
	deliveries, err := q.client.Consume(q.consumerTag)
	if err != nil {
		return nil, domain.TransportError("start consumer", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					q.logger.Warn("RabbitMQ delivery channel closed")
					return
				}

				msg, err := DecodeMessage(d.Body)
				if err != nil {
					q.logger.Error("Dropping malformed dispatch message",
						slog.Any("error", err),
						slog.String("body", string(d.Body)),
					)
					if nackErr := d.Nack(false, false); nackErr != nil {
						q.logger.Error("Failed to NACK malformed message", slog.Any("error", nackErr))
					}
					continue
				}

				delivery := &rabbitDelivery{queue: q, raw: d, msg: msg}
				select {
				case out <- delivery:
				case <-ctx.Done():
					// Hand the message back so another consumer can take it.
					if nackErr := d.Nack(false, true); nackErr != nil {
						q.logger.Error("Failed to NACK message on shutdown", slog.Any("error", nackErr))
					}
					return
				}
			}
		}
	}()

	return out, nil
}

type rabbitDelivery struct {
	queue   *RabbitQueue
	raw     amqp.Delivery
	msg     Message
	settled atomic.Bool
}

func (d *rabbitDelivery) Message() Message { return d.msg }

func (d *rabbitDelivery) Ack() error {
	if !d.settled.CompareAndSwap(false, true) {
		return nil
	}
	if err := d.raw.Ack(false); err != nil {
		return domain.TransportError("ack message", err)
	}
	return nil
}

func (d *rabbitDelivery) Reject() error {
	if !d.settled.CompareAndSwap(false, true) {
		return nil
	}
	if err := d.raw.Nack(false, false); err != nil {
		return domain.TransportError("reject message", err)
	}
	return nil
}

func (d *rabbitDelivery) Requeue() error {
	if !d.settled.CompareAndSwap(false, true) {
		return nil
	}
	if err := d.raw.Nack(false, true); err != nil {
		return domain.TransportError("requeue message", err)
	}
	return nil
}

// Retry publishes the next attempt before acking this one. If the publish
// fails the original is requeued as-is.
func (d *rabbitDelivery) Retry(ctx context.Context) error {
	if !d.settled.CompareAndSwap(false, true) {
		return nil
	}
	if err := d.queue.publish(ctx, d.msg.Next()); err != nil {
		if nackErr := d.raw.Nack(false, true); nackErr != nil {
			return domain.TransportError("requeue message", nackErr)
		}
		return err
	}
	if err := d.raw.Ack(false); err != nil {
		return domain.TransportError("ack retried message", err)
	}
	return nil
}
