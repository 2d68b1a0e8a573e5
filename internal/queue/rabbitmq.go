package queue

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

type rabbitmq struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewRabbitMQ connects to url and declares a durable queue named name.
func NewRabbitMQ(url, name string) (Queue, error) {
	conn, err := amqp.Dial(url)

	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()

	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "unable to declare queue %s", name)
	}

	// one unacked run per consumer
	if err := ch.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "unable to set prefetch")
	}

	return &rabbitmq{conn: conn, ch: ch, queue: name}, nil
}

func (r *rabbitmq) Publish(_ context.Context, req Request) error {
	data, err := req.Encode()
	if err != nil {
		return err
	}

	return r.ch.Publish("", r.queue, false, false, amqp.Publishing{
		ContentType:  "text/yaml",
		DeliveryMode: amqp.Persistent,
		MessageId:    req.JobID,
		Body:         data,
	})
}

func (r *rabbitmq) Consume(ctx context.Context) (<-chan Delivery, error) {
	msgs, err := r.ch.Consume(r.queue, "", false, false, false, false, nil)

	if err != nil {
		return nil, errors.Wrapf(err, "unable to consume %s", r.queue)
	}

	out := make(chan Delivery)

	go func() {
		defer close(out)

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				req, err := Decode(msg.Body)
				if err != nil {
					log.WithError(err).WithField("queue", r.queue).Error("dropping malformed message")
					_ = msg.Nack(false, false)
					continue
				}

				select {
				case out <- &rabbitmqDelivery{msg: msg, req: req}:
				case <-ctx.Done():
					_ = msg.Nack(false, true)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (r *rabbitmq) Close() error {
	if err := r.ch.Close(); err != nil {
		_ = r.conn.Close()
		return err
	}
	return r.conn.Close()
}
