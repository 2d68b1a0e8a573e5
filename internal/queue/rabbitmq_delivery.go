package queue

import (
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

type rabbitmqDelivery struct {
	msg amqp.Delivery
	req Request
}

func (rm *rabbitmqDelivery) Request() Request {
	return rm.req
}

func (rm *rabbitmqDelivery) Ack() error {
	if err := rm.msg.Ack(false); err != nil {
		return errors.Wrap(err, "rabbitmq message ack")
	}

	return nil
}

func (rm *rabbitmqDelivery) Nack(requeue bool) error {
	if err := rm.msg.Nack(false, requeue); err != nil {
		return errors.Wrap(err, "rabbitmq message nack")
	}

	return nil
}
