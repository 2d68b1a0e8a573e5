package queue

import (
	rabbithole "github.com/michaelklishin/rabbit-hole/v2"
	"github.com/pkg/errors"
)

type Stats struct {
	Ready     int
	Unacked   int
	Total     int
	Consumers int
}

// Inspector reads queue depth from the RabbitMQ management API.
type Inspector struct {
	client *rabbithole.Client
	vhost  string
}

func NewInspector(api, user, password string) (*Inspector, error) {
	client, err := rabbithole.NewClient(api, user, password)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create management client for %s", api)
	}

	return &Inspector{client: client, vhost: "/"}, nil
}

func (i *Inspector) Stats(name string) (Stats, error) {
	info, err := i.client.GetQueue(i.vhost, name)
	if err != nil {
		return Stats{}, errors.Wrapf(err, "unable to read queue %s", name)
	}

	return Stats{
		Ready:     info.MessagesReady,
		Unacked:   info.MessagesUnacknowledged,
		Total:     info.Messages,
		Consumers: info.Consumers,
	}, nil
}
