package queue

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const DefaultName = "vodpack.ingest"

var ErrClosed = errors.New("queue closed")

// Request asks for one asset to be ingested.
type Request struct {
	JobID       string    `yaml:"jobId"`
	AssetID     int64     `yaml:"assetId"`
	Source      string    `yaml:"source"`
	SubmittedAt time.Time `yaml:"submittedAt"`
}

func (r Request) Encode() ([]byte, error) {
	data, err := yaml.Marshal(r)
	return data, errors.Wrap(err, "unable to encode request")
}

func Decode(data []byte) (Request, error) {
	var req Request

	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, errors.Wrap(err, "unable to decode request")
	}

	if req.JobID == "" {
		return req, errors.New("request has no job id")
	}

	return req, nil
}

type Delivery interface {
	Request() Request
	Ack() error
	Nack(requeue bool) error
}

// Queue carries ingest requests from submitters to workers.
type Queue interface {
	Publish(ctx context.Context, req Request) error
	// Consume streams deliveries until ctx is done or the queue is closed.
	Consume(ctx context.Context) (<-chan Delivery, error)
	Close() error
}
