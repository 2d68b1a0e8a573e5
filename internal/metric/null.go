package metric

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
)

// Null drops everything. Used when no InfluxDB endpoint is configured.
type Null struct {
}

func (n *Null) Add(metric Metric) {

}

func (n *Null) Send(points ...*influxdb2.Point) {

}

func (n *Null) Ticker(ctx context.Context, duration time.Duration) {

}

func (n *Null) Close() {

}
