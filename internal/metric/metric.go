package metric

import (
	"context"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
)

type Fields map[string]interface{}

type Tags map[string]string

// Client collects metrics. Added metrics are sampled on every tick, Send
// writes points right away.
type Client interface {
	Add(metric Metric)
	Send(points ...*influxdb2.Point)
	Ticker(ctx context.Context, duration time.Duration)
	Close()
}

type Metric interface {
	Metric() *influxdb2.Point
}

type RowMetric struct {
	Name string
	Tags Tags
}

func (r RowMetric) point(fields Fields) *influxdb2.Point {
	return influxdb2.NewPoint(r.Name, r.Tags, fields, time.Now())
}

// CounterMetric is a monotonic counter, safe for concurrent use.
type CounterMetric struct {
	RowMetric
	mu      sync.Mutex
	Counter int64
}

func (c *CounterMetric) Inc() {
	c.mu.Lock()
	c.Counter++
	c.mu.Unlock()
}

func (c *CounterMetric) Metric() *influxdb2.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.point(Fields{"counter": c.Counter})
}

// GaugeMetric is a value going up and down, safe for concurrent use.
type GaugeMetric struct {
	RowMetric
	mu    sync.Mutex
	Gauge int64
}

func (g *GaugeMetric) Add(delta int64) {
	g.mu.Lock()
	g.Gauge += delta
	g.mu.Unlock()
}

func (g *GaugeMetric) Metric() *influxdb2.Point {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.point(Fields{"gauge": g.Gauge})
}

type DurationMetric struct {
	RowMetric
	Duration time.Duration
}

func (d *DurationMetric) Metric() *influxdb2.Point {
	return d.point(Fields{"duration": d.Duration.Seconds()})
}
