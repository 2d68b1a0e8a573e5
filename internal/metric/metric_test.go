package metric

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	influxdb2 "github.com/influxdata/influxdb-client-go"
)

func TestCounterMetric(t *testing.T) {
	counter := &CounterMetric{RowMetric: RowMetric{Name: "vodpack_jobs_total", Tags: Tags{"hostname": "node-1"}}}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter.Inc()
		}()
	}
	wg.Wait()

	point := counter.Metric()
	if point.Name() != "vodpack_jobs_total" {
		t.Errorf("name = %q", point.Name())
	}
	if diff := cmp.Diff(Tags{"hostname": "node-1"}, tagsMap(point.TagList())); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Fields{"counter": int64(10)}, fieldsMap(point.FieldList())); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
}

func TestGaugeMetric(t *testing.T) {
	gauge := &GaugeMetric{RowMetric: RowMetric{Name: "vodpack_jobs_running"}}
	gauge.Add(1)
	gauge.Add(1)
	gauge.Add(-1)

	if diff := cmp.Diff(Fields{"gauge": int64(1)}, fieldsMap(gauge.Metric().FieldList())); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
}

func TestDurationMetric(t *testing.T) {
	d := &DurationMetric{RowMetric: RowMetric{Name: "vodpack_job_duration"}, Duration: 1500 * time.Millisecond}

	if diff := cmp.Diff(Fields{"duration": 1.5}, fieldsMap(d.Metric().FieldList())); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
}

func TestNullClient(t *testing.T) {
	var client Client = &Null{}
	client.Add(&CounterMetric{})
	client.Send(influxdb2.NewPoint("x", nil, map[string]interface{}{"v": 1}, time.Now()))
	client.Close()
}
