package queue

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRequestRoundTrip(t *testing.T) {
	req := Request{
		JobID:       "b6c1",
		AssetID:     42,
		Source:      "/tmp/in.mp4",
		SubmittedAt: time.Date(2020, 4, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := req.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "assetId: 42") {
		t.Errorf("unexpected payload:\n%s", data)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(req, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsMissingJob(t *testing.T) {
	if _, err := Decode([]byte("assetId: 1\n")); err == nil {
		t.Error("expected error for request without job id")
	}
	if _, err := Decode([]byte("{{{")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestMemoryQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewMemory(4)
	for i := int64(1); i <= 3; i++ {
		if err := q.Publish(ctx, Request{JobID: "job", AssetID: i}); err != nil {
			t.Fatal(err)
		}
	}

	deliveries, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var got []int64
	for i := 0; i < 3; i++ {
		d := <-deliveries
		got = append(got, d.Request().AssetID)
		if err := d.Ack(); err != nil {
			t.Fatal(err)
		}
	}

	if diff := cmp.Diff([]int64{1, 2, 3}, got); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestMemoryQueueNackRequeues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewMemory(2)
	_ = q.Publish(ctx, Request{JobID: "a", AssetID: 7})

	deliveries, _ := q.Consume(ctx)
	first := <-deliveries
	if err := first.Nack(true); err != nil {
		t.Fatal(err)
	}

	second := <-deliveries
	if second.Request().JobID != "a" {
		t.Errorf("expected requeued request, got %+v", second.Request())
	}
}

func TestMemoryQueueClose(t *testing.T) {
	q := NewMemory(1)
	deliveries, _ := q.Consume(context.Background())

	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-deliveries; ok {
		t.Error("expected deliveries to close")
	}
	if err := q.Publish(context.Background(), Request{JobID: "x"}); err != ErrClosed {
		t.Errorf("Publish after close = %v, want ErrClosed", err)
	}
}

func TestMemoryPublishHonoursContext(t *testing.T) {
	q := NewMemory(1)
	_ = q.Publish(context.Background(), Request{JobID: "fill"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := q.Publish(ctx, Request{JobID: "blocked"}); err != context.DeadlineExceeded {
		t.Errorf("Publish on full queue = %v, want deadline exceeded", err)
	}
}
