package queue

import (
	"context"
	"sync"
)

type memory struct {
	mu     sync.RWMutex
	ch     chan Delivery
	closed bool
}

// NewMemory returns an in-process queue holding up to size pending requests.
// Publish blocks while the queue is full.
func NewMemory(size int) Queue {
	if size <= 0 {
		size = 1
	}
	return &memory{ch: make(chan Delivery, size)}
}

func (m *memory) Publish(ctx context.Context, req Request) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	select {
	case m.ch <- &memoryDelivery{req: req, queue: m}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *memory) Consume(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)

		for {
			select {
			case d, ok := <-m.ch:
				if !ok {
					return
				}
				select {
				case out <- d:
				case <-ctx.Done():
					_ = d.Nack(true)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (m *memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.ch)
	}
	return nil
}

type memoryDelivery struct {
	req   Request
	queue *memory
}

func (d *memoryDelivery) Request() Request {
	return d.req
}

func (d *memoryDelivery) Ack() error {
	return nil
}

func (d *memoryDelivery) Nack(requeue bool) error {
	if !requeue {
		return nil
	}

	d.queue.mu.RLock()
	defer d.queue.mu.RUnlock()

	if d.queue.closed {
		return ErrClosed
	}

	select {
	case d.queue.ch <- d:
		return nil
	default:
		return ErrClosed
	}
}
