package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher decouples the login/logout hot paths from sink I/O: events are
// queued onto a buffered channel and a single pump goroutine feeds the sink.
// With DropIfFull set, a full queue sheds events (counted via Dropped) rather
// than stalling a request.
type Dispatcher struct {
	sink     Sink
	events   chan Event
	blocking bool
	dropped  atomic.Uint64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:     sink,
		events:   make(chan Event, buffer),
		blocking: !cfg.DropIfFull,
		done:     make(chan struct{}),
	}
	go d.pump()
	return d
}

// pump is the single consumer. Ranging over the channel means everything
// still buffered at Close is delivered before done is signalled.
func (d *Dispatcher) pump() {
	defer close(d.done)
	for event := range d.events {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues one event. Safe on a nil or closed dispatcher; events arriving
// after Close count as dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return
	}

	if !d.blocking {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.events <- event:
	case <-ctx.Done():
	}
}

// Close stops intake, waits for the pump to flush the queue, and returns.
// Idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()
	<-d.done
}

// Dropped reports how many events were shed since construction.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
