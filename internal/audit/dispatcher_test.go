package audit

import (
	"context"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{Enabled: true, BufferSize: 8, DropIfFull: true}
}

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(testConfig(), sink)
	defer d.Close()

	d.Emit(context.Background(), Event{EventType: "login", Email: "alice@example.com"})

	select {
	case event := <-sink.Events():
		if event.EventType != "login" || event.Email != "alice@example.com" {
			t.Fatalf("event = %+v, want the emitted fields", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the sink")
	}
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled config produced a dispatcher")
	}

	// Nil receivers are safe on every method.
	d.Emit(context.Background(), Event{EventType: "noop"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

// gatedSink blocks deliveries until released so the queue can be filled.
type gatedSink struct {
	gate chan struct{}
}

func (s *gatedSink) Emit(_ context.Context, _ Event) {
	<-s.gate
}

func TestDispatcherShedsWhenFull(t *testing.T) {
	sink := &gatedSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the pump, second fills the buffer; anything past
	// that is shed.
	d.Emit(context.Background(), Event{EventType: "one"})
	d.Emit(context.Background(), Event{EventType: "two"})

	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 {
		d.Emit(context.Background(), Event{EventType: "overflow"})
		if time.Now().After(deadline) {
			t.Fatal("full queue never shed an event")
		}
	}

	close(sink.gate)
	d.Close()
}

func TestCloseFlushesBufferedEvents(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(testConfig(), sink)

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: "flush"})
	}
	d.Close()

	for i := 0; i < 3; i++ {
		select {
		case <-sink.Events():
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d lost at close", i+1)
		}
	}

	// After close new events are counted, not queued.
	d.Emit(context.Background(), Event{EventType: "late"})
	if d.Dropped() == 0 {
		t.Fatal("post-close emit not counted as dropped")
	}
}
