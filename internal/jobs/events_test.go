package jobs

import (
	"fmt"
	"testing"

	"audio2video/internal/domain"
)

// TestEventBusAssignsSequence checks monotonically increasing sequence
// numbers and stamped timestamps.
func TestEventBusAssignsSequence(t *testing.T) {
	bus := NewEventBus(10)

	first := bus.Publish(Event{Type: EventTypeSubmitted, JobID: "a"})
	second := bus.Publish(Event{Type: EventTypeStatus, JobID: "a", Status: domain.JobStatusRunning})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seqs = %d, %d", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("timestamp not stamped")
	}
}

// TestEventBusSince checks the incremental read contract: strictly greater
// than the cursor, in publish order.
func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(10)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventTypeProgress, JobID: fmt.Sprintf("job-%d", i)})
	}

	got := bus.Since(3)
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].Seq != 4 || got[1].Seq != 5 {
		t.Fatalf("seqs = %d, %d", got[0].Seq, got[1].Seq)
	}

	if events := bus.Since(5); len(events) != 0 {
		t.Fatalf("caught-up read returned %d events", len(events))
	}
}

// TestEventBusBoundedBuffer checks old events are dropped while sequence
// numbers keep counting.
func TestEventBusBoundedBuffer(t *testing.T) {
	bus := NewEventBus(3)
	for i := 0; i < 6; i++ {
		bus.Publish(Event{Type: EventTypeLog})
	}

	got := bus.Since(0)
	if len(got) != 3 {
		t.Fatalf("retained = %d, want 3", len(got))
	}
	if got[0].Seq != 4 || got[2].Seq != 6 {
		t.Fatalf("retained seqs = %d..%d, want 4..6", got[0].Seq, got[2].Seq)
	}
}

// TestEventBusSubscribeReceivesLive checks the fan-out path.
func TestEventBusSubscribeReceivesLive(t *testing.T) {
	bus := NewEventBus(10)
	ch := bus.Subscribe()

	bus.Publish(Event{Type: EventTypeStatus, JobID: "a", Status: domain.JobStatusCompleted})

	event := <-ch
	if event.JobID != "a" || event.Status != domain.JobStatusCompleted {
		t.Fatalf("event = %+v", event)
	}

	bus.Close()
	if _, open := <-ch; open {
		t.Fatal("channel still open after Close")
	}
}

// TestEventBusSlowSubscriberDoesNotBlock checks that publishing past a full
// subscriber buffer drops instead of stalling the worker.
func TestEventBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewEventBus(1000)
	ch := bus.Subscribe()

	// 300 publishes exceed the 256-slot buffer; all must return promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			bus.Publish(Event{Type: EventTypeProgress})
		}
		close(done)
	}()
	<-done

	// The overflow is still fully readable from the buffer.
	if got := bus.Since(0); len(got) != 300 {
		t.Fatalf("buffered events = %d, want 300", len(got))
	}
	if len(ch) != 256 {
		t.Fatalf("subscriber buffer = %d, want 256 with overflow dropped", len(ch))
	}
}
