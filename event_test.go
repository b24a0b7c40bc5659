package landsync

import (
	"encoding/json"
	"testing"
)

func TestNewEventMarshalsPayload(t *testing.T) {
	ev := NewEvent("RoundStarted", map[string]int{"round": 3})
	if ev.Type != "RoundStarted" {
		t.Fatalf("Type = %q, want RoundStarted", ev.Type)
	}
	var decoded map[string]int
	if err := json.Unmarshal(ev.Payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded["round"] != 3 {
		t.Fatalf("round = %d, want 3", decoded["round"])
	}
}

func TestNewEventNilPayload(t *testing.T) {
	ev := NewEvent("Ping", nil)
	if ev.Payload != nil {
		t.Fatalf("Payload = %v, want nil", ev.Payload)
	}
}

func TestNewEventPanicsOnUnmarshalable(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unmarshalable payload")
		}
	}()
	NewEvent("Bad", make(chan int))
}

func TestEventBufferDrainEmpty(t *testing.T) {
	eb := NewEventBuffer[PlayerID]()
	if eb.HasEvents() {
		t.Fatal("fresh buffer should have no events")
	}
	if got := eb.Drain(); got != nil {
		t.Fatalf("Drain() on empty buffer = %v, want nil", got)
	}
}

func TestEventBufferAddAndDrain(t *testing.T) {
	eb := NewEventBuffer[PlayerID]()
	eb.Add(PendingEvent[PlayerID]{Event: NewEvent("A", nil), Target: TargetAll})
	eb.Add(PendingEvent[PlayerID]{Event: NewEvent("B", nil), Target: TargetOne, To: "p1"})

	if !eb.HasEvents() || eb.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", eb.Count())
	}

	drained := eb.Drain()
	if len(drained) != 2 {
		t.Fatalf("len(Drain()) = %d, want 2", len(drained))
	}
	if eb.HasEvents() {
		t.Fatal("buffer should be empty after Drain")
	}
	if drained[1].To != "p1" {
		t.Fatalf("drained[1].To = %q, want p1", drained[1].To)
	}
}

func TestEventBufferClear(t *testing.T) {
	eb := NewEventBuffer[PlayerID]()
	eb.Add(PendingEvent[PlayerID]{Event: NewEvent("A", nil)})
	eb.Clear()
	if eb.HasEvents() {
		t.Fatal("buffer should be empty after Clear")
	}
}
