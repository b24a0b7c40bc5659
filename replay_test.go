package landsync

import "testing"

func TestReplayRecorderRecordsPatchesAndEvents(t *testing.T) {
	r := NewReplayRecorder()
	r.SetTick(5)

	snap := StateSnapshot{"round": IntValue(1)}
	if err := r.RecordPatches(firstSyncUpdate(snap)); err != nil {
		t.Fatalf("RecordPatches: %v", err)
	}
	if err := r.RecordPatches(noChangeUpdate()); err != nil {
		t.Fatalf("RecordPatches noChange: %v", err)
	}
	if err := r.RecordEvent(NewEvent("RoundStarted", nil)); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	records := r.Records()
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2 (noChange should be skipped)", len(records))
	}
	if records[0].Kind != ReplayKindPatch || records[0].TickID != 5 {
		t.Fatalf("records[0] = %+v, want patch at tick 5", records[0])
	}
	if records[1].Kind != ReplayKindEvent {
		t.Fatalf("records[1].Kind = %v, want event", records[1].Kind)
	}

	drained := r.Drain()
	if len(drained) != 2 {
		t.Fatalf("len(Drain()) = %d, want 2", len(drained))
	}
	if len(r.Records()) != 0 {
		t.Fatal("recorder should be empty after Drain")
	}
}

func TestSnapshotReplayerReconstructsState(t *testing.T) {
	r := NewReplayRecorder()
	r.SetTick(1)
	first := firstSyncUpdate(StateSnapshot{"round": IntValue(1), "phase": StringValue("lobby")})
	if err := r.RecordPatches(first); err != nil {
		t.Fatal(err)
	}

	r.SetTick(2)
	diff := diffUpdate([]StatePatch{replacePatch("/round", IntValue(2))})
	if err := r.RecordPatches(diff); err != nil {
		t.Fatal(err)
	}

	replayer := NewSnapshotReplayer()
	if err := replayer.ReplayAll(r.Records()); err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}

	state := replayer.State()
	if state["round"].Int != 2 {
		t.Fatalf("round = %d, want 2", state["round"].Int)
	}
	if state["phase"].Str != "lobby" {
		t.Fatalf("phase = %q, want lobby", state["phase"].Str)
	}
}

func TestSnapshotReplayerReplayRangeFiltersTicks(t *testing.T) {
	records := []ReplayRecord{}
	r := NewReplayRecorder()
	for tick := uint64(1); tick <= 3; tick++ {
		r.SetTick(tick)
		if tick == 1 {
			_ = r.RecordPatches(firstSyncUpdate(StateSnapshot{"n": IntValue(int64(tick))}))
		} else {
			_ = r.RecordPatches(diffUpdate([]StatePatch{replacePatch("/n", IntValue(int64(tick)))}))
		}
	}
	records = r.Records()

	replayer := NewSnapshotReplayer()
	if err := replayer.ReplayRange(records, 1, 2); err != nil {
		t.Fatal(err)
	}
	if replayer.State()["n"].Int != 2 {
		t.Fatalf("n = %d, want 2 (tick 3 excluded)", replayer.State()["n"].Int)
	}
}

func TestMarshalUnmarshalRecordsRoundTrip(t *testing.T) {
	r := NewReplayRecorder()
	r.SetTick(9)
	_ = r.RecordEvent(NewEvent("X", nil))

	data, err := MarshalRecords(r.Records())
	if err != nil {
		t.Fatalf("MarshalRecords: %v", err)
	}
	decoded, err := UnmarshalRecords(data)
	if err != nil {
		t.Fatalf("UnmarshalRecords: %v", err)
	}
	if len(decoded) != 1 || decoded[0].TickID != 9 {
		t.Fatalf("decoded = %+v, want one record at tick 9", decoded)
	}
}
