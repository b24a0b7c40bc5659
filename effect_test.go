package landsync

import "testing"

func TestSyncEngineAppliesRegisteredEffect(t *testing.T) {
	node := &simpleNode{
		schema: NewSchemaBuilder("S").Field("Hand", Broadcast()).Build(),
		values: map[uint8]interface{}{0: int32(7)},
	}
	engine := NewSyncEngine(node)
	engine.AddEffect(Func("blind", func(snap StateSnapshot, activator PlayerID) StateSnapshot {
		out := snap.Clone()
		out["Hand"] = Null()
		return out
	}))

	update := engine.GenerateDiff(PolicyContext{Viewer: "p1"})
	if update.Kind != UpdateFirstSync {
		t.Fatalf("Kind = %v, want UpdateFirstSync", update.Kind)
	}
	if update.Snapshot["Hand"].Kind != KindNull {
		t.Fatalf("Snapshot[Hand] = %+v, want null after the blind effect", update.Snapshot["Hand"])
	}
}

func TestSyncEngineEffectsRunInRegistrationOrder(t *testing.T) {
	node := &simpleNode{
		schema: NewSchemaBuilder("S").Field("N", Broadcast()).Build(),
		values: map[uint8]interface{}{0: int32(1)},
	}
	engine := NewSyncEngine(node)
	engine.AddEffect(Func("double", func(snap StateSnapshot, activator PlayerID) StateSnapshot {
		out := snap.Clone()
		out["N"] = IntValue(snap["N"].Int * 2)
		return out
	}))
	engine.AddEffect(Func("add-one", func(snap StateSnapshot, activator PlayerID) StateSnapshot {
		out := snap.Clone()
		out["N"] = IntValue(snap["N"].Int + 1)
		return out
	}))

	update := engine.GenerateDiff(PolicyContext{Viewer: "p1"})
	if update.Snapshot["N"].Int != 3 {
		t.Fatalf("Snapshot[N] = %+v, want 3 (1*2 then +1)", update.Snapshot["N"])
	}
}
