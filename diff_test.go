package landsync

import "testing"

func TestSyncEngineFirstCallReturnsFirstSync(t *testing.T) {
	node := &simpleNode{
		schema: NewSchemaBuilder("S").Field("N", Broadcast()).Build(),
		values: map[uint8]interface{}{0: int32(1)},
	}
	engine := NewSyncEngine(node)

	update := engine.GenerateDiff(PolicyContext{Viewer: "p1"})
	if update.Kind != UpdateFirstSync {
		t.Fatalf("Kind = %v, want UpdateFirstSync", update.Kind)
	}
	if update.Snapshot["N"].Int != 1 {
		t.Fatalf("Snapshot[N] = %+v, want 1", update.Snapshot["N"])
	}
}

func TestSyncEngineNoChangeWhenNothingDirty(t *testing.T) {
	node := &simpleNode{
		schema: NewSchemaBuilder("S").Field("N", Broadcast()).Build(),
		values: map[uint8]interface{}{0: int32(1)},
	}
	engine := NewSyncEngine(node)
	engine.GenerateDiff(PolicyContext{Viewer: "p1"}) // first sync

	update := engine.GenerateDiff(PolicyContext{Viewer: "p1"})
	if update.Kind != UpdateNoChange {
		t.Fatalf("Kind = %v, want UpdateNoChange", update.Kind)
	}
}

func TestSyncEngineDiffAfterMutation(t *testing.T) {
	schema := NewSchemaBuilder("S").Field("N", Broadcast()).Build()
	node := &simpleNode{schema: schema, values: map[uint8]interface{}{0: int32(1)}}
	engine := NewSyncEngine(node)
	engine.GenerateDiff(PolicyContext{Viewer: "p1"})

	node.values[0] = int32(2)
	node.Changes().Mark(0, FieldOpReplace)

	update := engine.GenerateDiff(PolicyContext{Viewer: "p1"})
	if update.Kind != UpdateDiff {
		t.Fatalf("Kind = %v, want UpdateDiff", update.Kind)
	}
	if len(update.Patches) != 1 || update.Patches[0].Path != "/N" || update.Patches[0].Value == nil || update.Patches[0].Value.Int != 2 {
		t.Fatalf("Patches = %+v, want one replace of /N to 2", update.Patches)
	}
}

func TestSyncEngineMarkFirstSyncReceivedSkipsInitialFullSync(t *testing.T) {
	node := &simpleNode{
		schema: NewSchemaBuilder("S").Field("N", Broadcast()).Build(),
		values: map[uint8]interface{}{0: int32(5)},
	}
	engine := NewSyncEngine(node)
	engine.MarkFirstSyncReceived("p1", StateSnapshot{"N": IntValue(5)})

	update := engine.GenerateDiff(PolicyContext{Viewer: "p1"})
	if update.Kind != UpdateNoChange {
		t.Fatalf("Kind = %v, want UpdateNoChange since baseline already matches", update.Kind)
	}
}

func TestSyncEngineClearCacheForcesFreshFirstSync(t *testing.T) {
	node := &simpleNode{
		schema: NewSchemaBuilder("S").Field("N", Broadcast()).Build(),
		values: map[uint8]interface{}{0: int32(1)},
	}
	engine := NewSyncEngine(node)
	engine.GenerateDiff(PolicyContext{Viewer: "p1"})
	engine.ClearCacheForDisconnectedPlayer("p1")

	update := engine.GenerateDiff(PolicyContext{Viewer: "p1"})
	if update.Kind != UpdateFirstSync {
		t.Fatalf("Kind = %v, want UpdateFirstSync after cache clear", update.Kind)
	}
}

func TestDiffSnapshotRecursesIntoNonAtomicNestedObject(t *testing.T) {
	child := NewSchemaBuilder("Child").Field("X", Broadcast()).Build()
	parent := NewSchemaBuilder("Parent").Struct("Inner", Broadcast(), child).Build()

	oldSnap := StateSnapshot{"Inner": ObjectValue(map[string]SnapshotValue{"X": IntValue(1)})}
	newSnap := StateSnapshot{"Inner": ObjectValue(map[string]SnapshotValue{"X": IntValue(2)})}

	patches := diffSnapshot(parent, "", oldSnap, newSnap)
	if len(patches) != 1 || patches[0].Path != "/Inner/X" {
		t.Fatalf("patches = %+v, want one replace at /Inner/X", patches)
	}
}

func TestDiffSnapshotTreatsAtomicFieldAsWholeReplace(t *testing.T) {
	child := NewSchemaBuilder("Child").Field("X", Broadcast()).Build()
	parent := NewSchema(0, "Parent").
		AddField(FieldMeta{Index: 0, Name: "Inner", Policy: Broadcast(), ChildSchema: child, Atomic: true})

	oldSnap := StateSnapshot{"Inner": ObjectValue(map[string]SnapshotValue{"X": IntValue(1)})}
	newSnap := StateSnapshot{"Inner": ObjectValue(map[string]SnapshotValue{"X": IntValue(2)})}

	patches := diffSnapshot(parent, "", oldSnap, newSnap)
	if len(patches) != 1 || patches[0].Path != "/Inner" || patches[0].Op != OpReplace {
		t.Fatalf("patches = %+v, want one whole-field replace at /Inner", patches)
	}
}

func TestDiffSnapshotAddAndRemove(t *testing.T) {
	schema := NewSchemaBuilder("S").Field("N", Broadcast()).Build()

	added := diffSnapshot(schema, "", StateSnapshot{}, StateSnapshot{"N": IntValue(1)})
	if len(added) != 1 || added[0].Op != OpAdd {
		t.Fatalf("added = %+v, want one add op", added)
	}

	removed := diffSnapshot(schema, "", StateSnapshot{"N": IntValue(1)}, StateSnapshot{})
	if len(removed) != 1 || removed[0].Op != OpRemove {
		t.Fatalf("removed = %+v, want one remove op", removed)
	}
}
