package landsync

import "testing"

func TestBroadcastAlwaysIncludes(t *testing.T) {
	v, ok := Broadcast().apply(PolicyContext{}, IntValue(5))
	if !ok || v.Int != 5 {
		t.Fatalf("apply() = (%v, %v), want (5, true)", v, ok)
	}
}

func TestServerOnlyNeverIncludes(t *testing.T) {
	_, ok := ServerOnly().apply(PolicyContext{}, IntValue(5))
	if ok {
		t.Fatal("ServerOnly should never be included")
	}
}

func TestPerPlayerDefaultSelectsOwnMapEntry(t *testing.T) {
	policy := PerPlayer(nil)
	mapping := ObjectValue(map[string]SnapshotValue{"owner": IntValue(7), "other": IntValue(9)})

	v, ok := policy.apply(PolicyContext{Viewer: "owner"}, mapping)
	if !ok || v.Int != 7 {
		t.Fatalf("apply() = (%+v, %v), want (7, true)", v, ok)
	}
}

func TestPerPlayerDefaultExcludesViewerWithNoEntry(t *testing.T) {
	policy := PerPlayer(nil)
	mapping := ObjectValue(map[string]SnapshotValue{"owner": IntValue(7)})

	if _, ok := policy.apply(PolicyContext{Viewer: "stranger"}, mapping); ok {
		t.Fatal("viewer with no entry in the mapping should be excluded")
	}
}

func TestPerPlayerDefaultExcludesNonObjectValue(t *testing.T) {
	policy := PerPlayer(nil)
	if _, ok := policy.apply(PolicyContext{Viewer: "owner"}, IntValue(1)); ok {
		t.Fatal("a non-object value isn't a valid PlayerID mapping and should be excluded")
	}
}

func TestPerPlayerCustomSelectOverridesDefault(t *testing.T) {
	policy := PerPlayer(func(ctx PolicyContext, mapping SnapshotValue) (SnapshotValue, bool) {
		return StringValue("computed for " + string(ctx.Viewer)), true
	})
	v, ok := policy.apply(PolicyContext{Viewer: "owner"}, Null())
	if !ok || v.Str != "computed for owner" {
		t.Fatalf("apply() = (%+v, %v), want computed value", v, ok)
	}
}

func TestPerPlayerSliceSelectsOwnSlot(t *testing.T) {
	arr := ArrayValue([]SnapshotValue{StringValue("a"), StringValue("b"), StringValue("c")})
	v, ok := PerPlayerSlice().apply(PolicyContext{Slot: 1}, arr)
	if !ok || v.Str != "b" {
		t.Fatalf("apply() = (%v, %v), want (b, true)", v, ok)
	}
}

func TestPerPlayerSliceOutOfRangeExcludes(t *testing.T) {
	arr := ArrayValue([]SnapshotValue{StringValue("a")})
	if _, ok := PerPlayerSlice().apply(PolicyContext{Slot: 5}, arr); ok {
		t.Fatal("out-of-range slot should be excluded")
	}
	if _, ok := PerPlayerSlice().apply(PolicyContext{Slot: -1}, arr); ok {
		t.Fatal("negative slot should be excluded")
	}
}

func TestPerPlayerSliceNonArrayExcludes(t *testing.T) {
	if _, ok := PerPlayerSlice().apply(PolicyContext{Slot: 0}, IntValue(1)); ok {
		t.Fatal("non-array value should be excluded")
	}
}

func TestMaskedTransformsForEveryViewer(t *testing.T) {
	policy := Masked(func(ctx PolicyContext, value SnapshotValue) SnapshotValue {
		return IntValue(int64(len(value.Array)))
	})
	v, ok := policy.apply(PolicyContext{}, ArrayValue([]SnapshotValue{IntValue(1), IntValue(2)}))
	if !ok || v.Int != 2 {
		t.Fatalf("apply() = (%v, %v), want (2, true)", v, ok)
	}
}

func TestCustomControlsBothValueAndInclusion(t *testing.T) {
	policy := Custom(func(ctx PolicyContext, value SnapshotValue) (SnapshotValue, bool) {
		if ctx.Viewer == "blocked" {
			return Null(), false
		}
		return StringValue("redacted"), true
	})
	if _, ok := policy.apply(PolicyContext{Viewer: "blocked"}, StringValue("secret")); ok {
		t.Fatal("blocked viewer should be excluded")
	}
	v, ok := policy.apply(PolicyContext{Viewer: "other"}, StringValue("secret"))
	if !ok || v.Str != "redacted" {
		t.Fatalf("apply() = (%v, %v), want (redacted, true)", v, ok)
	}
}
