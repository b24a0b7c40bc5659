package landsync

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRemovePatchOmitsValueOnWire(t *testing.T) {
	p := removePatch("/players/bob")
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), `"value"`) {
		t.Fatalf("remove patch should carry no value key, got %s", data)
	}
}

func TestReplacePatchIncludesValueOnWire(t *testing.T) {
	p := replacePatch("/count", IntValue(3))
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"value":3`) {
		t.Fatalf("replace patch should carry its value, got %s", data)
	}
}

func TestApplyPatchesAddReplaceRemove(t *testing.T) {
	snap := StateSnapshot{"a": IntValue(1)}
	patches := []StatePatch{
		addPatch("/b", IntValue(2)),
		replacePatch("/a", IntValue(5)),
		removePatch("/a"),
	}
	out := ApplyPatches(snap, patches)
	if _, present := out["a"]; present {
		t.Fatal("a should have been removed")
	}
	if out["b"].Int != 2 {
		t.Fatalf("b = %+v, want 2", out["b"])
	}
}
