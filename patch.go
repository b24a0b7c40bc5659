package landsync

import "strings"

// PatchOp is the operation name of a single RFC 6902 entry. Only the subset
// the diff engine ever emits is named here; "test" and "copy" are never
// produced by this package but are accepted on decode for interoperability
// with hand-written patches fed back in during tests.
type PatchOp string

const (
	OpAdd     PatchOp = "add"
	OpRemove  PatchOp = "remove"
	OpReplace PatchOp = "replace"
)

// StatePatch is one JSON Patch (RFC 6902) operation against a viewer's
// previously delivered StateSnapshot. Path is a JSON Pointer (RFC 6901)
// rooted at the snapshot object, e.g. "/players/2/score". Value is a
// pointer so "remove" ops - which carry no value per RFC 6902 - serialize
// without a "value" key at all; a plain SnapshotValue would always marshal
// one, since structs are never "empty" to encoding/json's omitempty.
type StatePatch struct {
	Op    PatchOp        `json:"op"`
	Path  string         `json:"path"`
	Value *SnapshotValue `json:"value,omitempty"`
}

// escapeToken escapes a single path segment per RFC 6901: "~" becomes "~0"
// and "/" becomes "~1", in that order since the second would otherwise
// re-escape output of the first.
func escapeToken(token string) string {
	if !strings.ContainsAny(token, "~/") {
		return token
	}
	r := strings.NewReplacer("~", "~0", "/", "~1")
	return r.Replace(token)
}

// joinPointer appends a raw (unescaped) segment to an existing JSON Pointer.
func joinPointer(base, segment string) string {
	return base + "/" + escapeToken(segment)
}

// replacePatch builds a "replace" op for a value the viewer's previous
// snapshot already held; the diff engine uses addPatch instead when the
// value was absent from that snapshot.
func replacePatch(path string, value SnapshotValue) StatePatch {
	return StatePatch{Op: OpReplace, Path: path, Value: &value}
}

func addPatch(path string, value SnapshotValue) StatePatch {
	return StatePatch{Op: OpAdd, Path: path, Value: &value}
}

func removePatch(path string) StatePatch {
	return StatePatch{Op: OpRemove, Path: path}
}

// ApplyPatches applies a sequence of patches to a snapshot in place, used by
// clients and by tests asserting that a recorded diff reconstructs the next
// full state when applied to the previous one. Root-level ops only: each
// path is taken as a single root key after RFC 6901 unescaping, and nested
// pointers such as the "/Inner/X" paths the diff engine emits for
// ChildSchema fields are not walked into.
func ApplyPatches(snap StateSnapshot, patches []StatePatch) StateSnapshot {
	out := snap.Clone()
	for _, p := range patches {
		name := strings.TrimPrefix(p.Path, "/")
		// Unescape per RFC 6901.
		name = strings.NewReplacer("~1", "/", "~0", "~").Replace(name)
		switch p.Op {
		case OpAdd, OpReplace:
			if p.Value != nil {
				out[name] = *p.Value
			}
		case OpRemove:
			delete(out, name)
		}
	}
	return out
}
