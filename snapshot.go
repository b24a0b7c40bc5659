package landsync

// StateSnapshot is a full, viewer-projected rendering of a Land's root
// state: one entry per root field name that survived that viewer's
// SyncPolicy. It is the JSON object a client receives on first sync and the
// baseline StatePatch operations are computed against.
type StateSnapshot map[string]SnapshotValue

// Clone returns a copy of the top-level map, used so a cached snapshot's set
// of fields can be retained across ticks independently of the original map.
// Nested Array and Object values are shared with the original, not copied.
func (s StateSnapshot) Clone() StateSnapshot {
	out := make(StateSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether two snapshots contain the same fields with equal
// values.
func (s StateSnapshot) Equal(o StateSnapshot) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
