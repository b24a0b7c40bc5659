package landsync

// Tracking is embedded into a state struct to supply the dirty-bit
// bookkeeping behind its Changes, ClearChanges and MarkAllDirty methods.
// NewTracking allocates the ChangeSet up front; the zero value works too,
// since Changes allocates it on first use.
type Tracking struct {
	changes *ChangeSet
}

// NewTracking allocates the backing ChangeSet.
func NewTracking() Tracking {
	return Tracking{changes: NewChangeSet()}
}

// Changes returns the backing ChangeSet, lazily allocating it so a struct
// constructed with a composite literal instead of NewTracking still works.
func (t *Tracking) Changes() *ChangeSet {
	if t.changes == nil {
		t.changes = NewChangeSet()
	}
	return t.changes
}

// ClearChanges resets all dirty bits, normally called once per tick after
// diffs have been generated for every viewer.
func (t *Tracking) ClearChanges() {
	t.Changes().Clear()
}

// MarkAllDirty marks fields 0 through fieldCount-1 as changed, used to force
// a field into every subsequent diff - e.g. right after restoring state from
// a persisted snapshot.
func (t *Tracking) MarkAllDirty(fieldCount int) {
	if fieldCount <= 0 {
		return
	}
	t.Changes().MarkAll(uint8(fieldCount - 1))
}
