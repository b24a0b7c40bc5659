package landsync

// UpdateKind selects which of the three shapes a StateUpdate carries.
type UpdateKind uint8

const (
	// UpdateNoChange means nothing this viewer can see changed this tick;
	// the dispatcher does not send a message for it at all.
	UpdateNoChange UpdateKind = iota
	// UpdateFirstSync carries a full StateSnapshot, sent the first time a
	// player is synced in a Land (on join, or after cache eviction).
	UpdateFirstSync
	// UpdateDiff carries an incremental set of StatePatch operations against
	// the last snapshot that viewer was sent.
	UpdateDiff
)

// StateUpdate is what SyncEngine computes for one viewer on one tick.
type StateUpdate struct {
	Kind     UpdateKind
	Snapshot StateSnapshot // valid when Kind == UpdateFirstSync
	Patches  []StatePatch  // valid when Kind == UpdateDiff
}

func noChangeUpdate() StateUpdate { return StateUpdate{Kind: UpdateNoChange} }

func firstSyncUpdate(snap StateSnapshot) StateUpdate {
	return StateUpdate{Kind: UpdateFirstSync, Snapshot: snap}
}

func diffUpdate(patches []StatePatch) StateUpdate {
	if len(patches) == 0 {
		return noChangeUpdate()
	}
	return StateUpdate{Kind: UpdateDiff, Patches: patches}
}
