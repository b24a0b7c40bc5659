package landsync

import "sync"

// SyncEngine computes, per player, what changed in a Land's root state since
// that player was last synced. It owns two caches: a last-delivered snapshot
// per player (used to compute the next diff) and the set of players who have
// received at least one full snapshot (used to decide firstSync vs diff).
type SyncEngine struct {
	mu                 sync.RWMutex
	root               StateNode
	schema             *Schema
	playerCache        map[PlayerID]StateSnapshot
	firstSyncDelivered map[PlayerID]bool
	effects            []Effect[StateSnapshot, PlayerID]
}

// NewSyncEngine wraps a Land's root StateNode.
func NewSyncEngine(root StateNode) *SyncEngine {
	return &SyncEngine{
		root:               root,
		schema:             root.Schema(),
		playerCache:        make(map[PlayerID]StateSnapshot),
		firstSyncDelivered: make(map[PlayerID]bool),
	}
}

// GenerateDiff computes the StateUpdate for one viewer. The first call for a
// given PlayerID (or the first call after ClearCacheForDisconnectedPlayer)
// returns a firstSync carrying a complete snapshot, unless
// MarkFirstSyncReceived has set a baseline for that player in between;
// subsequent calls return noChange or an incremental diff against what that
// viewer last saw.
func (e *SyncEngine) GenerateDiff(ctx PolicyContext) StateUpdate {
	e.mu.RLock()
	delivered := e.firstSyncDelivered[ctx.Viewer]
	e.mu.RUnlock()

	// Fast path: nothing in the tree was marked dirty since the last tick,
	// so no viewer's projection can have changed either. Skips the
	// extraction walk entirely for the common idle-room tick.
	if delivered && !e.root.Changes().HasChanges() {
		return noChangeUpdate()
	}

	current := ExtractSnapshot(e.root, ctx)

	e.mu.RLock()
	effects := e.effects
	e.mu.RUnlock()
	for _, effect := range effects {
		current = effect.Apply(current, ctx.Viewer)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.firstSyncDelivered[ctx.Viewer] {
		e.firstSyncDelivered[ctx.Viewer] = true
		e.playerCache[ctx.Viewer] = current
		return firstSyncUpdate(current.Clone())
	}

	prev := e.playerCache[ctx.Viewer]
	patches := diffSnapshot(e.schema, "", prev, current)
	e.playerCache[ctx.Viewer] = current
	return diffUpdate(patches)
}

// MarkFirstSyncReceived forces the next GenerateDiff for playerID to be
// treated as already-synced against the given baseline, used by
// LandKeeper.Join after the join reply has handed the player a full
// snapshot, so the next tick diffs against it instead of sending a firstSync.
func (e *SyncEngine) MarkFirstSyncReceived(playerID PlayerID, baseline StateSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.firstSyncDelivered[playerID] = true
	e.playerCache[playerID] = baseline.Clone()
}

// ClearCacheForDisconnectedPlayer drops cached state for a player who left,
// so that if they rejoin (fresh PlayerID reuse is allowed) they receive a
// fresh firstSync rather than a diff against stale state.
func (e *SyncEngine) ClearCacheForDisconnectedPlayer(playerID PlayerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.playerCache, playerID)
	delete(e.firstSyncDelivered, playerID)
}

// WarmupBroadcast extracts a snapshot using a viewer-less broadcast context,
// primarily useful for metrics and for seeding persistence before any player
// has connected. Called once from LandKeeper's actor loop at startup so the
// first real join never pays for a cold extraction walk.
func (e *SyncEngine) WarmupBroadcast() StateSnapshot {
	return ExtractSnapshot(e.root, PolicyContext{Slot: NoSlot})
}

// AddEffect registers a reversible per-viewer transform applied to a
// viewer's extracted snapshot, after policy projection but before caching
// and diffing - the underlying state is never touched, so the transform
// only changes what that viewer appears to see (e.g. a temporary "blinded"
// effect over a hand of cards). Effects run in registration order and are
// not applied on the HasChanges fast path, matching the rest of this
// method's "nothing dirty, nothing to recompute" contract.
func (e *SyncEngine) AddEffect(effect Effect[StateSnapshot, PlayerID]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.effects = append(e.effects, effect)
}

// diffSnapshot compares two snapshots field by field against schema,
// recursing into nested object fields via their ChildSchema and treating
// every other field (including arrays) as a single atomic replace unit.
func diffSnapshot(schema *Schema, basePath string, oldSnap, newSnap StateSnapshot) []StatePatch {
	var patches []StatePatch
	for _, field := range schema.Fields {
		if field.Policy.Kind == PolicyServerOnly {
			continue
		}
		name := field.Name
		oldV, hasOld := oldSnap[name]
		newV, hasNew := newSnap[name]
		path := joinPointer(basePath, name)
		switch {
		case !hasOld && !hasNew:
			continue
		case !hasOld && hasNew:
			patches = append(patches, addPatch(path, newV))
		case hasOld && !hasNew:
			patches = append(patches, removePatch(path))
		default:
			patches = append(patches, diffFieldValue(field, path, oldV, newV)...)
		}
	}
	return patches
}

func diffFieldValue(field FieldMeta, path string, oldV, newV SnapshotValue) []StatePatch {
	if oldV.Equal(newV) {
		return nil
	}
	if field.Atomic || field.ChildSchema == nil || newV.Kind != KindObject || oldV.Kind != KindObject {
		return []StatePatch{replacePatch(path, newV)}
	}
	return diffSnapshot(field.ChildSchema, path, oldV.Object, newV.Object)
}
