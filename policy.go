package landsync

// PolicyKind selects which visibility rule a field's SyncPolicy applies.
type PolicyKind uint8

const (
	// PolicyBroadcast sends the field's value to every player identically.
	PolicyBroadcast PolicyKind = iota
	// PolicyServerOnly never leaves the Land; it is excluded from every
	// extracted snapshot.
	PolicyServerOnly
	// PolicyPerPlayer treats the field's value as a mapping from PlayerID to
	// V and selects each viewer's own entry out of it.
	PolicyPerPlayer
	// PolicyPerPlayerSlice treats the field as a slice keyed by PlayerSlot
	// and hands each viewer only their own element.
	PolicyPerPlayerSlice
	// PolicyMasked always sends a value but runs it through Transform first,
	// e.g. replacing a hand of cards with just a count.
	PolicyMasked
	// PolicyCustom hands the whole decision to Transform, including whether
	// to include the field at all (Transform's ok return).
	PolicyCustom
)

// PolicyContext is what a per-field filter or transform is given to decide
// what a particular viewer may see.
type PolicyContext struct {
	Viewer   PlayerID
	LandID   LandID
	Slot     PlayerSlot
	Metadata map[string]string
}

// SyncPolicy is attached to a field in a Schema and decides how that field's
// value is projected into each player's snapshot. The zero value is
// PolicyBroadcast, the common case, so most fields need no explicit policy.
type SyncPolicy struct {
	Kind PolicyKind

	// Select is used by PolicyPerPlayer. It receives the field's whole
	// mapping value and picks out whatever this viewer is allowed to see,
	// returning ok=false to omit the field. A nil Select applies the
	// default: the field's value must be an object keyed by PlayerID, and
	// the viewer's own entry (or nothing, if absent) is what gets synced.
	Select func(ctx PolicyContext, mapping SnapshotValue) (value SnapshotValue, ok bool)

	// Transform is used by PolicyMasked and PolicyCustom. For PolicyMasked
	// the returned value replaces the field's value for every viewer, owner
	// included (ctx.Viewer is compared against nothing - it is applied
	// uniformly, which is why masking differs from per-player filtering).
	// For PolicyCustom, ok=false omits the field for this viewer.
	Transform func(ctx PolicyContext, value SnapshotValue) (out SnapshotValue, ok bool)
}

// Broadcast is the default policy: identical value for every viewer.
func Broadcast() SyncPolicy { return SyncPolicy{Kind: PolicyBroadcast} }

// ServerOnly excludes a field from every outbound snapshot.
func ServerOnly() SyncPolicy { return SyncPolicy{Kind: PolicyServerOnly} }

// PerPlayer treats the field as a mapping from PlayerID to V and, for each
// viewer, syncs only that viewer's own entry - with the default lookup, the
// entry's bare value, or nothing at all if they have none. Pass
// nil to use the default by-key lookup; pass a selectFn to compute a
// viewer's entry instead of just indexing into the mapping.
func PerPlayer(selectFn func(ctx PolicyContext, mapping SnapshotValue) (SnapshotValue, bool)) SyncPolicy {
	return SyncPolicy{Kind: PolicyPerPlayer, Select: selectFn}
}

// PerPlayerSlice exposes only the array element at the viewer's PlayerSlot.
func PerPlayerSlice() SyncPolicy { return SyncPolicy{Kind: PolicyPerPlayerSlice} }

// Masked rewrites the field's value through transform for every viewer.
func Masked(transform func(ctx PolicyContext, value SnapshotValue) SnapshotValue) SyncPolicy {
	return SyncPolicy{Kind: PolicyMasked, Transform: func(ctx PolicyContext, v SnapshotValue) (SnapshotValue, bool) {
		return transform(ctx, v), true
	}}
}

// Custom hands both inclusion and the value to transform.
func Custom(transform func(ctx PolicyContext, value SnapshotValue) (SnapshotValue, bool)) SyncPolicy {
	return SyncPolicy{Kind: PolicyCustom, Transform: transform}
}

// apply projects value for the given viewer context, returning ok=false when
// the field should be omitted from that viewer's snapshot entirely.
func (p SyncPolicy) apply(ctx PolicyContext, value SnapshotValue) (SnapshotValue, bool) {
	switch p.Kind {
	case PolicyBroadcast:
		return value, true
	case PolicyServerOnly:
		return Null(), false
	case PolicyPerPlayer:
		if p.Select != nil {
			return p.Select(ctx, value)
		}
		if value.Kind != KindObject {
			return Null(), false
		}
		entry, ok := value.Object[string(ctx.Viewer)]
		if !ok {
			return Null(), false
		}
		return entry, true
	case PolicyPerPlayerSlice:
		if value.Kind != KindArray {
			return Null(), false
		}
		if ctx.Slot < 0 || int(ctx.Slot) >= len(value.Array) {
			return Null(), false
		}
		return value.Array[ctx.Slot], true
	case PolicyMasked, PolicyCustom:
		if p.Transform == nil {
			return value, true
		}
		return p.Transform(ctx, value)
	default:
		return value, true
	}
}
