package landsync

// ExtractSnapshot builds the full, viewer-projected StateSnapshot for node
// under ctx. It walks every field in node's schema, resolving nested
// StateNode fields recursively into SnapshotValue objects and applying each
// field's SyncPolicy before the value is placed in the result.
func ExtractSnapshot(node StateNode, ctx PolicyContext) StateSnapshot {
	schema := node.Schema()
	out := make(StateSnapshot, schema.FieldCount())
	for _, field := range schema.Fields {
		if field.Policy.Kind == PolicyServerOnly {
			continue
		}
		raw := extractFieldValue(node, field, ctx)
		projected, ok := field.Policy.apply(ctx, raw)
		if !ok {
			continue
		}
		out[field.Name] = projected
	}
	return out
}

// extractFieldValue resolves one field's current value into a SnapshotValue,
// recursing into nested StateNode children without yet applying that field's
// own policy (the caller applies it once, after recursion).
func extractFieldValue(node StateNode, field FieldMeta, ctx PolicyContext) SnapshotValue {
	raw := node.GetFieldValue(field.Index)
	return resolveValue(raw, field, ctx)
}

func resolveValue(raw interface{}, field FieldMeta, ctx PolicyContext) SnapshotValue {
	switch t := raw.(type) {
	case StateNode:
		return ObjectValue(ExtractSnapshot(t, ctx))
	case []StateNode:
		arr := make([]SnapshotValue, len(t))
		for i, child := range t {
			childCtx := ctx
			childCtx.Slot = PlayerSlot(i)
			arr[i] = ObjectValue(ExtractSnapshot(child, childCtx))
		}
		return ArrayValue(arr)
	default:
		return FromAny(raw)
	}
}
