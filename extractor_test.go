package landsync

import "testing"

// inventoryNode is a minimal hand-written StateNode used to exercise nested
// extraction without depending on generated code.
type inventoryNode struct {
	Tracking
	Gold int32
}

var inventorySchema = NewSchemaBuilder("Inventory").
	Field("Gold", Broadcast()).
	Build()

func (n *inventoryNode) Schema() *Schema         { return inventorySchema }
func (n *inventoryNode) MarkAllDirty()           { n.Tracking.MarkAllDirty(inventorySchema.FieldCount()) }
func (n *inventoryNode) GetFieldValue(i uint8) interface{} {
	switch i {
	case 0:
		return n.Gold
	}
	return nil
}

type playerNode struct {
	Tracking
	Name      string
	Secret    string
	Inventory inventoryNode
}

var playerSchema = NewSchemaBuilder("Player").
	Field("Name", Broadcast()).
	Field("Secret", ServerOnly()).
	Struct("Inventory", Broadcast(), inventorySchema).
	Build()

func (n *playerNode) Schema() *Schema { return playerSchema }
func (n *playerNode) MarkAllDirty()   { n.Tracking.MarkAllDirty(playerSchema.FieldCount()) }
func (n *playerNode) GetFieldValue(i uint8) interface{} {
	switch i {
	case 0:
		return n.Name
	case 1:
		return n.Secret
	case 2:
		return &n.Inventory
	}
	return nil
}

func TestExtractSnapshotSkipsServerOnlyFields(t *testing.T) {
	p := &playerNode{Name: "Ada", Secret: "dont-leak"}
	p.Inventory.Gold = 10

	snap := ExtractSnapshot(p, PolicyContext{Viewer: "other"})
	if _, present := snap["Secret"]; present {
		t.Fatal("ServerOnly field should never appear in a snapshot")
	}
	if snap["Name"].Str != "Ada" {
		t.Fatalf("Name = %+v, want Ada", snap["Name"])
	}
}

func TestExtractSnapshotRecursesIntoNestedStateNode(t *testing.T) {
	p := &playerNode{Name: "Ada"}
	p.Inventory.Gold = 42

	snap := ExtractSnapshot(p, PolicyContext{})
	inv, ok := snap["Inventory"]
	if !ok || inv.Kind != KindObject {
		t.Fatalf("Inventory = %+v, want an object", inv)
	}
	if inv.Object["Gold"].Int != 42 {
		t.Fatalf("Inventory.Gold = %+v, want 42", inv.Object["Gold"])
	}
}

func TestExtractSnapshotAppliesPerPlayerFilter(t *testing.T) {
	schema := NewSchemaBuilder("Guess").
		Field("Value", PerPlayer(nil)).
		Build()
	guesses := map[string]int32{"owner": 7}
	node := &simpleNode{schema: schema, values: map[uint8]interface{}{0: guesses}}

	owner := ExtractSnapshot(node, PolicyContext{Viewer: "owner"})
	if owner["Value"].Int != 7 {
		t.Fatalf("owner snapshot = %+v, want Value=7", owner)
	}
	stranger := ExtractSnapshot(node, PolicyContext{Viewer: "stranger"})
	if _, present := stranger["Value"]; present {
		t.Fatal("a viewer with no entry in the mapping should not see the field")
	}
}

// simpleNode is a generic single-level StateNode fixture for tests that only
// need to exercise policy application, not nesting.
type simpleNode struct {
	Tracking
	schema *Schema
	values map[uint8]interface{}
}

func (n *simpleNode) Schema() *Schema { return n.schema }
func (n *simpleNode) MarkAllDirty()   { n.Tracking.MarkAllDirty(n.schema.FieldCount()) }
func (n *simpleNode) GetFieldValue(i uint8) interface{} {
	return n.values[i]
}
