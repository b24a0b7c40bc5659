package landsync

import "testing"

func TestSchemaBuilderAssignsSequentialIndices(t *testing.T) {
	schema := NewSchemaBuilder("Player").
		Field("Name", Broadcast()).
		Field("Score", Broadcast()).
		AtomicField("Hand", ServerOnly()).
		Build()

	if schema.FieldCount() != 3 {
		t.Fatalf("FieldCount() = %d, want 3", schema.FieldCount())
	}
	if schema.Field(0).Name != "Name" || schema.Field(1).Name != "Score" || schema.Field(2).Name != "Hand" {
		t.Fatalf("unexpected field order: %+v", schema.Fields)
	}
	if !schema.Field(2).Atomic {
		t.Fatal("Hand should be marked atomic")
	}
	if schema.MaxIndex() != 2 {
		t.Fatalf("MaxIndex() = %d, want 2", schema.MaxIndex())
	}
}

func TestSchemaFieldByName(t *testing.T) {
	schema := NewSchemaBuilder("X").Field("A", Broadcast()).Build()
	if f := schema.FieldByName("A"); f == nil || f.Index != 0 {
		t.Fatalf("FieldByName(A) = %+v, want index 0", f)
	}
	if schema.FieldByName("missing") != nil {
		t.Fatal("FieldByName(missing) should return nil")
	}
}

func TestSchemaFieldOutOfRange(t *testing.T) {
	schema := NewSchemaBuilder("X").Field("A", Broadcast()).Build()
	if schema.Field(5) != nil {
		t.Fatal("Field(5) should return nil for an empty schema position")
	}
}

func TestSchemaAddFieldPanicsOnIndexMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on index/position mismatch")
		}
	}()
	schema := NewSchema(0, "Bad")
	schema.AddField(FieldMeta{Index: 5, Name: "Oops"})
}

func TestSchemaRegistryAssignsIDsAndLooksUpByBoth(t *testing.T) {
	reg := NewSchemaRegistry()
	a := NewSchemaBuilder("A").Build()
	b := NewSchemaBuilder("B").Build()
	reg.Register(a)
	reg.Register(b)

	if a.ID == 0 || b.ID == 0 || a.ID == b.ID {
		t.Fatalf("expected distinct nonzero IDs, got a=%d b=%d", a.ID, b.ID)
	}
	if reg.Get(a.ID) != a {
		t.Fatal("Get(a.ID) should return a")
	}
	if reg.GetByName("B") != b {
		t.Fatal("GetByName(B) should return b")
	}
}

func TestSchemaRegistryPreservesExplicitID(t *testing.T) {
	reg := NewSchemaRegistry()
	s := NewSchemaBuilder("Pinned").WithID(42).Build()
	reg.Register(s)
	if s.ID != 42 {
		t.Fatalf("ID = %d, want 42 to be preserved", s.ID)
	}
	if reg.Get(42) != s {
		t.Fatal("Get(42) should return s")
	}
}
