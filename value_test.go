package landsync

import "testing"

func TestFromAnyScalarTypes(t *testing.T) {
	cases := []struct {
		in   interface{}
		want SnapshotValue
	}{
		{nil, Null()},
		{true, BoolValue(true)},
		{int32(7), IntValue(7)},
		{uint8(3), IntValue(3)},
		{float32(1.5), DoubleValue(1.5)},
		{"hi", StringValue("hi")},
	}
	for _, c := range cases {
		got := FromAny(c.in)
		if !got.Equal(c.want) {
			t.Errorf("FromAny(%v) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestFromAnyConvertsNewtypeKeyedMap(t *testing.T) {
	got := FromAny(map[PlayerID]int32{"alice": 1, "bob": 2})
	if got.Kind != KindObject {
		t.Fatalf("Kind = %v, want KindObject", got.Kind)
	}
	if got.Object["alice"].Int != 1 || got.Object["bob"].Int != 2 {
		t.Fatalf("Object = %+v, want alice=1, bob=2", got.Object)
	}
}

func TestFromAnyPanicsOnUnsupportedType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unsupported type")
		}
	}()
	FromAny(make(chan int))
}

func TestEqualNaNNeverEqual(t *testing.T) {
	nan := DoubleValue(nanValue())
	if nan.Equal(nan) {
		t.Fatal("NaN should never equal itself")
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestEqualArrayAndObject(t *testing.T) {
	a := ArrayValue([]SnapshotValue{IntValue(1), IntValue(2)})
	b := ArrayValue([]SnapshotValue{IntValue(1), IntValue(2)})
	c := ArrayValue([]SnapshotValue{IntValue(1), IntValue(3)})
	if !a.Equal(b) {
		t.Fatal("identical arrays should be equal")
	}
	if a.Equal(c) {
		t.Fatal("differing arrays should not be equal")
	}

	o1 := ObjectValue(map[string]SnapshotValue{"x": IntValue(1)})
	o2 := ObjectValue(map[string]SnapshotValue{"x": IntValue(1)})
	if !o1.Equal(o2) {
		t.Fatal("identical objects should be equal")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	values := []SnapshotValue{
		Null(), BoolValue(true), IntValue(42), DoubleValue(3.5),
		StringValue("x"), ArrayValue([]SnapshotValue{IntValue(1)}),
		ObjectValue(map[string]SnapshotValue{"a": StringValue("b")}),
	}
	for _, v := range values {
		data, err := v.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%+v): %v", v, err)
		}
		var out SnapshotValue
		if err := out.UnmarshalJSON(data); err != nil {
			t.Fatalf("UnmarshalJSON(%s): %v", data, err)
		}
		if !v.Equal(out) {
			t.Errorf("round trip mismatch: %+v -> %s -> %+v", v, data, out)
		}
	}
}

func TestUnmarshalJSONWholeIntegersBecomeInt(t *testing.T) {
	var v SnapshotValue
	if err := v.UnmarshalJSON([]byte("5")); err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindInt || v.Int != 5 {
		t.Fatalf("v = %+v, want KindInt 5", v)
	}
}
