package core

import "testing"

func TestValueConstructorsRoundTripKind(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		kind ParticleType
	}{
		{"null", NullValue(), ParticleNull},
		{"integer", IntegerValue(42), ParticleInteger},
		{"float", FloatValue(3.5), ParticleFloat},
		{"string", StringValue("hi"), ParticleString},
		{"blob", BlobValue([]byte{1, 2}), ParticleBlob},
		{"bool", BoolValue(true), ParticleBool},
		{"geojson", GeoJSONValue(`{"type":"Point"}`), ParticleGeoJSON},
		{"list", ListValue([]Value{IntegerValue(1)}), ParticleList},
	}
	for _, c := range cases {
		if got := c.v.Type(); got != c.kind {
			t.Errorf("%s: Type() = %v, want %v", c.name, got, c.kind)
		}
	}
}

func TestValueIsNil(t *testing.T) {
	if !NullValue().IsNil() {
		t.Fatalf("NullValue should report IsNil")
	}
	if StringValue("x").IsNil() {
		t.Fatalf("non-null value should not report IsNil")
	}
}

func TestValueStringFormatsEachKind(t *testing.T) {
	if got := IntegerValue(7).String(); got != "7" {
		t.Fatalf("IntegerValue.String() = %q, want 7", got)
	}
	if got := StringValue("abc").String(); got != "abc" {
		t.Fatalf("StringValue.String() = %q, want abc", got)
	}
	if got := BoolValue(true).String(); got != "true" {
		t.Fatalf("BoolValue.String() = %q, want true", got)
	}
	if got := NullValue().String(); got != "<nil>" {
		t.Fatalf("NullValue.String() = %q, want <nil>", got)
	}
}

func TestMapValuePreservesKeyOrder(t *testing.T) {
	keys := []string{"z", "a", "m"}
	vals := map[string]Value{"z": IntegerValue(1), "a": IntegerValue(2), "m": IntegerValue(3)}
	mv := MapValue(keys, vals)
	if mv.Type() != ParticleOrderedMap {
		t.Fatalf("expected ParticleOrderedMap")
	}
}

func TestValueIntFloatAccessorsTagMismatch(t *testing.T) {
	if _, ok := StringValue("x").Int(); ok {
		t.Fatalf("Int() should report !ok for a string value")
	}
	if _, ok := IntegerValue(1).Float(); ok {
		t.Fatalf("Float() should report !ok for an integer value")
	}
	if v, ok := IntegerValue(9).Int(); !ok || v != 9 {
		t.Fatalf("Int() = (%d,%t), want (9,true)", v, ok)
	}
}
