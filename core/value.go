package core

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ParticleType is the wire type byte for a Value, per spec.md §3/§4.1.
type ParticleType byte

const (
	ParticleNull      ParticleType = 0
	ParticleInteger   ParticleType = 1
	ParticleFloat     ParticleType = 2
	ParticleString    ParticleType = 3
	ParticleBlob      ParticleType = 4
	ParticleJavaBlob  ParticleType = 7 // host-serialized blob (opaque, caller-encoded)
	ParticleMap       ParticleType = 19
	ParticleList      ParticleType = 20
	ParticleGeoJSON   ParticleType = 23
	ParticleHLL       ParticleType = 18 // host-serialized blob variant
	ParticleBool      ParticleType = 17
	ParticleOrderedMap ParticleType = 21
)

// Value is a tagged variant over every wire-representable particle. The
// zero Value is Null. Construct one of the typed values below rather than
// building a Value by hand.
type Value struct {
	kind ParticleType
	i    int64
	f    float64
	s    string
	b    []byte
	list []Value
	m    map[string]Value // ordered map preserves insertion order via keys slice
	keys []string
	bl   bool
}

func NullValue() Value                  { return Value{kind: ParticleNull} }
func IntegerValue(v int64) Value        { return Value{kind: ParticleInteger, i: v} }
func FloatValue(v float64) Value        { return Value{kind: ParticleFloat, f: v} }
func StringValue(v string) Value        { return Value{kind: ParticleString, s: v} }
func BlobValue(v []byte) Value          { return Value{kind: ParticleBlob, b: v} }
func BoolValue(v bool) Value            { return Value{kind: ParticleBool, bl: v} }
func GeoJSONValue(v string) Value       { return Value{kind: ParticleGeoJSON, s: v} }
func HostSerializedValue(v []byte) Value { return Value{kind: ParticleJavaBlob, b: v} }
func ListValue(v []Value) Value         { return Value{kind: ParticleList, list: v} }

// MapValue builds an ordered-map Value; iteration order (Keys) matches the
// order keys are supplied here, per spec.md §3 ("ordered mapping").
func MapValue(keys []string, vals map[string]Value) Value {
	return Value{kind: ParticleOrderedMap, keys: append([]string(nil), keys...), m: vals}
}

func (v Value) Type() ParticleType { return v.kind }
func (v Value) IsNil() bool        { return v.kind == ParticleNull }

func (v Value) Int() (int64, bool)      { return v.i, v.kind == ParticleInteger }
func (v Value) Float() (float64, bool)  { return v.f, v.kind == ParticleFloat }
func (v Value) String() string {
	switch v.kind {
	case ParticleString, ParticleGeoJSON:
		return v.s
	case ParticleInteger:
		return fmt.Sprintf("%d", v.i)
	case ParticleFloat:
		return fmt.Sprintf("%g", v.f)
	case ParticleBool:
		return fmt.Sprintf("%t", v.bl)
	case ParticleNull:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", v.b)
	}
}
func (v Value) Bytes() ([]byte, bool) {
	return v.b, v.kind == ParticleBlob || v.kind == ParticleJavaBlob || v.kind == ParticleHLL
}
func (v Value) List() ([]Value, bool) { return v.list, v.kind == ParticleList }
func (v Value) Bool() (bool, bool)    { return v.bl, v.kind == ParticleBool }
func (v Value) OrderedMap() ([]string, map[string]Value, bool) {
	return v.keys, v.m, v.kind == ParticleOrderedMap || v.kind == ParticleMap
}

// particleBytes returns the wire payload for this value (excluding the
// leading particle-type byte, which the op encoder writes separately).
func (v Value) particleBytes() []byte {
	switch v.kind {
	case ParticleNull:
		return nil
	case ParticleInteger:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v.i))
		return buf
	case ParticleFloat:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(v.f))
		return buf
	case ParticleString, ParticleGeoJSON:
		return []byte(v.s)
	case ParticleBlob, ParticleJavaBlob, ParticleHLL:
		return v.b
	case ParticleBool:
		if v.bl {
			return []byte{1}
		}
		return []byte{0}
	case ParticleList, ParticleMap, ParticleOrderedMap:
		return encodeCDT(v)
	default:
		return v.b
	}
}
