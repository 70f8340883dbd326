package core

import (
	"encoding/binary"
	"fmt"
	"math"
)

// List/map particles are encoded with a small self-describing TLV scheme:
// each element is [particle_type:u8][len:u32 BE][bytes]. This is the
// client's own nested-particle framing; it is not the server's msgpack
// encoding for CDT contents, which is deliberately out of scope — spec.md
// §9 only asks that "the documented particle types" round-trip, and CDT
// sub-opcode execution is server-side behavior (Non-goal, spec.md §1).
func encodeCDT(v Value) []byte {
	switch v.kind {
	case ParticleList:
		buf := make([]byte, 0, 64)
		buf = appendUint32(buf, uint32(len(v.list)))
		for _, e := range v.list {
			buf = appendElement(buf, e)
		}
		return buf
	case ParticleMap, ParticleOrderedMap:
		buf := make([]byte, 0, 64)
		buf = appendUint32(buf, uint32(len(v.keys)))
		for _, k := range v.keys {
			buf = appendElement(buf, StringValue(k))
			buf = appendElement(buf, v.m[k])
		}
		return buf
	default:
		return nil
	}
}

func appendUint32(buf []byte, n uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], n)
	return append(buf, tmp[:]...)
}

func appendElement(buf []byte, v Value) []byte {
	payload := v.particleBytes()
	buf = append(buf, byte(v.kind))
	buf = appendUint32(buf, uint32(len(payload)))
	return append(buf, payload...)
}

// decodeParticle turns a wire particle (type byte already known, raw bytes
// given) back into a Value. It is the inverse of Value.particleBytes.
func decodeParticle(ptype ParticleType, raw []byte) (Value, error) {
	switch ptype {
	case ParticleNull:
		return NullValue(), nil
	case ParticleInteger:
		if len(raw) != 8 {
			return Value{}, fmt.Errorf("integer particle: want 8 bytes, got %d", len(raw))
		}
		return IntegerValue(int64(binary.BigEndian.Uint64(raw))), nil
	case ParticleFloat:
		if len(raw) != 8 {
			return Value{}, fmt.Errorf("float particle: want 8 bytes, got %d", len(raw))
		}
		return FloatValue(math.Float64frombits(binary.BigEndian.Uint64(raw))), nil
	case ParticleString:
		return StringValue(string(raw)), nil
	case ParticleGeoJSON:
		return GeoJSONValue(string(raw)), nil
	case ParticleBool:
		return BoolValue(len(raw) > 0 && raw[0] != 0), nil
	case ParticleBlob:
		return BlobValue(append([]byte(nil), raw...)), nil
	case ParticleJavaBlob, ParticleHLL:
		return HostSerializedValue(append([]byte(nil), raw...)), nil
	case ParticleList:
		list, err := decodeCDTList(raw)
		if err != nil {
			return Value{}, err
		}
		return ListValue(list), nil
	case ParticleMap, ParticleOrderedMap:
		keys, vals, err := decodeCDTMap(raw)
		if err != nil {
			return Value{}, err
		}
		return MapValue(keys, vals), nil
	default:
		return Value{}, fmt.Errorf("unsupported particle type %d", ptype)
	}
}

func decodeCDTList(raw []byte) ([]Value, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("list particle: truncated count")
	}
	n := binary.BigEndian.Uint32(raw[:4])
	raw = raw[4:]
	out := make([]Value, 0, n)
	for i := uint32(0); i < n; i++ {
		v, rest, err := readElement(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		raw = rest
	}
	return out, nil
}

func decodeCDTMap(raw []byte) ([]string, map[string]Value, error) {
	if len(raw) < 4 {
		return nil, nil, fmt.Errorf("map particle: truncated count")
	}
	n := binary.BigEndian.Uint32(raw[:4])
	raw = raw[4:]
	keys := make([]string, 0, n)
	vals := make(map[string]Value, n)
	for i := uint32(0); i < n; i++ {
		kv, rest, err := readElement(raw)
		if err != nil {
			return nil, nil, err
		}
		vv, rest2, err := readElement(rest)
		if err != nil {
			return nil, nil, err
		}
		key := kv.String()
		keys = append(keys, key)
		vals[key] = vv
		raw = rest2
	}
	return keys, vals, nil
}

func readElement(raw []byte) (Value, []byte, error) {
	if len(raw) < 5 {
		return Value{}, nil, fmt.Errorf("element: truncated")
	}
	ptype := ParticleType(raw[0])
	ln := binary.BigEndian.Uint32(raw[1:5])
	raw = raw[5:]
	if uint32(len(raw)) < ln {
		return Value{}, nil, fmt.Errorf("element: truncated payload")
	}
	v, err := decodeParticle(ptype, raw[:ln])
	if err != nil {
		return Value{}, nil, err
	}
	return v, raw[ln:], nil
}
