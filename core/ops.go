package core

import "encoding/binary"

// opType identifies the operation kind for one entry in the op list
// (spec.md §4.1).
type opType byte

const (
	opRead    opType = 1
	opWrite   opType = 2
	opAppend  opType = 4
	opPrepend opType = 5
	opAdd     opType = 6 // INCR
	opTouch   opType = 11
	opDelete  opType = 14
)

// wireOp is one entry in the op list: [op_size:u32 BE | op_type:u8 |
// particle_type:u8 | version:u8 | name_len:u8 | name | particle].
type wireOp struct {
	typ   opType
	name  string
	value Value
}

// writeOp appends one operation. op_size covers everything after the
// op_size field itself (type, particle type, version, name length, name,
// particle), per spec.md §4.1.
func (b *commandBuffer) writeOp(op wireOp) {
	particle := op.value.particleBytes()
	opSize := 4 + len(op.name) + len(particle) // type+ptype+version+namelen bytes = 4
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(opSize))
	b.write(tmp[:])
	b.writeByte(byte(op.typ))
	b.writeByte(byte(op.value.Type()))
	b.writeByte(0) // version, always 0 from the client
	b.writeByte(byte(len(op.name)))
	b.write([]byte(op.name))
	b.write(particle)
}

// parseOps reads n_ops operations starting at raw[0].
func parseOps(raw []byte, n uint16) ([]wireOp, error) {
	ops, _, err := parseOpsCounted(raw, n)
	return ops, err
}

// parseOpsCounted is parseOps plus the number of bytes consumed, needed by
// callers (the multi-row streaming parser) that must advance a cursor past
// exactly this row's ops to find the next row.
func parseOpsCounted(raw []byte, n uint16) ([]wireOp, int, error) {
	out := make([]wireOp, 0, n)
	off := 0
	for i := uint16(0); i < n; i++ {
		if len(raw)-off < 4 {
			return nil, 0, newParseError(errorString("op: truncated op_size"), "")
		}
		opSize := binary.BigEndian.Uint32(raw[off : off+4])
		off += 4
		if uint32(len(raw)-off) < opSize {
			return nil, 0, newParseError(errorString("op: truncated op body"), "")
		}
		body := raw[off : off+int(opSize)]
		off += int(opSize)
		if len(body) < 4 {
			return nil, 0, newParseError(errorString("op: short body"), "")
		}
		typ := opType(body[0])
		ptype := ParticleType(body[1])
		// body[2] is the version byte, unused by the client.
		nameLen := int(body[3])
		if len(body)-4 < nameLen {
			return nil, 0, newParseError(errorString("op: truncated name"), "")
		}
		name := string(body[4 : 4+nameLen])
		particle := body[4+nameLen:]
		v, err := decodeParticle(ptype, particle)
		if err != nil {
			return nil, 0, newParseError(err, "")
		}
		out = append(out, wireOp{typ: typ, name: name, value: v})
	}
	return out, off, nil
}
