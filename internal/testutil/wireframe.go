package testutil

import "encoding/binary"

// This file builds raw AS_MSG bytes by hand, independent of the core
// package's own (unexported) encoder, so a test can assert the client
// parses exactly what the wire says rather than round-tripping through the
// client's own writer.

// ProtoFrame prepends the 8-byte proto header (spec.md §4.1: version/type/
// 48-bit size, big-endian) to payload.
func ProtoFrame(msgType byte, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	buf[0] = 2 // protocol version
	buf[1] = msgType
	var sz [8]byte
	binary.BigEndian.PutUint64(sz[:], uint64(len(payload)))
	copy(buf[2:8], sz[2:8])
	copy(buf[8:], payload)
	return buf
}

// AsMsgHeaderOpts names every field of the 22-byte AS_MSG header.
type AsMsgHeaderOpts struct {
	Info1, Info2, Info3, Info4 byte
	ResultCode                 byte
	Generation                 uint32
	RecordTTL                  uint32
	TransactionTTL             uint32
	NFields                    uint16
	NOps                       uint16
}

// AsMsgHeader encodes the 22-byte AS_MSG header (spec.md §4.1).
func AsMsgHeader(o AsMsgHeaderOpts) []byte {
	buf := make([]byte, 22)
	buf[0] = 22
	buf[1] = o.Info1
	buf[2] = o.Info2
	buf[3] = o.Info3
	buf[4] = o.Info4
	buf[5] = o.ResultCode
	binary.BigEndian.PutUint32(buf[6:10], o.Generation)
	binary.BigEndian.PutUint32(buf[10:14], o.RecordTTL)
	binary.BigEndian.PutUint32(buf[14:18], o.TransactionTTL)
	binary.BigEndian.PutUint16(buf[18:20], o.NFields)
	binary.BigEndian.PutUint16(buf[20:22], o.NOps)
	return buf
}

// Field encodes one [len:u32 BE | type:u8 | data] field (spec.md §4.1).
func Field(id byte, data []byte) []byte {
	buf := make([]byte, 5+len(data))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(data)+1))
	buf[4] = id
	copy(buf[5:], data)
	return buf
}

// Op encodes one [op_size:u32 BE | op_type:u8 | particle_type:u8 |
// version:u8 | name_len:u8 | name | particle] operation (spec.md §4.1).
func Op(opType, particleType byte, name string, particle []byte) []byte {
	opSize := 4 + len(name) + len(particle)
	buf := make([]byte, 4+opSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(opSize))
	buf[4] = opType
	buf[5] = particleType
	buf[6] = 0 // version byte, unused
	buf[7] = byte(len(name))
	copy(buf[8:8+len(name)], name)
	copy(buf[8+len(name):], particle)
	return buf
}

// IntegerParticle encodes an 8-byte big-endian integer particle.
func IntegerParticle(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

// StringParticle encodes a string particle (raw UTF-8 bytes, no length
// prefix — the op's name_len/op_size framing already bounds it).
func StringParticle(s string) []byte { return []byte(s) }

// AsMsgReply assembles a single-row AS_MSG reply payload: header, n_fields
// fields, n_ops ops, concatenated and length-counted automatically.
func AsMsgReply(h AsMsgHeaderOpts, fields [][]byte, ops [][]byte) []byte {
	h.NFields = uint16(len(fields))
	h.NOps = uint16(len(ops))
	buf := AsMsgHeader(h)
	for _, f := range fields {
		buf = append(buf, f...)
	}
	for _, o := range ops {
		buf = append(buf, o...)
	}
	return buf
}
