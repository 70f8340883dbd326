package core

import (
	"encoding/binary"
	"fmt"
)

// fieldType identifies a field's payload per spec.md §4.1.
type fieldType byte

const (
	fieldNamespace     fieldType = 0
	fieldSetName       fieldType = 1
	fieldKey           fieldType = 2
	fieldRecordVersion fieldType = 3
	fieldDigestRipe    fieldType = 4
	fieldMRTID         fieldType = 5
	fieldMRTDeadline   fieldType = 6
	fieldQueryID       fieldType = 7
	fieldSocketTimeout fieldType = 9
	fieldRecordsPerSec fieldType = 10
	fieldPIDArray      fieldType = 11
	fieldDigestArray   fieldType = 12
	fieldBValArray     fieldType = 13
	fieldIndexRange    fieldType = 14
	fieldUDFPackage    fieldType = 15
	fieldUDFFunction   fieldType = 16
	fieldUDFArgList    fieldType = 17
	fieldUDFOp         fieldType = 18
	fieldFilterExp     fieldType = 19
	fieldBatchIndex    fieldType = 21
)

// writeField appends a single field: [len:u32 BE | type:u8 | data].
// len counts the type byte plus data, per spec.md §4.1.
func (b *commandBuffer) writeField(t fieldType, data []byte) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(data)+1))
	b.write(tmp[:])
	b.writeByte(byte(t))
	b.write(data)
}

func (b *commandBuffer) writeFieldString(t fieldType, s string) {
	b.writeField(t, []byte(s))
}

// writeFieldMRTDeadline writes the one field with mixed endianness on the
// wire: the field's own len/type prefix is big-endian like every other
// field, but the u32 payload inside it is little-endian (spec.md §4.1/§6).
func (b *commandBuffer) writeFieldMRTDeadline(deadline uint32) {
	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], deadline)
	b.writeField(fieldMRTDeadline, payload[:])
}

type wireField struct {
	typ  fieldType
	data []byte
}

// parseFields reads n_fields fields starting at raw[0], returning the
// parsed fields and the number of bytes consumed.
func parseFields(raw []byte, n uint16) ([]wireField, int, error) {
	out := make([]wireField, 0, n)
	off := 0
	for i := uint16(0); i < n; i++ {
		if len(raw)-off < 4 {
			return nil, 0, fmt.Errorf("field %d: truncated length", i)
		}
		flen := binary.BigEndian.Uint32(raw[off : off+4])
		off += 4
		if flen == 0 || uint32(len(raw)-off) < flen {
			return nil, 0, fmt.Errorf("field %d: truncated payload (len=%d)", i, flen)
		}
		typ := fieldType(raw[off])
		data := raw[off+1 : off+int(flen)]
		out = append(out, wireField{typ: typ, data: data})
		off += int(flen)
	}
	return out, off, nil
}

// mrtDeadlineOf extracts the little-endian u32 deadline from a MRT_DEADLINE
// field's payload.
func mrtDeadlineOf(f wireField) (uint32, bool) {
	if f.typ != fieldMRTDeadline || len(f.data) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(f.data), true
}

// recordVersionOf/encodeRecordVersion model the RECORD_VERSION field's
// opaque server-assigned token as a big-endian uint64. The protocol only
// ever needs this token compared for equality (spec.md §4.8's verify step
// sends the version the client observed at read time back to the server,
// which accepts or rejects the key based on whether it still matches) and
// reflected back verbatim, both of which a fixed-width integer satisfies;
// treating it as an 8-byte value rather than reproducing the server's exact
// internal encoding is this client's own simplification, consistent with
// the CDT/BATCH_INDEX framing already documented as self-designed.
func recordVersionOf(f wireField) (uint64, bool) {
	if f.typ != fieldRecordVersion || len(f.data) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(f.data), true
}

func encodeRecordVersion(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}
