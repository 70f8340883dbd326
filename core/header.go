package core

import "encoding/binary"

// asMsgHeaderLen is the fixed length the header field of the message
// header itself encodes (spec.md §4.1: "header_len(22)").
const asMsgHeaderLen = 22

// info1 read flags.
const (
	info1Read         byte = 1 << 0
	info1GetAll       byte = 1 << 1
	info1Batch        byte = 1 << 3
	info1NoBinData    byte = 1 << 5
	info1ReadModeAP   byte = 1 << 6
	info1Compress     byte = 1 << 7
)

// info2 write flags.
const (
	info2Write         byte = 1 << 0
	info2Delete        byte = 1 << 1
	info2Generation    byte = 1 << 2
	info2GenGT         byte = 1 << 3
	info2DurableDelete byte = 1 << 4
	info2CreateOnly    byte = 1 << 5
	info2RespondAllOps byte = 1 << 6
)

// info3 meta flags.
const (
	info3Last            byte = 1 << 0
	info3CommitMaster    byte = 1 << 1
	info3UpdateOnly      byte = 1 << 3
	info3CreateOrReplace byte = 1 << 4
	info3ReplaceOnly     byte = 1 << 5
	info3LinearizeRead   byte = 1 << 6
)

// info4 MRT flags.
const (
	info4MRTRollForward byte = 1 << 0
	info4MRTRollBack    byte = 1 << 1
	info4MRTOnLockOnly  byte = 1 << 2
)

// asMsgHeader is the 22-byte message header prefixing every AS_MSG payload
// (spec.md §4.1).
type asMsgHeader struct {
	info1, info2, info3, info4 byte
	resultCode                 byte
	generation                 uint32
	recordTTL                  uint32
	transactionTTL             uint32
	nFields                    uint16
	nOps                       uint16
}

func (b *commandBuffer) writeAsMsgHeader(h asMsgHeader) {
	b.writeByte(asMsgHeaderLen)
	b.writeByte(h.info1)
	b.writeByte(h.info2)
	b.writeByte(h.info3)
	b.writeByte(h.info4) // "unused" in the base 22-byte layout, repurposed for MRT flags
	b.writeByte(h.resultCode)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], h.generation)
	b.write(tmp[:])
	binary.BigEndian.PutUint32(tmp[:], h.recordTTL)
	b.write(tmp[:])
	binary.BigEndian.PutUint32(tmp[:], h.transactionTTL)
	b.write(tmp[:])
	var tmp2 [2]byte
	binary.BigEndian.PutUint16(tmp2[:], h.nFields)
	b.write(tmp2[:])
	binary.BigEndian.PutUint16(tmp2[:], h.nOps)
	b.write(tmp2[:])
}

func decodeAsMsgHeader(raw []byte) (asMsgHeader, error) {
	if len(raw) < asMsgHeaderLen {
		return asMsgHeader{}, newParseError(errorString("AS_MSG header: fewer than 22 bytes"), "")
	}
	return asMsgHeader{
		info1:          raw[1],
		info2:          raw[2],
		info3:          raw[3],
		info4:          raw[4],
		resultCode:     raw[5],
		generation:     binary.BigEndian.Uint32(raw[6:10]),
		recordTTL:      binary.BigEndian.Uint32(raw[10:14]),
		transactionTTL: binary.BigEndian.Uint32(raw[14:18]),
		nFields:        binary.BigEndian.Uint16(raw[18:20]),
		nOps:           binary.BigEndian.Uint16(raw[20:22]),
	}, nil
}

type errorString string

func (e errorString) Error() string { return string(e) }
