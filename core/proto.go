package core

import (
	"encoding/binary"
	"fmt"
	"io"
)

// protoVersion is the version byte for the current key-value message type
// (spec.md §4.1).
const protoVersion = 2

// protoMsgType selects the payload interpretation of a proto-framed
// message.
type protoMsgType byte

const (
	protoTypeAsMsg     protoMsgType = 3
	protoTypeCompressed protoMsgType = 4
	protoTypeAdmin      protoMsgType = 2
)

// protoHeader is the 8-byte frame prefix common to every message: [version:8
// | type:8 | size:48], big-endian (spec.md §4.1/§6).
type protoHeader struct {
	version protoMsgType
	msgType protoMsgType
	size    uint64
}

func encodeProtoHeader(msgType protoMsgType, size uint64) []byte {
	buf := make([]byte, 8)
	buf[0] = protoVersion
	buf[1] = byte(msgType)
	// size is 48 bits, packed into the low 6 bytes alongside version/type.
	var sz [8]byte
	binary.BigEndian.PutUint64(sz[:], size)
	copy(buf[2:8], sz[2:8])
	return buf
}

func decodeProtoHeader(raw [8]byte) protoHeader {
	var sz [8]byte
	copy(sz[2:8], raw[2:8])
	return protoHeader{
		version: protoMsgType(raw[0]),
		msgType: protoMsgType(raw[1]),
		size:    binary.BigEndian.Uint64(sz[:]),
	}
}

// readProtoFrame reads one proto-framed message from r: the 8-byte header
// followed by header.size payload bytes. Payloads larger than
// maxBufferSize are rejected without reading further (spec.md §8 boundary
// behavior).
func readProtoFrame(r io.Reader) (protoHeader, []byte, error) {
	var raw [8]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return protoHeader{}, nil, err
	}
	hdr := decodeProtoHeader(raw)
	if hdr.size > maxBufferSize {
		return protoHeader{}, nil, fmt.Errorf("proto frame: size %d exceeds %d byte limit", hdr.size, maxBufferSize)
	}
	payload := make([]byte, hdr.size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return protoHeader{}, nil, err
	}
	return hdr, payload, nil
}

func writeProtoFrame(w io.Writer, msgType protoMsgType, payload []byte) error {
	hdr := encodeProtoHeader(msgType, uint64(len(payload)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
