package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// compressPayload wraps a complete AS_MSG payload (header + fields + ops)
// in the MSG_COMPRESSED envelope: an 8-byte big-endian uncompressed size
// followed by zlib-compressed bytes (spec.md §4.1).
func compressPayload(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	var sizePrefix [8]byte
	binary.BigEndian.PutUint64(sizePrefix[:], uint64(len(payload)))
	buf.Write(sizePrefix[:])

	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// decompressPayload is the inverse of compressPayload: it reads the
// 8-byte uncompressed-size prefix, inflates the remainder, and validates
// the inflated length matches the prefix.
func decompressPayload(framed []byte) ([]byte, error) {
	if len(framed) < 8 {
		return nil, newParseError(errorString("compressed frame: shorter than size prefix"), "")
	}
	uncompressedSize := binary.BigEndian.Uint64(framed[:8])
	if uncompressedSize > maxBufferSize {
		return nil, newParseError(errorString("compressed frame: uncompressed size exceeds limit"), "")
	}
	zr, err := zlib.NewReader(bytes.NewReader(framed[8:]))
	if err != nil {
		return nil, newParseError(fmt.Errorf("zlib: %w", err), "")
	}
	defer zr.Close()
	out := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, newParseError(fmt.Errorf("zlib: %w", err), "")
	}
	var extra [1]byte
	if n, _ := io.ReadFull(zr, extra[:]); n > 0 {
		return nil, newParseError(errorString("compressed frame: inflated size exceeds size prefix"), "")
	}
	return out, nil
}
