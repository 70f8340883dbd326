package core

import "encoding/binary"

func beUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func writeLE32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}
