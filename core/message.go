package core

import "io"

// buildAsMsgPayload assembles one AS_MSG payload: the 22-byte header
// followed by fields then ops, per spec.md §4.1. h.nFields/h.nOps are
// overwritten from the slice lengths so callers never have to keep them in
// sync by hand.
func buildAsMsgPayload(h asMsgHeader, fields []wireField, ops []wireOp) []byte {
	h.nFields = uint16(len(fields))
	h.nOps = uint16(len(ops))
	b := newCommandBuffer(256)
	b.writeAsMsgHeader(h)
	for _, f := range fields {
		b.writeField(f.typ, f.data)
	}
	for _, op := range ops {
		b.writeOp(op)
	}
	return b.bytes()
}

// writeMessage builds an AS_MSG payload and frames it (compressing when the
// policy requests it and the payload is large enough to be worth it,
// spec.md §4.1's MSG_COMPRESSED envelope) into c.buf, ready to be written to
// the wire by the retry loop.
func writeMessage(c *baseCommand, h asMsgHeader, fields []wireField, ops []wireOp) error {
	payload := buildAsMsgPayload(h, fields, ops)
	msgType := protoTypeAsMsg
	if c.policy.Compress && len(payload) > compressionThreshold {
		compressed, err := compressPayload(payload)
		if err != nil {
			return newParseError(err, nodeName(c.node))
		}
		payload = compressed
		msgType = protoTypeCompressed
	}
	c.buf.write(encodeProtoHeader(msgType, uint64(len(payload))))
	c.buf.write(payload)
	return nil
}

// compressionThreshold is the size below which compressing would only add
// overhead; chosen well under maxBufferSize so small single-key requests
// never pay the zlib setup cost.
const compressionThreshold = 128

// keyFields returns the standard NAMESPACE/SET/DIGEST triple every command
// addressing a single key sends (spec.md §4.1). The caller's original user
// key is never echoed back on the wire; the digest alone identifies it.
func keyFields(key Key) []wireField {
	d := key.Digest()
	return []wireField{
		{typ: fieldNamespace, data: []byte(key.Namespace)},
		{typ: fieldSetName, data: []byte(key.Set)},
		{typ: fieldDigestRipe, data: d[:]},
	}
}

// txnFields returns the MRT_ID/MRT_DEADLINE fields a command belonging to a
// Txn must tag its request with (spec.md §4.8), or nil outside a Txn.
func txnFields(txn *Txn) []wireField {
	if txn == nil {
		return nil
	}
	fields := []wireField{{typ: fieldMRTID, data: beUint64(txn.ID())}}
	if deadline := txn.deadlineSeconds(); deadline != 0 {
		var payload [4]byte
		writeLE32(payload[:], deadline)
		fields = append(fields, wireField{typ: fieldMRTDeadline, data: payload[:]})
	}
	return fields
}

// readAsMsgReply reads one complete AS_MSG response frame from r
// (decompressing MSG_COMPRESSED envelopes transparently) and splits it into
// header, fields and ops.
func readAsMsgReply(r io.Reader) (asMsgHeader, []wireField, []wireOp, error) {
	hdr, payload, err := readProtoFrame(r)
	if err != nil {
		return asMsgHeader{}, nil, nil, newConnectionError(err, "", 0)
	}
	if hdr.msgType == protoTypeCompressed {
		payload, err = decompressPayload(payload)
		if err != nil {
			return asMsgHeader{}, nil, nil, err
		}
	}
	msgHeader, err := decodeAsMsgHeader(payload)
	if err != nil {
		return asMsgHeader{}, nil, nil, err
	}
	off := asMsgHeaderLen
	fields, consumed, ferr := parseFields(payload[off:], msgHeader.nFields)
	if ferr != nil {
		return asMsgHeader{}, nil, nil, newParseError(ferr, "")
	}
	off += consumed
	ops, operr := parseOps(payload[off:], msgHeader.nOps)
	if operr != nil {
		return asMsgHeader{}, nil, nil, operr
	}
	return msgHeader, fields, ops, nil
}
