package core

import (
	"io"
	"sync/atomic"
)

// streamRow is one decoded record from a streaming response (spec.md §4.6
// step 6: "parse n_fields fields ... parse n_ops operations into a
// record").
type streamRow struct {
	resultCode ResultCode
	generation uint32
	expiration uint32
	fields     []wireField
	ops        []wireOp
}

// rowHandler processes one row. Returning an error aborts the stream with
// that error.
type rowHandler func(row streamRow) error

// streamValid is the cooperative early-termination flag scan/query readers
// check between rows (spec.md §4.6: "honor a valid flag the caller may
// clear to terminate early"). The zero value is valid.
type streamValid struct {
	v atomic.Bool
}

func newStreamValid() *streamValid {
	s := &streamValid{}
	s.v.Store(true)
	return s
}

func (s *streamValid) stop()         { s.v.Store(false) }
func (s *streamValid) isValid() bool { return s.v.Load() }

// ErrStreamTerminated is raised when a caller clears the valid flag mid
// stream (spec.md §4.6's "dedicated terminated-error").
var ErrStreamTerminated = &AerospikeError{Kind: KindCancelled, Code: ResultClientCancelled, Cause: errorString("stream terminated by caller")}

// runStream reads proto frames from r until a row with info3.LAST is
// observed, decoding each AS_MSG-shaped row inside a frame's payload and
// invoking handler, per spec.md §4.6's parser contract.
func runStream(r io.Reader, valid *streamValid, handler rowHandler) error {
	for {
		hdr, payload, err := readProtoFrame(r)
		if err != nil {
			return newConnectionError(err, "", 0)
		}
		if hdr.msgType == protoTypeCompressed {
			payload, err = decompressPayload(payload)
			if err != nil {
				return err
			}
		}
		done, err := consumeFramePayload(payload, valid, handler)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// consumeFramePayload walks every row packed into one frame's payload,
// returning done=true once a row with info3.LAST is seen. A LAST row that
// carries fields or ops is handed to handler first; a bare LAST row (no
// fields, no ops) only ends the stream and never reaches handler.
func consumeFramePayload(payload []byte, valid *streamValid, handler rowHandler) (done bool, err error) {
	cursor := 0
	for cursor < len(payload) {
		if valid != nil && !valid.isValid() {
			return false, ErrStreamTerminated
		}
		rowHdr, err := decodeAsMsgHeader(payload[cursor:])
		if err != nil {
			return false, err
		}
		off := cursor + asMsgHeaderLen
		fields, consumed, ferr := parseFields(payload[off:], rowHdr.nFields)
		if ferr != nil {
			return false, newParseError(ferr, "")
		}
		off += consumed
		ops, opLen, operr := parseOpsCounted(payload[off:], rowHdr.nOps)
		if operr != nil {
			return false, operr
		}
		off += opLen
		cursor = off

		code := ResultCode(rowHdr.resultCode)
		if code != ResultOK && code != ResultKeyNotFound {
			return false, newServerError(code, "", 0)
		}
		if rowHdr.info3&info3Last != 0 && rowHdr.nFields == 0 && rowHdr.nOps == 0 {
			return true, nil
		}
		row := streamRow{resultCode: code, generation: rowHdr.generation, expiration: rowHdr.recordTTL, fields: fields, ops: ops}
		if err := handler(row); err != nil {
			return false, err
		}
		if rowHdr.info3&info3Last != 0 {
			return true, nil
		}
	}
	return false, nil
}

// recordFromRow builds a Record from a streamed row's fields/ops, applying
// the multi-valued-bin collapse spec.md §4.5 describes for Operate/UDF
// responses and reused here for scan/query/batch rows.
func recordFromRow(namespace string, row streamRow) Record {
	var set string
	var digest Digest
	for _, f := range row.fields {
		switch f.typ {
		case fieldSetName:
			set = string(f.data)
		case fieldDigestRipe:
			copy(digest[:], f.data)
		}
	}
	acc := newBinAccumulator()
	for _, op := range row.ops {
		acc.add(op.name, op.value)
	}
	return Record{
		Key:        NewKeyFromDigest(namespace, set, digest),
		Bins:       acc.bins(),
		Generation: row.generation,
		Expiration: row.expiration,
	}
}
