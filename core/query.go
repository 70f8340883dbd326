package core

import "context"

// Statement describes a secondary-index query: the same namespace/set/bin
// scoping as a scan, plus a single equality-or-range predicate on one
// indexed bin (spec.md §4.1's INDEX_RANGE field; spec.md §4.6 groups scan
// and query under the same streaming contract). An empty IndexBin degrades
// to a plain scan of Set (Begin/End are then ignored), which is why Query is built
// on top of the same scanCommand rather than a separate command type.
type Statement struct {
	Namespace string
	Set       string
	BinNames  []string
	IndexBin  string
	Begin     Value
	End       Value
}

// encodeIndexRange packs one range predicate into the INDEX_RANGE field's
// payload: [num_ranges:u8 | bin_name_len:u8 | bin_name | begin particle_type:u8
// | begin particle_len:u32 BE | begin particle | end particle_type:u8 | end
// particle_len:u32 BE | end particle]. Like core/batch.go's BATCH_INDEX
// framing and core/cdt.go's list/map framing, this is this client's own
// positional model of the protocol (one range, reusing Value.particleBytes()
// for the endpoints) rather than a byte-exact reproduction of the historical
// client's index-range layout.
func encodeIndexRange(stmt Statement) []byte {
	b := newCommandBuffer(32)
	b.writeByte(1) // num_ranges: this client only ever emits one
	b.writeByte(byte(len(stmt.IndexBin)))
	b.write([]byte(stmt.IndexBin))
	writeIndexParticle(b, stmt.Begin)
	writeIndexParticle(b, stmt.End)
	return b.bytes()
}

func writeIndexParticle(b *commandBuffer, v Value) {
	particle := v.particleBytes()
	b.writeByte(byte(v.Type()))
	var tmp [4]byte
	for i := 0; i < 4; i++ {
		tmp[i] = byte(len(particle) >> uint(24-8*i))
	}
	b.write(tmp[:])
	b.write(particle)
}

// Query streams every record matching stmt's predicate from node, over the
// same row parser Scan uses (spec.md §4.6). An empty stmt.IndexBin (both
// Begin and End left as the zero Value) runs as a plain scan of stmt.Set:
// the server-side distinction between "no predicate" and "match everything"
// is INDEX_RANGE's absence, which this mirrors by only attaching the field
// when IndexBin is set.
func Query(ctx context.Context, node *Node, policy ScanPolicy, stmt Statement, handler ScanHandler, deps CommandDeps) error {
	cmd := &scanCommand{
		base:      newBaseCommand(fixedNodeCluster{node: node}, policy.Policy, Partition{Namespace: stmt.Namespace}, deps.Clock, deps.Metrics, deps.Log),
		namespace: stmt.Namespace,
		set:       stmt.Set,
		binNames:  stmt.BinNames,
		policy:    policy,
		handler:   handler,
		valid:     newStreamValid(),
	}
	if stmt.IndexBin != "" {
		indexRange := encodeIndexRange(stmt)
		cmd.indexRange = indexRange
	}
	return cmd.Execute(ctx)
}
