package core

import (
	"context"
	"testing"

	"github.com/aerospike-core/client/internal/testutil"
)

// TestQueryStreamsMatchingRecords checks that Query rides the same row
// parser Scan uses: a two-row stream (second row carrying info3.LAST) comes
// back as two handler calls, in order.
func TestQueryStreamsMatchingRecords(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()

	row1 := testutil.AsMsgHeader(testutil.AsMsgHeaderOpts{ResultCode: 0, NOps: 1})
	row1Op := testutil.Op(byte(opWrite), byte(ParticleInteger), "age", testutil.IntegerParticle(30))
	row2 := testutil.AsMsgHeader(testutil.AsMsgHeaderOpts{ResultCode: 0, Info3: 1, NOps: 1})
	row2Op := testutil.Op(byte(opWrite), byte(ParticleInteger), "age", testutil.IntegerParticle(31))

	payload := append(append([]byte{}, row1...), row1Op...)
	payload = append(payload, row2...)
	payload = append(payload, row2Op...)
	fn.Enqueue(testutil.ProtoFrame(3, payload))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	stmt := Statement{
		Namespace: "test",
		Set:       "demo",
		BinNames:  []string{"age"},
		IndexBin:  "age",
		Begin:     IntegerValue(18),
		End:       IntegerValue(65),
	}

	var got []int64
	err := Query(context.Background(), node, DefaultScanPolicy(), stmt, func(rec Record) error {
		v, _ := rec.Bins["age"].Int()
		got = append(got, v)
		return nil
	}, CommandDeps{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0] != 30 || got[1] != 31 {
		t.Fatalf("got %v, want [30 31]", got)
	}
}

// TestEncodeIndexRangeRoundTripsBeginEnd pins encodeIndexRange's own layout
// (num_ranges, bin name, begin/end particles) so a change to the framing
// shows up here instead of only inside a live query.
func TestEncodeIndexRangeRoundTripsBeginEnd(t *testing.T) {
	stmt := Statement{IndexBin: "age", Begin: IntegerValue(18), End: IntegerValue(65)}
	data := encodeIndexRange(stmt)

	if data[0] != 1 {
		t.Fatalf("num_ranges = %d, want 1", data[0])
	}
	if data[1] != byte(len("age")) {
		t.Fatalf("bin_name_len = %d, want %d", data[1], len("age"))
	}
	off := 2 + int(data[1])
	if string(data[2:off]) != "age" {
		t.Fatalf("bin name = %q, want %q", data[2:off], "age")
	}
	if ParticleType(data[off]) != ParticleInteger {
		t.Fatalf("begin particle type = %d, want ParticleInteger", data[off])
	}
}

// TestQueryWithoutIndexBinScansPlainly covers Query's scan-degradation
// path: no IndexBin means no INDEX_RANGE field, so the request behaves like
// an ordinary Scan.
func TestQueryWithoutIndexBinScansPlainly(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(
		testutil.AsMsgHeaderOpts{ResultCode: 0, Info3: 1}, nil, nil)))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	stmt := Statement{Namespace: "test", Set: "demo"}
	called := false
	err := Query(context.Background(), node, DefaultScanPolicy(), stmt, func(rec Record) error {
		called = true
		return nil
	}, CommandDeps{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if called {
		t.Fatalf("handler called for a row-less (info3.LAST only) stream")
	}
}
