package core

import (
	"context"
	"testing"

	"github.com/aerospike-core/client/internal/testutil"
)

func twoRecordScanPayload() []byte {
	row1 := testutil.AsMsgHeader(testutil.AsMsgHeaderOpts{ResultCode: 0, NOps: 1})
	row1Op := testutil.Op(byte(opRead), byte(ParticleString), "name", testutil.StringParticle("ada"))
	row2 := testutil.AsMsgHeader(testutil.AsMsgHeaderOpts{ResultCode: 0, Info3: 1, NOps: 1})
	row2Op := testutil.Op(byte(opRead), byte(ParticleString), "name", testutil.StringParticle("bea"))

	payload := append(append([]byte{}, row1...), row1Op...)
	payload = append(payload, row2...)
	payload = append(payload, row2Op...)
	return payload
}

func TestScanStreamsAllRecordsUntilLast(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(testutil.ProtoFrame(3, twoRecordScanPayload()))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	var names []string
	handler := func(rec Record) error {
		names = append(names, rec.Bins["name"].String())
		return nil
	}

	err := Scan(context.Background(), []*Node{node}, DefaultScanPolicy(), "test", "demo", nil, handler, CommandDeps{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(names) != 2 || names[0] != "ada" || names[1] != "bea" {
		t.Fatalf("expected [ada bea], got %v", names)
	}
}

func TestScanStopsAtMaxRecords(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(testutil.ProtoFrame(3, twoRecordScanPayload()))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	policy := DefaultScanPolicy()
	policy.MaxRecords = 1

	var count int
	handler := func(rec Record) error {
		count++
		return nil
	}

	err := Scan(context.Background(), []*Node{node}, policy, "test", "demo", nil, handler, CommandDeps{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 record delivered before the MaxRecords stop, got %d", count)
	}
}
