package core

import (
	"context"
	"testing"

	"github.com/aerospike-core/client/internal/testutil"
)

// splitOnRetryCluster routes the first groupBatchByNode pass (the initial
// attempt, one NodeFor call per distinct key) entirely to nodeA, then
// routes every later pass (a retry's fresh re-fan-out) with the first key
// still on nodeA and the second on nodeB — simulating a partition map
// change between the initial attempt and a retry.
type splitOnRetryCluster struct {
	calls        *int
	nodeA, nodeB *Node
}

func (s splitOnRetryCluster) NodeFor(Partition) (*Node, error) {
	*s.calls++
	if *s.calls <= 3 {
		return s.nodeA, nil
	}
	return s.nodeB, nil
}

func mustKey(t *testing.T, ns, set, userKey string) Key {
	t.Helper()
	k, err := NewKey(ns, set, StringValue(userKey))
	if err != nil {
		t.Fatalf("NewKey(%s): %v", userKey, err)
	}
	return k
}

func TestGroupBatchByNodeCollapsesDuplicateKeys(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	node := newTestNode(t, fn.Addr())
	defer node.Close()

	k1 := mustKey(t, "test", "demo", "dup")
	k2 := mustKey(t, "test", "demo", "unique")
	keys := []Key{k1, k2, k1} // k1 requested twice, at offsets 0 and 2

	nodes, err := groupBatchByNode(directCluster{node: node}, keys, ReplicaMaster)
	if err != nil {
		t.Fatalf("groupBatchByNode: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected one BatchNode (single routing target), got %d", len(nodes))
	}
	if len(nodes[0].entries) != 2 {
		t.Fatalf("expected 2 distinct key entries, got %d", len(nodes[0].entries))
	}

	var dupEntry *batchKeyEntry
	for _, e := range nodes[0].entries {
		if e.key.Equal(k1) {
			dupEntry = e
		}
	}
	if dupEntry == nil {
		t.Fatalf("did not find the duplicated key's entry")
	}
	var offsets []int
	for {
		off, ok := dupEntry.offsets.Next()
		if !ok {
			break
		}
		offsets = append(offsets, off)
	}
	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != 2 {
		t.Fatalf("expected offsets [0 2] for the duplicated key, got %v", offsets)
	}
}

func TestBatchGetPositionalOrdering(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()

	// Two distinct keys fold to two streamed rows in first-seen order.
	row1 := testutil.AsMsgHeader(testutil.AsMsgHeaderOpts{ResultCode: 0, NOps: 1})
	row1Op := testutil.Op(byte(opWrite), byte(ParticleInteger), "v", testutil.IntegerParticle(1))
	row2 := testutil.AsMsgHeader(testutil.AsMsgHeaderOpts{ResultCode: 0, Info3: 1, NOps: 1}) // info3.LAST
	row2Op := testutil.Op(byte(opWrite), byte(ParticleInteger), "v", testutil.IntegerParticle(2))

	payload := append(append([]byte{}, row1...), row1Op...)
	payload = append(payload, row2...)
	payload = append(payload, row2Op...)
	fn.Enqueue(testutil.ProtoFrame(3, payload))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	k1 := mustKey(t, "test", "demo", "one")
	k2 := mustKey(t, "test", "demo", "two")
	keys := []Key{k1, k2, k1}

	results, err := BatchGet(context.Background(), directCluster{node: node}, DefaultBatchPolicy(), keys, nil, CommandDeps{})
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 positional results, got %d", len(results))
	}
	if results[0].Record == nil || results[2].Record == nil {
		t.Fatalf("expected both offsets of the duplicated key to carry a record")
	}
	if got, _ := results[0].Record.Bins["v"].Int(); got != 1 {
		t.Fatalf("offset 0 bin v = %d, want 1", got)
	}
	if got, _ := results[2].Record.Bins["v"].Int(); got != 1 {
		t.Fatalf("offset 2 (duplicate of offset 0's key) bin v = %d, want 1", got)
	}
	if got, _ := results[1].Record.Bins["v"].Int(); got != 2 {
		t.Fatalf("offset 1 bin v = %d, want 2", got)
	}
}

// TestBatchGetRetrySplitDoesNotDropOverflowNode exercises prepareRetry's
// re-fan-out: the initial attempt groups both keys onto one node, that
// node times out, and the retry's fresh grouping splits the two keys
// across two different nodes. Both keys must still come back with their
// record (and their own error, had one occurred) instead of the second
// node's share being silently dropped.
func TestBatchGetRetrySplitDoesNotDropOverflowNode(t *testing.T) {
	fnA := testutil.StartFakeNode(t)
	defer fnA.Close()
	fnB := testutil.StartFakeNode(t)
	defer fnB.Close()

	// Initial attempt: one request carrying both keys, answered with a
	// single TIMEOUT header (retryable per spec.md §4.4).
	fnA.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(
		testutil.AsMsgHeaderOpts{ResultCode: byte(ResultTimeout)}, nil, nil)))
	// Retry: nodeA now owns only k1 (its one row carries info3.LAST).
	fnA.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(
		testutil.AsMsgHeaderOpts{ResultCode: 0, Info3: 1},
		nil,
		[][]byte{testutil.Op(byte(opWrite), byte(ParticleInteger), "v", testutil.IntegerParticle(1))},
	)))
	// Retry's overflow: nodeB owns k2 (its one row carries info3.LAST).
	fnB.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(
		testutil.AsMsgHeaderOpts{ResultCode: 0, Info3: 1},
		nil,
		[][]byte{testutil.Op(byte(opWrite), byte(ParticleInteger), "v", testutil.IntegerParticle(2))},
	)))

	nodeA := newTestNode(t, fnA.Addr())
	defer nodeA.Close()
	nodeB := newTestNode(t, fnB.Addr())
	defer nodeB.Close()

	calls := 0
	cluster := splitOnRetryCluster{calls: &calls, nodeA: nodeA, nodeB: nodeB}

	k1 := mustKey(t, "test", "demo", "one")
	k2 := mustKey(t, "test", "demo", "two")

	policy := DefaultBatchPolicy()
	policy.MaxRetries = 1
	results, err := BatchGet(context.Background(), cluster, policy, []Key{k1, k2}, nil, CommandDeps{})
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 positional results, got %d", len(results))
	}
	if results[0].Record == nil {
		t.Fatalf("expected k1's record to survive the retry split, got nil with err %v", results[0].Err)
	}
	if got, _ := results[0].Record.Bins["v"].Int(); got != 1 {
		t.Fatalf("k1 bin v = %d, want 1", got)
	}
	if results[1].Record == nil {
		t.Fatalf("expected k2's record from the overflow node, got nil with err %v", results[1].Err)
	}
	if got, _ := results[1].Record.Bins["v"].Int(); got != 2 {
		t.Fatalf("k2 bin v = %d, want 2", got)
	}
}
