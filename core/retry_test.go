package core

import (
	"context"
	"testing"

	"github.com/aerospike-core/client/internal/testutil"
)

// TestWriteCommandRetriesOnTimeoutThenSucceeds exercises the retry table's
// TIMEOUT row (spec.md §4.4): a server-reported TIMEOUT is retry-eligible,
// so a second attempt against the same node should still succeed.
func TestWriteCommandRetriesOnTimeoutThenSucceeds(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(
		testutil.AsMsgHeaderOpts{ResultCode: byte(ResultTimeout)}, nil, nil)))
	fn.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(testutil.AsMsgHeaderOpts{ResultCode: 0}, nil, nil)))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	key, err := NewKey("test", "demo", StringValue("retry-me"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	policy := DefaultWritePolicy()
	policy.MaxRetries = 2
	wc := NewWriteCommand(directCluster{node: node}, policy, key,
		map[string]Value{"name": StringValue("ada")}, CommandDeps{})
	if err := wc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v, want the second attempt to succeed", err)
	}
}

// TestWriteCommandExhaustsRetriesOnRepeatedTimeout confirms a command gives
// up once MaxRetries attempts have all failed, surfacing the server error.
func TestWriteCommandExhaustsRetriesOnRepeatedTimeout(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	for i := 0; i < 2; i++ {
		fn.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(
			testutil.AsMsgHeaderOpts{ResultCode: byte(ResultTimeout)}, nil, nil)))
	}

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	key, err := NewKey("test", "demo", StringValue("retry-exhaust"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	policy := DefaultWritePolicy()
	policy.MaxRetries = 1
	wc := NewWriteCommand(directCluster{node: node}, policy, key,
		map[string]Value{"name": StringValue("ada")}, CommandDeps{})
	err = wc.Execute(context.Background())
	if err == nil {
		t.Fatalf("expected an error once retries are exhausted")
	}
	ae, ok := err.(*AerospikeError)
	if !ok {
		t.Fatalf("expected *AerospikeError, got %T", err)
	}
	if ae.Code != ResultTimeout {
		t.Fatalf("Code = %v, want ResultTimeout", ae.Code)
	}
}
