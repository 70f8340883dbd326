package core

import (
	"context"
	"testing"

	"github.com/aerospike-core/client/internal/testutil"
)

func TestWriteCommandSuccess(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(testutil.AsMsgHeaderOpts{ResultCode: 0}, nil, nil)))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	key, err := NewKey("test", "demo", StringValue("k1"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	wc := NewWriteCommand(directCluster{node: node}, DefaultWritePolicy(), key,
		map[string]Value{"name": StringValue("ada")}, CommandDeps{})
	if err := wc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestWriteCommandServerError(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(
		testutil.AsMsgHeaderOpts{ResultCode: byte(ResultParameterError)}, nil, nil)))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	key, err := NewKey("test", "demo", StringValue("k2"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	policy := DefaultWritePolicy()
	policy.MaxRetries = 0
	wc := NewWriteCommand(directCluster{node: node}, policy, key,
		map[string]Value{"name": StringValue("ada")}, CommandDeps{})
	err = wc.Execute(context.Background())
	if err == nil {
		t.Fatalf("expected an error for PARAMETER_ERROR")
	}
	ae, ok := err.(*AerospikeError)
	if !ok {
		t.Fatalf("expected *AerospikeError, got %T", err)
	}
	if ae.Code != ResultParameterError {
		t.Fatalf("Code = %v, want ResultParameterError", ae.Code)
	}
	if ae.InDoubt {
		t.Fatalf("InDoubt = true, want false: PARAMETER_ERROR is a clean, definitive rejection")
	}
}

// TestWriteCommandTimeoutIsInDoubt covers the other half of spec.md's
// in-doubt rule: once a request byte stream has been sent, a TIMEOUT gives
// no proof either way, so it must be reported in-doubt.
func TestWriteCommandTimeoutIsInDoubt(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(
		testutil.AsMsgHeaderOpts{ResultCode: byte(ResultTimeout)}, nil, nil)))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	key, err := NewKey("test", "demo", StringValue("k3"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	policy := DefaultWritePolicy()
	policy.MaxRetries = 0
	wc := NewWriteCommand(directCluster{node: node}, policy, key,
		map[string]Value{"name": StringValue("ada")}, CommandDeps{})
	err = wc.Execute(context.Background())
	if err == nil {
		t.Fatalf("expected an error for TIMEOUT")
	}
	ae, ok := err.(*AerospikeError)
	if !ok {
		t.Fatalf("expected *AerospikeError, got %T", err)
	}
	if !ae.InDoubt {
		t.Fatalf("InDoubt = false, want true: a post-send TIMEOUT proves nothing")
	}
}
