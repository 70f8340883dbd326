package core

import (
	"context"
	"testing"

	"github.com/aerospike-core/client/internal/testutil"
)

func TestAbortWithNoWritesIsNoOp(t *testing.T) {
	txn := NewTxn(10, "test")
	// No writes recorded and monitorExists is false, so Abort should never
	// need to dial a node at all — a nil Cluster is safe here.
	roll := NewTxnRoll(nil, CommandDeps{})
	status, err := roll.Abort(context.Background(), txn, DefaultBatchPolicy())
	if err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if status != AbortOK {
		t.Fatalf("status = %v, want AbortOK", status)
	}
	if txn.State() != TxnAborted {
		t.Fatalf("state = %v, want ABORTED", txn.State())
	}
}

func TestAbortRollsBackEachWrittenKey(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(testutil.ProtoFrame(3, testutil.AsMsgReply(testutil.AsMsgHeaderOpts{ResultCode: 0}, nil, nil)))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	txn := NewTxn(11, "test")
	k := mustKey(t, "test", "demo", "rollback-me")
	if _, err := txn.recordWrite(k); err != nil {
		t.Fatalf("recordWrite: %v", err)
	}

	roll := NewTxnRoll(directCluster{node: node}, CommandDeps{})
	status, err := roll.Abort(context.Background(), txn, DefaultBatchPolicy())
	if err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if status != AbortOK {
		t.Fatalf("status = %v, want AbortOK", status)
	}
	if txn.State() != TxnAborted {
		t.Fatalf("state = %v, want ABORTED", txn.State())
	}
}
