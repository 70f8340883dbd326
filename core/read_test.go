package core

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/aerospike-core/client/internal/testutil"
)

// directCluster hands every command straight to one already-dialed node,
// ignoring partition routing entirely — the test-only analogue of
// scan.go's fixedNodeCluster for exercising single-key commands without a
// real topology layer.
type directCluster struct{ node *Node }

func (d directCluster) NodeFor(Partition) (*Node, error) { return d.node, nil }

func newTestNode(t *testing.T, addr string) *Node {
	t.Helper()
	dialer := NewDialer(time.Second, time.Second)
	return NewNode(addr, addr, dialer, PoolConfig{Clock: clock.New()})
}

func TestReadCommandFound(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()

	reply := testutil.AsMsgReply(
		testutil.AsMsgHeaderOpts{ResultCode: 0, Generation: 1},
		nil,
		[][]byte{testutil.Op(byte(opWrite), byte(ParticleString), "name", testutil.StringParticle("ada"))},
	)
	fn.Enqueue(testutil.ProtoFrame(3, reply))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	key, err := NewKey("test", "demo", StringValue("k1"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	rc := NewReadCommand(directCluster{node: node}, DefaultPolicy(), key, nil, CommandDeps{})
	if err := rc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rc.Record == nil {
		t.Fatalf("expected a record")
	}
	if got := rc.Record.Bins["name"].String(); got != "ada" {
		t.Fatalf("bin name = %q, want ada", got)
	}
	if rc.Record.Generation != 1 {
		t.Fatalf("generation = %d, want 1", rc.Record.Generation)
	}
}

func TestReadCommandNotFound(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()

	reply := testutil.AsMsgReply(testutil.AsMsgHeaderOpts{ResultCode: byte(ResultKeyNotFound)}, nil, nil)
	fn.Enqueue(testutil.ProtoFrame(3, reply))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	key, err := NewKey("test", "demo", StringValue("missing"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	rc := NewReadCommand(directCluster{node: node}, DefaultPolicy(), key, nil, CommandDeps{})
	if err := rc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rc.Record != nil {
		t.Fatalf("expected nil record for KEY_NOT_FOUND_ERROR")
	}
}
