package core

import (
	"context"
	"encoding/binary"
)

// txnVerifyEntry pairs a read key with the version observed for it, the
// unit the verify step checks against the server (spec.md §4.8 step 1).
type txnVerifyEntry struct {
	key     Key
	version uint64
}

// groupVerifyByNode mirrors groupBatchByNode but carries a version alongside
// each key, since verify entries are not a deduplicated "keys" list — a
// Txn's reads map is already deduplicated by digest.
func groupVerifyByNode(cluster Cluster, entries []txnReadEntry, replica ReplicaPolicy) ([]*verifyNode, error) {
	nodesByID := make(map[string]*verifyNode)
	var nodes []*verifyNode
	for _, e := range entries {
		partition := PartitionForRead(e.key, replica)
		node, err := cluster.NodeFor(partition)
		if err != nil {
			return nil, err
		}
		vn, ok := nodesByID[node.String()]
		if !ok {
			vn = &verifyNode{node: node}
			nodesByID[node.String()] = vn
			nodes = append(nodes, vn)
		}
		vn.entries = append(vn.entries, txnVerifyEntry{key: e.key, version: e.version})
	}
	return nodes, nil
}

type verifyNode struct {
	node    *Node
	entries []txnVerifyEntry
}

// verifyTxnReads batch-checks every (key, version) txn observed at read time
// against the server, returning one BatchRecordResult per entry (Err set
// when the version no longer matches, Record always nil) plus the first
// error encountered, per spec.md §4.8 step 1.
func verifyTxnReads(ctx context.Context, cluster Cluster, policy BatchPolicy, txn *Txn, deps CommandDeps) ([]BatchRecordResult, error) {
	entries := txn.readSnapshot()
	results := make([]BatchRecordResult, len(entries))
	for i, e := range entries {
		results[i].Key = e.key
	}
	if len(entries) == 0 {
		return results, nil
	}
	nodes, err := groupVerifyByNode(cluster, entries, policy.Replica)
	if err != nil {
		return nil, err
	}

	indexOf := make(map[Digest]int, len(entries))
	for i, e := range entries {
		indexOf[e.key.Digest()] = i
	}

	for _, vn := range nodes {
		cmd := newTxnVerifyCommand(cluster, policy, vn, deps)
		err := cmd.Execute(ctx)
		for i, e := range vn.entries {
			pos := indexOf[e.key.Digest()]
			if err != nil {
				results[pos].Err = err
				continue
			}
			results[pos].Err = cmd.mismatchAt(i)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// txnVerifyCommand is the per-node verify request: one frame carrying every
// (digest, version) pair this node owns, one streamed row of result codes in
// reply (self-designed framing, same justification as core/batch.go's
// BATCH_INDEX payload).
type txnVerifyCommand struct {
	base *baseCommand

	vn       *verifyNode
	mismatch []error
}

func newTxnVerifyCommand(cluster Cluster, policy BatchPolicy, vn *verifyNode, deps CommandDeps) *txnVerifyCommand {
	partition := Partition{Namespace: vn.entries[0].key.Namespace, Replica: policy.Replica}
	return &txnVerifyCommand{
		base:     newBaseCommand(cluster, policy.Policy, partition, deps.Clock, deps.Metrics, deps.Log),
		vn:       vn,
		mismatch: make([]error, len(vn.entries)),
	}
}

func (c *txnVerifyCommand) Execute(ctx context.Context) error { return c.base.execute(ctx, c) }

func (c *txnVerifyCommand) mismatchAt(i int) error { return c.mismatch[i] }

func (c *txnVerifyCommand) isWrite() bool                    { return false }
func (c *txnVerifyCommand) latencyCategory() LatencyCategory { return LatencyBatch }
func (c *txnVerifyCommand) onInDoubt(bool)                   {}
func (c *txnVerifyCommand) prepareRetry(base *baseCommand, timedOut bool) {
	c.mismatch = make([]error, len(c.vn.entries))
}

func (c *txnVerifyCommand) writeBuffer(base *baseCommand) error {
	b := newCommandBuffer(128)
	var tmp2 [2]byte
	binary.BigEndian.PutUint16(tmp2[:], uint16(len(c.vn.entries)))
	b.write(tmp2[:])
	for _, e := range c.vn.entries {
		d := e.key.Digest()
		b.write(d[:])
		b.write(encodeRecordVersion(e.version))
	}
	fields := []wireField{{typ: fieldBatchIndex, data: b.bytes()}}
	h := asMsgHeader{info1: info1Read | info1Batch}
	return writeMessage(base, h, fields, nil)
}

func (c *txnVerifyCommand) parseResult(base *baseCommand, conn *Connection) error {
	valid := newStreamValid()
	idx := 0
	return runStream(conn, valid, func(row streamRow) error {
		if idx >= len(c.vn.entries) {
			return nil
		}
		if row.resultCode != ResultOK {
			c.mismatch[idx] = newServerError(row.resultCode, nodeName(base.node), base.iteration)
		}
		idx++
		return nil
	})
}
