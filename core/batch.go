package core

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// BatchRecordResult is one positional slot of a batch (or MRT verify/roll)
// outcome (spec.md §4.7/§4.8): the key it was requested for, the record if
// found, and any per-key error. Duplicate-key inputs share the same
// Record/Err across every offset that requested that key.
type BatchRecordResult struct {
	Key    Key
	Record *Record
	Err    error
}

// batchOffsetIter is the explicit iterator resolving Open Question 3: an
// offset cursor with a Next() method rather than a mutating struct field.
type batchOffsetIter struct {
	offsets []int
	pos     int
}

func newBatchOffsetIter(offsets []int) *batchOffsetIter {
	return &batchOffsetIter{offsets: offsets}
}

func (it *batchOffsetIter) Next() (int, bool) {
	if it.pos >= len(it.offsets) {
		return 0, false
	}
	v := it.offsets[it.pos]
	it.pos++
	return v, true
}

// batchKeyEntry groups every input offset that requested the same key
// (spec.md §4.7: "duplicate-key tolerance ... the router tracks all
// offsets under one key").
type batchKeyEntry struct {
	key     Key
	offsets *batchOffsetIter
}

// BatchNode is one node's share of a batch: the subset of keys it owns and
// the input offsets each maps back to (spec.md §4.7).
type BatchNode struct {
	node    *Node
	entries []*batchKeyEntry
}

// groupBatchByNode is the batch router: it resolves each key's owning node
// once per attempt and returns one BatchNode per distinct node, preserving
// first-seen key order within each (spec.md §4.7's "new batch" dialect:
// one command per node).
func groupBatchByNode(cluster Cluster, keys []Key, replica ReplicaPolicy) ([]*BatchNode, error) {
	byDigest := make(map[Digest]*batchKeyEntry, len(keys))
	var order []Digest
	offsetsByDigest := make(map[Digest][]int)
	for i, k := range keys {
		d := k.Digest()
		if _, ok := byDigest[d]; !ok {
			byDigest[d] = &batchKeyEntry{key: k}
			order = append(order, d)
		}
		offsetsByDigest[d] = append(offsetsByDigest[d], i)
	}
	for d, e := range byDigest {
		e.offsets = newBatchOffsetIter(offsetsByDigest[d])
	}

	nodesByID := make(map[string]*BatchNode)
	var nodes []*BatchNode
	for _, d := range order {
		e := byDigest[d]
		partition := PartitionForRead(e.key, replica)
		node, err := cluster.NodeFor(partition)
		if err != nil {
			return nil, err
		}
		bn, ok := nodesByID[node.String()]
		if !ok {
			bn = &BatchNode{node: node}
			nodesByID[node.String()] = bn
			nodes = append(nodes, bn)
		}
		bn.entries = append(bn.entries, e)
	}
	return nodes, nil
}

// batchSubGroupKey hashes a namespace+set pair into a grouping key for the
// "old batch" dialect (spec.md §4.7). Nothing in this package calls it:
// only the new-batch path above is implemented, and there is no
// split_by_namespace() grouping built on it.
func batchSubGroupKey(namespace, set string) uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte(namespace))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(set))
	return h.Sum64()
}

// BatchGet fetches binNames (or all bins, if empty) for every key, fanned
// out across the nodes that own them (spec.md §4.7). The returned slice is
// always len(keys) long and positionally matches keys regardless of node or
// completion order.
func BatchGet(ctx context.Context, cluster Cluster, policy BatchPolicy, keys []Key, binNames []string, deps CommandDeps) ([]BatchRecordResult, error) {
	results := make([]BatchRecordResult, len(keys))
	for i, k := range keys {
		results[i].Key = k
	}
	if len(keys) == 0 {
		return results, nil
	}
	nodes, err := groupBatchByNode(cluster, keys, policy.Replica)
	if err != nil {
		return nil, err
	}

	if policy.MaxConcurrentThreads <= 1 || len(nodes) <= 1 {
		for _, bn := range nodes {
			if err := runBatchNode(ctx, cluster, policy, bn, binNames, results, deps); err != nil {
				return results, err
			}
		}
		return results, nil
	}
	return results, fanOutBatch(ctx, cluster, policy, nodes, binNames, results, deps)
}

// fanOutBatch implements spec.md §4.7's concurrency rule: up to
// max_concurrent_threads workers, first failure signals the rest to stop.
func fanOutBatch(ctx context.Context, cluster Cluster, policy BatchPolicy, nodes []*BatchNode, binNames []string, results []BatchRecordResult, deps CommandDeps) error {
	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, policy.MaxConcurrentThreads)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, bn := range nodes {
		bn := bn
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := runBatchNode(cancelCtx, cluster, policy, bn, binNames, results, deps); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func runBatchNode(ctx context.Context, cluster Cluster, policy BatchPolicy, bn *BatchNode, binNames []string, results []BatchRecordResult, deps CommandDeps) error {
	cmd := newBatchCommand(cluster, policy, bn, binNames, results, deps)
	err := cmd.Execute(ctx)
	// Walk cmd.bn, not the bn passed in: a retry may have re-split this
	// node's keys across a fresh node set (prepareRetry below), in which
	// case cmd.bn/cmd.records describe whatever node this command's last
	// attempt actually ran against.
	for i, e := range cmd.bn.entries {
		rec := cmd.recordAt(i)
		for {
			off, ok := e.offsets.Next()
			if !ok {
				break
			}
			results[off].Record = rec
			results[off].Err = err
		}
	}
	return err
}

// batchCommand is the per-node new-batch dialect command: one request
// carrying every key this node owns, one streamed row per key in response
// (spec.md §4.7). The request's own wire sub-format (how many keys and
// which bins are packed into the BATCH_INDEX field) is this client's own
// framing, documented the same way core/cdt.go documents its list/map
// framing: a faithful positional/ordering model of the protocol rather than
// a byte-exact reproduction of the historical client's batch-index layout.
type batchCommand struct {
	base *baseCommand

	// cluster is the real, externally-supplied topology — kept alongside
	// base.cluster (pinned to bn.node below) so prepareRetry can re-run
	// groupBatchByNode against the actual cluster on retry.
	cluster  Cluster
	bn       *BatchNode
	binNames []string
	policy   BatchPolicy
	deps     CommandDeps

	// results is the batch-wide, positionally-indexed output this command
	// shares with every sibling BatchNode's command (spec.md §4.7):
	// prepareRetry writes straight into it when a retry's re-fan-out
	// splits this node's keys across more than one fresh node.
	results []BatchRecordResult
	ctx     context.Context

	records []*Record
}

func newBatchCommand(cluster Cluster, policy BatchPolicy, bn *BatchNode, binNames []string, results []BatchRecordResult, deps CommandDeps) *batchCommand {
	partition := Partition{Namespace: bn.entries[0].key.Namespace, Replica: policy.Replica}
	return &batchCommand{
		base:     newBaseCommand(fixedNodeCluster{node: bn.node}, policy.Policy, partition, deps.Clock, deps.Metrics, deps.Log),
		cluster:  cluster,
		bn:       bn,
		binNames: binNames,
		policy:   policy,
		deps:     deps,
		results:  results,
		records:  make([]*Record, len(bn.entries)),
	}
}

func (c *batchCommand) Execute(ctx context.Context) error {
	c.ctx = ctx
	return c.base.execute(ctx, c)
}

func (c *batchCommand) recordAt(i int) *Record { return c.records[i] }

func (c *batchCommand) isWrite() bool                    { return false }
func (c *batchCommand) latencyCategory() LatencyCategory { return LatencyBatch }
func (c *batchCommand) onInDoubt(bool)                   {}

// prepareRetry re-resolves the node set from scratch on retry instead of
// repeating on the same node, implementing the spec's retry_batch() hook
// (spec.md §4.4: "allows a multi-node command to re-fan-out across a
// freshly computed node set").
func (c *batchCommand) prepareRetry(base *baseCommand, timedOut bool) {
	keys := make([]Key, 0, len(c.bn.entries))
	offsetsByDigest := make(map[Digest]*batchOffsetIter, len(c.bn.entries))
	for _, e := range c.bn.entries {
		keys = append(keys, e.key)
		offsetsByDigest[e.key.Digest()] = e.offsets
	}
	nodes, err := groupBatchByNode(c.cluster, keys, c.policy.Replica)
	if err != nil || len(nodes) == 0 {
		return
	}
	// groupBatchByNode numbers offsets within keys above; point every entry
	// back at its offsets into the caller's original key list.
	for _, n := range nodes {
		for _, e := range n.entries {
			e.offsets = offsetsByDigest[e.key.Digest()]
		}
	}
	// This command's own retry loop (in baseCommand.execute) keeps driving
	// nodes[0]; anything beyond that is a fresh split this attempt never
	// saw before, so it needs its own command rather than being silently
	// dropped (spec.md §4.4's retry_batch() re-fan-out applies to every
	// node the split produces, not just the first).
	for _, overflow := range nodes[1:] {
		_ = runBatchNode(c.ctx, c.cluster, c.policy, overflow, c.binNames, c.results, c.deps)
	}
	c.bn = nodes[0]
	c.records = make([]*Record, len(nodes[0].entries))
	base.cluster = fixedNodeCluster{node: nodes[0].node}
}

func (c *batchCommand) writeBuffer(base *baseCommand) error {
	b := newCommandBuffer(128)
	var tmp2 [2]byte
	binary.BigEndian.PutUint16(tmp2[:], uint16(len(c.bn.entries)))
	b.write(tmp2[:])
	for _, e := range c.bn.entries {
		d := e.key.Digest()
		b.write(d[:])
		b.writeByte(byte(len(e.key.Namespace)))
		b.write([]byte(e.key.Namespace))
		b.writeByte(byte(len(e.key.Set)))
		b.write([]byte(e.key.Set))
	}
	binary.BigEndian.PutUint16(tmp2[:], uint16(len(c.binNames)))
	b.write(tmp2[:])
	for _, name := range c.binNames {
		b.writeByte(byte(len(name)))
		b.write([]byte(name))
	}

	fields := []wireField{{typ: fieldBatchIndex, data: b.bytes()}}
	h := asMsgHeader{info1: info1Read | info1Batch}
	return writeMessage(base, h, fields, nil)
}

func (c *batchCommand) parseResult(base *baseCommand, conn *Connection) error {
	valid := newStreamValid()
	idx := 0
	return runStream(conn, valid, func(row streamRow) error {
		if idx >= len(c.bn.entries) {
			return nil
		}
		entry := c.bn.entries[idx]
		if row.resultCode == ResultKeyNotFound {
			c.records[idx] = nil
		} else {
			rec := recordFromRow(entry.key.Namespace, row)
			rec.Key = entry.key
			c.records[idx] = &rec
		}
		idx++
		return nil
	})
}
