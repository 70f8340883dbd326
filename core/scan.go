package core

import (
	"context"
	"encoding/binary"
	"sync"
)

// ScanHandler processes one record a scan or query delivers. Returning an
// error stops the scan early, surfacing that error to the caller (spec.md
// §4.6's "valid flag the caller may clear to terminate early" — returning
// an error here is how a caller expresses that).
type ScanHandler func(rec Record) error

// fixedNodeCluster adapts a single already-known Node into the Cluster
// interface the retry engine expects, ignoring the partition argument
// entirely. Scan/query target a specific node directly (the caller, not
// this core, enumerates cluster membership — spec.md §1) rather than
// routing by partition, so this lets scan reuse the exact same
// baseCommand/commandOps retry engine as every keyed command instead of a
// parallel one.
type fixedNodeCluster struct{ node *Node }

func (f fixedNodeCluster) NodeFor(Partition) (*Node, error) { return f.node, nil }

// Scan streams every record (optionally restricted to set and binNames)
// from each of nodes, fanning out across nodes in parallel when
// policy.ConcurrentNodes is set (spec.md §5: "scans may run concurrently
// across nodes"). Query (see query.go) runs the same scanCommand with an
// added INDEX_RANGE field, so a predicate-bearing request and a full scan
// share this file's writeBuffer/parseResult and runStream row parser.
func Scan(ctx context.Context, nodes []*Node, policy ScanPolicy, namespace, set string, binNames []string, handler ScanHandler, deps CommandDeps) error {
	if !policy.ConcurrentNodes || len(nodes) <= 1 {
		for _, n := range nodes {
			if err := scanOneNode(ctx, n, policy, namespace, set, binNames, handler, deps); err != nil {
				return err
			}
		}
		return nil
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, n := range nodes {
		n := n
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scanOneNode(cancelCtx, n, policy, namespace, set, binNames, handler, deps); err != nil {
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

func scanOneNode(ctx context.Context, node *Node, policy ScanPolicy, namespace, set string, binNames []string, handler ScanHandler, deps CommandDeps) error {
	cmd := &scanCommand{
		base:      newBaseCommand(fixedNodeCluster{node: node}, policy.Policy, Partition{Namespace: namespace}, deps.Clock, deps.Metrics, deps.Log),
		namespace: namespace,
		set:       set,
		binNames:  binNames,
		policy:    policy,
		handler:   handler,
		valid:     newStreamValid(),
	}
	return cmd.Execute(ctx)
}

// scanCommand is one node's share of a scan/query: a single long-lived
// streamed read (spec.md §4.6).
type scanCommand struct {
	base *baseCommand

	namespace, set string
	binNames       []string
	policy         ScanPolicy
	handler        ScanHandler
	valid          *streamValid
	recordCount    int64

	// indexRange carries Query's INDEX_RANGE field; nil for a plain Scan.
	indexRange []byte
}

func (c *scanCommand) Execute(ctx context.Context) error { return c.base.execute(ctx, c) }

func (c *scanCommand) isWrite() bool                    { return false }
func (c *scanCommand) latencyCategory() LatencyCategory { return LatencyScan }
func (c *scanCommand) onInDoubt(bool)                   {}
func (c *scanCommand) prepareRetry(base *baseCommand, timedOut bool) {
	c.recordCount = 0
	c.valid = newStreamValid()
}

func (c *scanCommand) writeBuffer(base *baseCommand) error {
	info1 := info1Read
	if len(c.binNames) == 0 {
		info1 |= info1GetAll
	}
	if !c.policy.IncludeBinData {
		info1 |= info1NoBinData
	}

	fields := []wireField{{typ: fieldNamespace, data: []byte(c.namespace)}}
	if c.set != "" {
		fields = append(fields, wireField{typ: fieldSetName, data: []byte(c.set)})
	}
	if c.policy.RecordsPerSecond > 0 {
		var rps [4]byte
		binary.BigEndian.PutUint32(rps[:], uint32(c.policy.RecordsPerSecond))
		fields = append(fields, wireField{typ: fieldRecordsPerSec, data: rps[:]})
	}
	if c.policy.FilterExp != nil {
		fields = append(fields, wireField{typ: fieldFilterExp, data: c.policy.FilterExp})
	}
	if c.indexRange != nil {
		fields = append(fields, wireField{typ: fieldIndexRange, data: c.indexRange})
	}

	ops := make([]wireOp, len(c.binNames))
	for i, name := range c.binNames {
		ops[i] = wireOp{typ: opRead, name: name, value: NullValue()}
	}

	h := asMsgHeader{info1: info1}
	return writeMessage(base, h, fields, ops)
}

func (c *scanCommand) parseResult(base *baseCommand, conn *Connection) error {
	return runStream(conn, c.valid, func(row streamRow) error {
		if c.policy.MaxRecords > 0 && c.recordCount >= c.policy.MaxRecords {
			c.valid.stop()
			return nil
		}
		c.recordCount++
		rec := recordFromRow(c.namespace, row)
		return c.handler(rec)
	})
}
