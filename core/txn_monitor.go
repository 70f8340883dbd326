package core

import "context"

// txnMonitorIDBin and txnMonitorDigestsBin name the two bins the monitor
// record carries: the owning txn id (for diagnostics) and the growing set
// of digests the txn has touched (spec.md §4.8).
const (
	txnMonitorIDBin      = "txnid"
	txnMonitorDigestsBin = "digests"
)

// ensureMonitor implements spec.md §4.8's "monitor upkeep": before any user
// write, if key has not already been recorded into txn.writes, issue a
// TxnAddKeys operate against the monitor record. No-op outside a Txn, and
// a no-op (no extra round trip) if this key was already recorded earlier in
// the same txn.
func ensureMonitor(ctx context.Context, cluster Cluster, policy Policy, key Key, deps CommandDeps) error {
	txn := policy.Txn
	if txn == nil {
		return nil
	}
	added, err := txn.recordWrite(key)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}
	cmd, err := newTxnAddKeysCommand(cluster, policy, txn, key, deps)
	if err != nil {
		return err
	}
	return cmd.Execute(ctx)
}

// txnAddKeysCommand is the monitor-upkeep write described in spec.md §4.8.
// Resolved Open Question: follow the newer variant — PUT the id bin plus
// APPEND the digest only on the first call for a txn with no monitor yet;
// bare APPEND once a monitor is known to exist.
type txnAddKeysCommand struct {
	base *baseCommand
	txn  *Txn
	key  Key
}

func newTxnAddKeysCommand(cluster Cluster, policy Policy, txn *Txn, key Key, deps CommandDeps) (*txnAddKeysCommand, error) {
	monitorKey, err := txn.monitorKey()
	if err != nil {
		return nil, err
	}
	return &txnAddKeysCommand{
		base: newBaseCommand(cluster, policy, PartitionForWrite(monitorKey), deps.Clock, deps.Metrics, deps.Log),
		txn:  txn,
		key:  key,
	}, nil
}

func (c *txnAddKeysCommand) Execute(ctx context.Context) error { return c.base.execute(ctx, c) }

func (c *txnAddKeysCommand) isWrite() bool                    { return true }
func (c *txnAddKeysCommand) latencyCategory() LatencyCategory { return LatencyWrite }

// onInDoubt marks the monitor as possibly existing so close is still
// attempted on a later abort, per spec.md §4.8's in-doubt handling table.
func (c *txnAddKeysCommand) onInDoubt(inDoubt bool) {
	c.txn.noteInDoubt(inDoubt)
}

func (c *txnAddKeysCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryWrite(timedOut)
}

func (c *txnAddKeysCommand) writeBuffer(base *baseCommand) error {
	monitorKey, err := c.txn.monitorKey()
	if err != nil {
		return err
	}
	fields := keyFields(monitorKey)
	fields = append(fields, txnFields(c.txn)...)

	digest := c.key.Digest()
	var ops []wireOp
	if !c.txn.monitorExistsHint() {
		ops = append(ops, wireOp{typ: opWrite, name: txnMonitorIDBin, value: IntegerValue(int64(c.txn.ID()))})
	}
	ops = append(ops, wireOp{typ: opAppend, name: txnMonitorDigestsBin, value: BlobValue(digest[:])})

	h := asMsgHeader{info2: info2Write}
	return writeMessage(base, h, fields, ops)
}

func (c *txnAddKeysCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, fields, _, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	if code := ResultCode(hdr.resultCode); code != ResultOK {
		return newServerError(code, nodeName(base.node), base.iteration)
	}
	c.txn.markMonitorExists()
	for _, f := range fields {
		if deadline, ok := mrtDeadlineOf(f); ok {
			c.txn.setDeadline(deadline)
		}
	}
	return nil
}
