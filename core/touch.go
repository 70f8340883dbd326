package core

import "context"

// TouchCommand refreshes a record's expiration without changing its bins
// (spec.md §4.5: "WRITE op TOUCH"). Touched reports whether the record
// existed; per spec.md, KEY_NOT_FOUND fails the command unless the caller
// explicitly tolerates it via TolerateNotFound.
type TouchCommand struct {
	base *baseCommand

	Key              Key
	Policy           WritePolicy
	TolerateNotFound bool

	Touched bool
}

func NewTouchCommand(cluster Cluster, policy WritePolicy, key Key, tolerateNotFound bool, deps CommandDeps) *TouchCommand {
	return &TouchCommand{
		base:             newBaseCommand(cluster, policy.Policy, PartitionForWrite(key), deps.Clock, deps.Metrics, deps.Log),
		Key:              key,
		Policy:           policy,
		TolerateNotFound: tolerateNotFound,
	}
}

func (c *TouchCommand) Execute(ctx context.Context) error {
	if err := ensureMonitor(ctx, c.base.cluster, c.Policy.Policy, c.Key, commandDepsOf(c.base)); err != nil {
		return err
	}
	return c.base.execute(ctx, c)
}

func (c *TouchCommand) isWrite() bool                    { return true }
func (c *TouchCommand) latencyCategory() LatencyCategory { return LatencyWrite }
func (c *TouchCommand) onInDoubt(inDoubt bool) {
	if c.Policy.Txn != nil {
		c.Policy.Txn.noteInDoubt(inDoubt)
	}
}
func (c *TouchCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryWrite(timedOut)
}

func (c *TouchCommand) writeBuffer(base *baseCommand) error {
	fields := keyFields(c.Key)
	fields = append(fields, txnFields(c.Policy.Txn)...)
	h := asMsgHeader{info2: info2Write, recordTTL: c.Policy.Expiration}
	ops := []wireOp{{typ: opTouch, name: "", value: NullValue()}}
	return writeMessage(base, h, fields, ops)
}

func (c *TouchCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, _, _, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	switch ResultCode(hdr.resultCode) {
	case ResultOK:
		c.Touched = true
		return nil
	case ResultKeyNotFound:
		if c.TolerateNotFound {
			c.Touched = false
			return nil
		}
		return newServerError(ResultKeyNotFound, nodeName(base.node), base.iteration)
	default:
		return newServerError(ResultCode(hdr.resultCode), nodeName(base.node), base.iteration)
	}
}
