package core

import "context"

// DeleteCommand removes a record (spec.md §4.5: "info2.DELETE").
type DeleteCommand struct {
	base *baseCommand

	Key    Key
	Policy WritePolicy

	Existed bool
}

func NewDeleteCommand(cluster Cluster, policy WritePolicy, key Key, deps CommandDeps) *DeleteCommand {
	return &DeleteCommand{
		base:   newBaseCommand(cluster, policy.Policy, PartitionForWrite(key), deps.Clock, deps.Metrics, deps.Log),
		Key:    key,
		Policy: policy,
	}
}

func (c *DeleteCommand) Execute(ctx context.Context) error {
	if err := ensureMonitor(ctx, c.base.cluster, c.Policy.Policy, c.Key, commandDepsOf(c.base)); err != nil {
		return err
	}
	return c.base.execute(ctx, c)
}

func (c *DeleteCommand) isWrite() bool                    { return true }
func (c *DeleteCommand) latencyCategory() LatencyCategory { return LatencyWrite }
func (c *DeleteCommand) onInDoubt(inDoubt bool) {
	if c.Policy.Txn != nil {
		c.Policy.Txn.noteInDoubt(inDoubt)
	}
}
func (c *DeleteCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryWrite(timedOut)
}

func (c *DeleteCommand) writeBuffer(base *baseCommand) error {
	fields := keyFields(c.Key)
	fields = append(fields, txnFields(c.Policy.Txn)...)
	info2 := info2Write | info2Delete
	if c.Policy.DurableDelete {
		info2 |= info2DurableDelete
	}
	h := asMsgHeader{info2: info2}
	return writeMessage(base, h, fields, nil)
}

func (c *DeleteCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, _, _, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	switch ResultCode(hdr.resultCode) {
	case ResultOK:
		c.Existed = true
		return nil
	case ResultKeyNotFound:
		c.Existed = false
		return nil
	default:
		return newServerError(ResultCode(hdr.resultCode), nodeName(base.node), base.iteration)
	}
}
