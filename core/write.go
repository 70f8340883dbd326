package core

import "context"

// WriteCommand sets one or more bins on a key (spec.md §4.5: "WRITE ops").
type WriteCommand struct {
	base *baseCommand

	Key    Key
	Bins   map[string]Value
	Policy WritePolicy
}

func NewWriteCommand(cluster Cluster, policy WritePolicy, key Key, bins map[string]Value, deps CommandDeps) *WriteCommand {
	return &WriteCommand{
		base:   newBaseCommand(cluster, policy.Policy, PartitionForWrite(key), deps.Clock, deps.Metrics, deps.Log),
		Key:    key,
		Bins:   bins,
		Policy: policy,
	}
}

// Execute ensures the owning Txn's monitor record is up to date (spec.md
// §4.8) and then runs the write to completion.
func (c *WriteCommand) Execute(ctx context.Context) error {
	if err := ensureMonitor(ctx, c.base.cluster, c.Policy.Policy, c.Key, commandDepsOf(c.base)); err != nil {
		return err
	}
	return c.base.execute(ctx, c)
}

func (c *WriteCommand) isWrite() bool                    { return true }
func (c *WriteCommand) latencyCategory() LatencyCategory { return LatencyWrite }
func (c *WriteCommand) onInDoubt(inDoubt bool) {
	if c.Policy.Txn != nil {
		c.Policy.Txn.noteInDoubt(inDoubt)
	}
}
func (c *WriteCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryWrite(timedOut)
}

func (c *WriteCommand) writeBuffer(base *baseCommand) error {
	fields := keyFields(c.Key)
	fields = append(fields, txnFields(c.Policy.Txn)...)
	if c.Policy.FilterExp != nil {
		fields = append(fields, wireField{typ: fieldFilterExp, data: c.Policy.FilterExp})
	}
	ops := make([]wireOp, 0, len(c.Bins))
	for name, v := range c.Bins {
		ops = append(ops, wireOp{typ: opWrite, name: name, value: v})
	}
	h := writeHeaderFor(c.Policy)
	return writeMessage(base, h, fields, ops)
}

func (c *WriteCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, _, _, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	if code := ResultCode(hdr.resultCode); code != ResultOK {
		return newServerError(code, nodeName(base.node), base.iteration)
	}
	return nil
}

// writeHeaderFor builds the info2/generation/expiration portion of a write
// request's AS_MSG header from a WritePolicy (spec.md §4.1/§6).
func writeHeaderFor(p WritePolicy) asMsgHeader {
	info2 := info2Write
	if p.DurableDelete {
		info2 |= info2DurableDelete
	}
	if p.RespondAllOps {
		info2 |= info2RespondAllOps
	}
	switch p.GenerationPolicy {
	case GenerationExpect:
		info2 |= info2Generation
	case GenerationGT:
		info2 |= info2GenGT
	}
	info3 := byte(0)
	switch p.RecordExistsAction {
	case RecordExistsUpdateOnly:
		info3 |= info3UpdateOnly
	case RecordExistsReplace:
		info3 |= info3CreateOrReplace
	case RecordExistsReplaceOnly:
		info3 |= info3ReplaceOnly
	case RecordExistsCreateOnly:
		info2 |= info2CreateOnly
	}
	if p.CommitLevel == CommitMaster {
		info3 |= info3CommitMaster
	}
	return asMsgHeader{info2: info2, info3: info3, generation: p.Generation, recordTTL: p.Expiration}
}
