package core

import "context"

// OperateCommand runs an arbitrary op list against one key, mixing reads
// and writes in a single round trip (spec.md §4.5). A UDF_BAD_RESPONSE
// result parsed from a "FAILURE" bin is surfaced as a distinct error rather
// than a generic server error, matching the historical client's behavior
// for operate-invoked UDFs.
type OperateCommand struct {
	base *baseCommand

	Key    Key
	Ops    []wireOp
	Policy WritePolicy

	Record *Record
}

// NewOperateCommand builds an OperateCommand from a caller-assembled wireOp
// list, which is sent as given and in order.
func NewOperateCommand(cluster Cluster, policy WritePolicy, key Key, ops []wireOp, deps CommandDeps) *OperateCommand {
	partition := PartitionForRead(key, policy.Replica)
	if operateWrites(ops) {
		partition = PartitionForWrite(key)
	}
	return &OperateCommand{
		base:   newBaseCommand(cluster, policy.Policy, partition, deps.Clock, deps.Metrics, deps.Log),
		Key:    key,
		Ops:    ops,
		Policy: policy,
	}
}

func operateWrites(ops []wireOp) bool {
	for _, op := range ops {
		switch op.typ {
		case opWrite, opAppend, opPrepend, opAdd, opTouch, opDelete:
			return true
		}
	}
	return false
}

func (c *OperateCommand) Execute(ctx context.Context) error {
	if operateWrites(c.Ops) {
		if err := ensureMonitor(ctx, c.base.cluster, c.Policy.Policy, c.Key, commandDepsOf(c.base)); err != nil {
			return err
		}
	}
	return c.base.execute(ctx, c)
}

func (c *OperateCommand) isWrite() bool { return operateWrites(c.Ops) }
func (c *OperateCommand) latencyCategory() LatencyCategory {
	if c.isWrite() {
		return LatencyWrite
	}
	return LatencyRead
}
func (c *OperateCommand) onInDoubt(inDoubt bool) {
	if c.Policy.Txn != nil {
		c.Policy.Txn.noteInDoubt(inDoubt)
	}
}
func (c *OperateCommand) prepareRetry(base *baseCommand, timedOut bool) {
	if c.isWrite() {
		base.partition.PrepareRetryWrite(timedOut)
	} else {
		base.partition.PrepareRetryRead(timedOut)
	}
}

func (c *OperateCommand) writeBuffer(base *baseCommand) error {
	fields := keyFields(c.Key)
	fields = append(fields, txnFields(c.Policy.Txn)...)
	if c.Policy.FilterExp != nil {
		fields = append(fields, wireField{typ: fieldFilterExp, data: c.Policy.FilterExp})
	}
	h := asMsgHeader{}
	if c.isWrite() {
		h = writeHeaderFor(c.Policy)
	} else {
		h.info1 = info1Read
	}
	return writeMessage(base, h, fields, c.Ops)
}

// udfFailureBin is the bin name the server carries a UDF's failure message
// in, when an operate-invoked UDF fails (spec.md §4.5).
const udfFailureBin = "FAILURE"

func (c *OperateCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, _, ops, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	code := ResultCode(hdr.resultCode)
	if code == ResultUDFBadResponse {
		return parseUDFFailure(ops, nodeName(base.node), base.iteration)
	}
	if code != ResultOK {
		return newServerError(code, nodeName(base.node), base.iteration)
	}
	acc := newBinAccumulator()
	for _, op := range ops {
		acc.add(op.name, op.value)
	}
	rec := Record{Key: c.Key, Bins: acc.bins(), Generation: hdr.generation, Expiration: hdr.recordTTL}
	c.Record = &rec
	return nil
}

// parseUDFFailure resolves the Open Question on UDF parse-error semantics:
// a malformed "namespace:line code:message" failure string still yields a
// single generic Parse error rather than two distinct exception types.
func parseUDFFailure(ops []wireOp, node string, iteration int) error {
	for _, op := range ops {
		if op.name == udfFailureBin {
			msg, _ := op.value.Bytes()
			if msg == nil {
				msg = []byte(op.value.String())
			}
			return &AerospikeError{Kind: KindParse, Code: ResultUDFBadResponse, Node: node, Iteration: iteration, Cause: errorString(string(msg))}
		}
	}
	return newServerError(ResultUDFBadResponse, node, iteration)
}
