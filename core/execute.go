package core

import "context"

// ExecuteCommand invokes a registered UDF against a single key (spec.md
// §4.5: "UDF_PACKAGE/FUNCTION/ARGLIST"). It is treated as a write for
// retry/in-doubt purposes since the UDF may mutate the record.
type ExecuteCommand struct {
	base *baseCommand

	Key          Key
	PackageName  string
	FunctionName string
	Args         []Value
	Policy       WritePolicy

	Record *Record // non-nil only if the UDF returns a value
}

func NewExecuteCommand(cluster Cluster, policy WritePolicy, key Key, pkg, fn string, args []Value, deps CommandDeps) *ExecuteCommand {
	return &ExecuteCommand{
		base:         newBaseCommand(cluster, policy.Policy, PartitionForWrite(key), deps.Clock, deps.Metrics, deps.Log),
		Key:          key,
		PackageName:  pkg,
		FunctionName: fn,
		Args:         args,
		Policy:       policy,
	}
}

func (c *ExecuteCommand) Execute(ctx context.Context) error {
	if err := ensureMonitor(ctx, c.base.cluster, c.Policy.Policy, c.Key, commandDepsOf(c.base)); err != nil {
		return err
	}
	return c.base.execute(ctx, c)
}

func (c *ExecuteCommand) isWrite() bool                    { return true }
func (c *ExecuteCommand) latencyCategory() LatencyCategory { return LatencyWrite }
func (c *ExecuteCommand) onInDoubt(inDoubt bool) {
	if c.Policy.Txn != nil {
		c.Policy.Txn.noteInDoubt(inDoubt)
	}
}
func (c *ExecuteCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryWrite(timedOut)
}

func (c *ExecuteCommand) writeBuffer(base *baseCommand) error {
	fields := keyFields(c.Key)
	fields = append(fields, txnFields(c.Policy.Txn)...)
	fields = append(fields,
		wireField{typ: fieldUDFPackage, data: []byte(c.PackageName)},
		wireField{typ: fieldUDFFunction, data: []byte(c.FunctionName)},
		wireField{typ: fieldUDFArgList, data: encodeCDT(ListValue(c.Args))},
		wireField{typ: fieldUDFOp, data: []byte{1}},
	)
	h := asMsgHeader{info2: info2Write}
	return writeMessage(base, h, fields, nil)
}

func (c *ExecuteCommand) parseResult(base *baseCommand, conn *Connection) error {
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
	if len(ops) == 0 {
		c.Record = nil
		return nil
	}
	acc := newBinAccumulator()
	for _, op := range ops {
		acc.add(op.name, op.value)
	}
	rec := Record{Key: c.Key, Bins: acc.bins(), Generation: hdr.generation, Expiration: hdr.recordTTL}
	c.Record = &rec
	return nil
}
