package core

import "context"

// ReadCommand fetches a subset of bins (or all bins when BinNames is empty)
// for a single key (spec.md §4.5).
type ReadCommand struct {
	base *baseCommand

	Key      Key
	BinNames []string
	Policy   Policy

	Record *Record // populated on success; nil if the key was not found
}

// NewReadCommand builds a ReadCommand. cluster/clock/metrics/log follow the
// same injection shape as every other command (spec.md §9: no singletons).
func NewReadCommand(cluster Cluster, policy Policy, key Key, binNames []string, deps CommandDeps) *ReadCommand {
	return &ReadCommand{
		base:     newBaseCommand(cluster, policy, PartitionForRead(key, policy.Replica), deps.Clock, deps.Metrics, deps.Log),
		Key:      key,
		BinNames: binNames,
		Policy:   policy,
	}
}

// Execute runs the command to completion, retrying per the shared engine in
// command.go.
func (c *ReadCommand) Execute(ctx context.Context) error {
	return c.base.execute(ctx, c)
}

func (c *ReadCommand) isWrite() bool                    { return false }
func (c *ReadCommand) latencyCategory() LatencyCategory { return LatencyRead }
func (c *ReadCommand) onInDoubt(bool)                   {}

func (c *ReadCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryRead(timedOut)
}

func (c *ReadCommand) writeBuffer(base *baseCommand) error {
	info1 := info1Read
	if len(c.BinNames) == 0 {
		info1 |= info1GetAll
	}
	fields := keyFields(c.Key)
	fields = append(fields, txnFields(c.Policy.Txn)...)
	if c.Policy.FilterExp != nil {
		fields = append(fields, wireField{typ: fieldFilterExp, data: c.Policy.FilterExp})
	}
	ops := make([]wireOp, len(c.BinNames))
	for i, name := range c.BinNames {
		ops[i] = wireOp{typ: opRead, name: name, value: NullValue()}
	}
	h := asMsgHeader{info1: info1}
	return writeMessage(base, h, fields, ops)
}

func (c *ReadCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, fields, ops, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	code := ResultCode(hdr.resultCode)
	switch code {
	case ResultOK:
		rec := buildRecord(c.Key.Namespace, c.Key.Set, hdr, fields, ops)
		rec.Key = c.Key
		c.Record = &rec
		if c.Policy.Txn != nil {
			for _, f := range fields {
				if v, ok := recordVersionOf(f); ok {
					return c.Policy.Txn.recordRead(c.Key, v)
				}
			}
		}
		return nil
	case ResultKeyNotFound:
		c.Record = nil
		return nil
	case ResultFilteredOut:
		if c.Policy.FailOnFilteredOut {
			return newServerError(code, nodeName(base.node), base.iteration)
		}
		c.Record = nil
		return nil
	default:
		return newServerError(code, nodeName(base.node), base.iteration)
	}
}

// buildRecord is the single-key-reply counterpart of recordFromRow: it
// trusts the caller's own key/namespace/set rather than re-deriving them
// from the DIGEST field, since a single-key command always knows which key
// it asked for.
func buildRecord(namespace, set string, hdr asMsgHeader, fields []wireField, ops []wireOp) Record {
	acc := newBinAccumulator()
	for _, op := range ops {
		acc.add(op.name, op.value)
	}
	_ = fields // fields carry routing echoes only for single-key replies
	return Record{
		Bins:       acc.bins(),
		Generation: hdr.generation,
		Expiration: hdr.recordTTL,
	}
}
