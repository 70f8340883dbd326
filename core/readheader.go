package core

import "context"

// ReadHeaderCommand fetches generation/expiration without bin data
// (spec.md §4.5: "info1.GET_NOBINDATA").
type ReadHeaderCommand struct {
	base *baseCommand

	Key    Key
	Policy Policy

	Found      bool
	Generation uint32
	Expiration uint32
}

func NewReadHeaderCommand(cluster Cluster, policy Policy, key Key, deps CommandDeps) *ReadHeaderCommand {
	return &ReadHeaderCommand{
		base:   newBaseCommand(cluster, policy, PartitionForRead(key, policy.Replica), deps.Clock, deps.Metrics, deps.Log),
		Key:    key,
		Policy: policy,
	}
}

func (c *ReadHeaderCommand) Execute(ctx context.Context) error { return c.base.execute(ctx, c) }

func (c *ReadHeaderCommand) isWrite() bool                    { return false }
func (c *ReadHeaderCommand) latencyCategory() LatencyCategory { return LatencyRead }
func (c *ReadHeaderCommand) onInDoubt(bool)                   {}
func (c *ReadHeaderCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryRead(timedOut)
}

func (c *ReadHeaderCommand) writeBuffer(base *baseCommand) error {
	fields := keyFields(c.Key)
	fields = append(fields, txnFields(c.Policy.Txn)...)
	h := asMsgHeader{info1: info1Read | info1NoBinData}
	return writeMessage(base, h, fields, nil)
}

func (c *ReadHeaderCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, _, _, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	switch ResultCode(hdr.resultCode) {
	case ResultOK:
		c.Found = true
		c.Generation = hdr.generation
		c.Expiration = hdr.recordTTL
		return nil
	case ResultKeyNotFound:
		c.Found = false
		return nil
	default:
		return newServerError(ResultCode(hdr.resultCode), nodeName(base.node), base.iteration)
	}
}
