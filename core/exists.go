package core

import "context"

// ExistsCommand reports whether a key is present, without fetching bins
// (spec.md §4.5: "info1.READ|NOBINDATA").
type ExistsCommand struct {
	base *baseCommand

	Key    Key
	Policy Policy

	Exists bool
}

func NewExistsCommand(cluster Cluster, policy Policy, key Key, deps CommandDeps) *ExistsCommand {
	return &ExistsCommand{
		base:   newBaseCommand(cluster, policy, PartitionForRead(key, policy.Replica), deps.Clock, deps.Metrics, deps.Log),
		Key:    key,
		Policy: policy,
	}
}

func (c *ExistsCommand) Execute(ctx context.Context) error { return c.base.execute(ctx, c) }

func (c *ExistsCommand) isWrite() bool                    { return false }
func (c *ExistsCommand) latencyCategory() LatencyCategory { return LatencyRead }
func (c *ExistsCommand) onInDoubt(bool)                   {}
func (c *ExistsCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryRead(timedOut)
}

func (c *ExistsCommand) writeBuffer(base *baseCommand) error {
	fields := keyFields(c.Key)
	fields = append(fields, txnFields(c.Policy.Txn)...)
	h := asMsgHeader{info1: info1Read | info1NoBinData}
	return writeMessage(base, h, fields, nil)
}

func (c *ExistsCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, _, _, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	switch ResultCode(hdr.resultCode) {
	case ResultOK:
		c.Exists = true
		return nil
	case ResultKeyNotFound:
		c.Exists = false
		return nil
	default:
		return newServerError(ResultCode(hdr.resultCode), nodeName(base.node), base.iteration)
	}
}
