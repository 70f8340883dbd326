package core

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// commandOps is the per-variant behavior a concrete command (Read, Write,
// Batch, Scan, ...) supplies to the shared retry engine. This is the Go
// shape of the historical client's abstract command base with virtual
// methods (spec.md §9): the retry loop below is concrete and generic over
// whatever implements commandOps.
type commandOps interface {
	// writeBuffer (re)builds the request into c.buf. Called once per
	// attempt; must be idempotent since a retried attempt rebuilds from
	// scratch.
	writeBuffer(c *baseCommand) error
	// parseResult reads the response from conn and applies it to the
	// command's own result fields. A server-reported failure must be
	// returned as *AerospikeError{Kind: KindServerError}; wire/I/O failures
	// as whatever error occurred.
	parseResult(c *baseCommand, conn *Connection) error
	// prepareRetry lets the command rotate its partition's replica
	// sequence (or, for batch/scan, recompute its node set) before the
	// next attempt.
	prepareRetry(c *baseCommand, timedOut bool)
	isWrite() bool
	latencyCategory() LatencyCategory
	// onInDoubt is invoked exactly once, with the final in-doubt verdict,
	// for write commands that belong to a Txn (spec.md §4.8).
	onInDoubt(inDoubt bool)
}

// baseCommand holds everything the retry engine needs that is not specific
// to one command variant: routing, buffers, counters, and the
// collaborators (cluster, clock, metrics, logger) injected by the client.
type baseCommand struct {
	cluster Cluster
	policy  Policy
	partition Partition

	clock   clock.Clock
	metrics *Metrics
	log     *logrus.Logger

	buf  *commandBuffer
	node *Node
	conn *Connection

	iteration          int
	commandSentCounter int
	correlationID      string
}

func newBaseCommand(cluster Cluster, policy Policy, partition Partition, clk clock.Clock, metrics *Metrics, log *logrus.Logger) *baseCommand {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &baseCommand{
		cluster:       cluster,
		policy:        policy,
		partition:     partition,
		clock:         clk,
		metrics:       metrics,
		log:           log,
		buf:           newCommandBuffer(256),
		correlationID: uuid.NewString(),
	}
}

// deadlines holds the two independent budgets computed at the start of
// Execute (spec.md §4.4).
type deadlines struct {
	totalDeadline time.Time // zero = infinite
	socketTimeout time.Duration
}

func (c *baseCommand) computeDeadlines() deadlines {
	var d deadlines
	if c.policy.TotalTimeout > 0 {
		d.totalDeadline = c.clock.Now().Add(c.policy.TotalTimeout)
	}
	switch {
	case c.policy.SocketTimeout > 0 && c.policy.TotalTimeout > 0:
		d.socketTimeout = minDuration(c.policy.SocketTimeout, c.policy.TotalTimeout)
	case c.policy.SocketTimeout > 0:
		d.socketTimeout = c.policy.SocketTimeout
	case c.policy.TotalTimeout > 0:
		d.socketTimeout = c.policy.TotalTimeout
	default:
		d.socketTimeout = 0
	}
	return d
}

// remainingSocketTimeout shrinks the socket timeout to fit what's left of the total
// budget, per spec.md §4.4 ("Before each attempt, socket_timeout is
// shrunk to fit remaining total budget").
func (d deadlines) remainingSocketTimeout(now time.Time) time.Duration {
	if d.totalDeadline.IsZero() {
		return d.socketTimeout
	}
	left := d.totalDeadline.Sub(now)
	if left <= 0 {
		return 0
	}
	if d.socketTimeout == 0 || left < d.socketTimeout {
		return left
	}
	return d.socketTimeout
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// execute runs ops to completion: pick node, acquire connection, write,
// parse, and on transient failure retry per spec.md §4.4's classification
// table. It is the synchronous, thread-per-request entry point; the
// context carries cancellation, which doubles as the cooperative/async
// entry point (spec.md §4.4: "execute_async(cancel_token)" — a caller
// wanting async simply runs Execute in its own goroutine and cancels ctx).
func (c *baseCommand) execute(ctx context.Context, ops commandOps) error {
	d := c.computeDeadlines()
	c.iteration = 1
	c.commandSentCounter = 0

	start := c.clock.Now()

	for {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}

		node, err := c.cluster.NodeFor(c.partition)
		if err != nil {
			return err // INVALID_NODE: no retry, per spec.md §4.4 step 1
		}
		c.node = node

		socketTimeout := d.remainingSocketTimeout(c.clock.Now())
		acquireCtx := ctx
		var cancel context.CancelFunc
		if socketTimeout > 0 {
			acquireCtx, cancel = context.WithTimeout(ctx, socketTimeout)
		}
		conn, err := node.Acquire(acquireCtx)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if done, out := c.retryOrSurrender(ctx, d, ops, err); done {
				return out
			}
			continue
		}
		c.conn = conn

		c.buf.reset()
		if err := ops.writeBuffer(c); err != nil {
			node.CloseConnection(conn)
			return err // malformed request construction: caller bug, not retried
		}

		if socketTimeout > 0 {
			_ = conn.SetDeadline(c.clock.Now().Add(socketTimeout))
		}
		if _, err := conn.Write(c.buf.bytes()); err != nil {
			node.CloseConnection(conn)
			if done, out := c.retryOrSurrender(ctx, d, ops, err); done {
				return out
			}
			continue
		}
		c.commandSentCounter++ // spec.md §8 law 5: counts successful writes only

		perr := ops.parseResult(c, conn)
		if perr == nil {
			node.Release(conn)
			node.recordSuccess()
			c.recordLatency(ops, c.clock.Now().Sub(start))
			return nil
		}

		if c.keepConnection(perr) {
			node.Release(conn)
		} else {
			node.CloseConnection(conn)
		}

		if done, out := c.retryOrSurrender(ctx, d, ops, perr); done {
			return out
		}
	}
}

// retryOrSurrender classifies err, and either sleeps/advances for another
// attempt (returning done=false) or finalizes the command (done=true, out
// is the error to return).
func (c *baseCommand) retryOrSurrender(ctx context.Context, d deadlines, ops commandOps, err error) (done bool, out error) {
	retry, werr := c.classify(err)
	if !retry {
		return true, c.finish(werr, ops)
	}
	clientTimeout := isClientTimeout(werr)
	if !c.sleepForRetry(ctx, d, clientTimeout) {
		return true, c.finish(werr, ops)
	}
	c.advanceIteration(ops, clientTimeout)
	return false, nil
}

// advanceIteration bumps the attempt counter and lets the command rotate
// its routing before the next pass through the loop.
func (c *baseCommand) advanceIteration(ops commandOps, timedOut bool) {
	c.iteration++
	ops.prepareRetry(c, timedOut)
}

// classify implements spec.md §4.4's table, returning whether the failure
// is retry-eligible and the (possibly reclassified) error to surface if
// not.
func (c *baseCommand) classify(err error) (retry bool, out error) {
	var ae *AerospikeError
	if errors.As(err, &ae) {
		switch ae.Kind {
		case KindCancelled:
			return false, err
		case KindBackoff:
			return c.iteration < c.policy.MaxRetries+1, err
		case KindServerError:
			switch ae.Code {
			case ResultTimeout:
				c.node.recordTimeout()
				c.metrics.incNodeTimeout(c.node.String())
				return c.iteration < c.policy.MaxRetries+1, err
			case ResultDeviceOverload:
				c.node.recordError()
				c.metrics.incNodeError(c.node.String())
				return c.iteration < c.policy.MaxRetries+1, err
			default:
				return false, err
			}
		case KindConnection:
			c.node.recordError()
			c.metrics.incNodeError(c.node.String())
			return c.iteration < c.policy.MaxRetries+1, err
		case KindTimeout:
			// client-side socket timeout
			c.node.recordTimeout()
			c.metrics.incNodeTimeout(c.node.String())
			return c.iteration < c.policy.MaxRetries+1, err
		default:
			return false, err
		}
	}
	// Unclassified (raw I/O) error: treat as a connection failure.
	wrapped := newConnectionError(err, nodeName(c.node), c.iteration)
	c.node.recordError()
	c.metrics.incNodeError(nodeName(c.node))
	return c.iteration < c.policy.MaxRetries+1, wrapped
}

func nodeName(n *Node) string {
	if n == nil {
		return ""
	}
	return n.String()
}

func isClientTimeout(err error) bool {
	var ae *AerospikeError
	if errors.As(err, &ae) {
		return ae.Kind == KindTimeout && ae.ClientTime
	}
	return false
}

// sleepForRetry enforces remaining-budget eligibility and pauses between
// attempts (spec.md §4.4: "sleep sleep_between_retries ms unless the last
// failure was a client timeout"). It returns false when the budget is
// exhausted, meaning the caller must stop retrying.
func (c *baseCommand) sleepForRetry(ctx context.Context, d deadlines, lastWasClientTimeout bool) bool {
	if !d.totalDeadline.IsZero() {
		remaining := d.totalDeadline.Sub(c.clock.Now())
		if remaining <= 0 {
			return false
		}
		if c.policy.SleepBetweenRetries > 0 && remaining <= c.policy.SleepBetweenRetries {
			return false
		}
	}
	if c.policy.SleepBetweenRetries > 0 && !lastWasClientTimeout {
		select {
		case <-ctx.Done():
			return false
		case <-c.clock.After(c.policy.SleepBetweenRetries):
		}
	}
	return true
}

// keepConnection decides, for a server-reported failure, whether the
// socket is still clean enough to return to the pool (spec.md §4.4/§7).
func (c *baseCommand) keepConnection(err error) bool {
	var ae *AerospikeError
	if errors.As(err, &ae) && ae.Kind == KindServerError {
		return ae.Code.keepConnection()
	}
	return false
}

// finish computes the final in-doubt verdict and notifies the owning Txn
// (if any), then returns the fully classified error.
func (c *baseCommand) finish(err error, ops commandOps) error {
	var ae *AerospikeError
	if errors.As(err, &ae) {
		ae.Node = nodeName(c.node)
		ae.Iteration = c.iteration
		if ops.isWrite() {
			ae.InDoubt = c.computeInDoubt(ae)
			// ops.onInDoubt is the spec's on_in_doubt() hook (spec.md §4.8):
			// each write command decides for itself what an in-doubt verdict
			// means for its owning Txn (TxnAddKeys marks the monitor as
			// possibly existing; MarkRollForward is a no-op).
			ops.onInDoubt(ae.InDoubt)
		}
	}
	return err
}

// computeInDoubt implements spec.md §4.4: a write is in-doubt when
// command_sent_counter > 0 and the failure does not definitively prove the
// write was never applied (a pre-send connection failure proves it was
// not).
func (c *baseCommand) computeInDoubt(ae *AerospikeError) bool {
	if c.commandSentCounter == 0 {
		return false
	}
	if ae.Kind == KindServerError && ae.Code.keepConnection() {
		// A clean, definitive server answer (GENERATION_ERROR,
		// PARAMETER_ERROR, KEY_EXISTS_ERROR, ...) proves the write was
		// rejected outright, not left ambiguous.
		return false
	}
	return true
}

func (c *baseCommand) recordLatency(ops commandOps, elapsed time.Duration) {
	c.metrics.observeLatency(ops.latencyCategory(), elapsed.Seconds())
}
