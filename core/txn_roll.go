package core

import (
	"context"
	"sync"
)

// CommitStage marks which step of the commit state machine a KindCommit
// error originated in (spec.md §4.8/§7).
type CommitStage int

const (
	StageVerify CommitStage = iota
	StageMarkRollForward
	StageRollForward
	StageClose
)

func (s CommitStage) String() string {
	switch s {
	case StageVerify:
		return "Verify"
	case StageMarkRollForward:
		return "MarkRollForward"
	case StageRollForward:
		return "RollForward"
	case StageClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// CommitStatus reports a commit's outcome, including the partial outcomes
// spec.md §4.8 calls out explicitly: a commit can succeed at roll-forward
// overall while still failing to tidy up the monitor record.
type CommitStatus int

const (
	CommitOK CommitStatus = iota
	CommitRollForwardAbandoned
	CommitCloseAbandoned
)

func (s CommitStatus) String() string {
	switch s {
	case CommitOK:
		return "OK"
	case CommitRollForwardAbandoned:
		return "ROLL_FORWARD_ABANDONED"
	case CommitCloseAbandoned:
		return "CLOSE_ABANDONED"
	default:
		return "UNKNOWN"
	}
}

// AbortStatus reports an abort's outcome.
type AbortStatus int

const (
	AbortOK AbortStatus = iota
	AbortRollBackAbandoned
	AbortCloseAbandoned
)

func (s AbortStatus) String() string {
	switch s {
	case AbortOK:
		return "OK"
	case AbortRollBackAbandoned:
		return "ROLL_BACK_ABANDONED"
	case AbortCloseAbandoned:
		return "CLOSE_ABANDONED"
	default:
		return "UNKNOWN"
	}
}

// TxnRoll drives the commit and abort state machines described in spec.md
// §4.8. It holds no state of its own beyond its collaborators; every
// mutable fact lives on the Txn being committed or aborted.
type TxnRoll struct {
	cluster Cluster
	deps    CommandDeps
}

func NewTxnRoll(cluster Cluster, deps CommandDeps) *TxnRoll {
	return &TxnRoll{cluster: cluster, deps: deps}
}

// Commit runs OPEN -> VERIFIED -> COMMITTED -> (roll-forward) -> (close),
// per spec.md §4.8's diagram. A verify failure rolls the txn back and
// raises a composite KindCommit error carrying both the verify and roll
// record arrays (spec.md §7).
func (r *TxnRoll) Commit(ctx context.Context, txn *Txn, verifyPolicy, rollPolicy BatchPolicy) (CommitStatus, error) {
	if txn.State() != TxnOpen {
		return CommitOK, newInvalidArgument("txn: commit called outside state OPEN")
	}

	verifyRecords, err := verifyTxnReads(ctx, r.cluster, verifyPolicy, txn, r.deps)
	if err != nil {
		return CommitOK, r.commitErr(StageVerify, err, verifyRecords, nil)
	}
	if mismatch := firstMismatch(verifyRecords); mismatch != nil {
		rollRecords, rollErr := rollTxnWrites(ctx, r.cluster, rollPolicy, txn, rollBack, r.deps)
		txn.transitionTo(TxnAborted)
		if txn.monitorExistsHint() {
			_ = closeMonitor(ctx, r.cluster, rollPolicy.Policy, txn, r.deps)
		}
		return CommitOK, r.commitErr(StageVerify, mismatch, verifyRecords, rollRecords).withCause(rollErr)
	}
	txn.transitionTo(TxnVerified)

	if err := markRollForward(ctx, r.cluster, rollPolicy.Policy, txn, r.deps); err != nil {
		if ae, ok := err.(*AerospikeError); ok && ae.Code == ResultMRTAborted {
			txn.noteInDoubt(false)
			txn.transitionTo(TxnAborted)
			return CommitOK, r.commitErr(StageMarkRollForward, err, verifyRecords, nil)
		}
		return CommitOK, r.commitErr(StageMarkRollForward, err, verifyRecords, nil)
	}
	txn.transitionTo(TxnCommitted)

	rollRecords, err := rollTxnWrites(ctx, r.cluster, rollPolicy, txn, rollForward, r.deps)
	if err != nil {
		return CommitRollForwardAbandoned, r.commitErr(StageRollForward, err, verifyRecords, rollRecords)
	}

	if txn.monitorExistsHint() {
		if err := closeMonitor(ctx, r.cluster, rollPolicy.Policy, txn, r.deps); err != nil {
			return CommitCloseAbandoned, r.commitErr(StageClose, err, verifyRecords, rollRecords)
		}
	}
	return CommitOK, nil
}

// Abort sets state ABORTED, batch rolls back every write, and closes the
// monitor if it may exist (spec.md §4.8's abort state machine).
func (r *TxnRoll) Abort(ctx context.Context, txn *Txn, rollPolicy BatchPolicy) (AbortStatus, error) {
	txn.transitionTo(TxnAborted)

	if _, err := rollTxnWrites(ctx, r.cluster, rollPolicy, txn, rollBack, r.deps); err != nil {
		return AbortRollBackAbandoned, err
	}
	if txn.monitorExistsHint() {
		if err := closeMonitor(ctx, r.cluster, rollPolicy.Policy, txn, r.deps); err != nil {
			return AbortCloseAbandoned, err
		}
	}
	return AbortOK, nil
}

func (r *TxnRoll) commitErr(stage CommitStage, cause error, verify, roll []BatchRecordResult) *AerospikeError {
	return &AerospikeError{
		Kind:          KindCommit,
		Stage:         stage,
		Cause:         cause,
		VerifyRecords: verify,
		RollRecords:   roll,
	}
}

func (e *AerospikeError) withCause(secondary error) *AerospikeError {
	if secondary != nil {
		e.Cause = &compositeCause{primary: e.Cause, secondary: secondary}
	}
	return e
}

// compositeCause carries both a verify failure and a secondary roll/close
// failure when both occur during the same abandoned commit (spec.md §4.8
// step 1: "a composite error carrying the original verify cause and any
// secondary roll/close cause").
type compositeCause struct {
	primary   error
	secondary error
}

func (c *compositeCause) Error() string {
	if c.secondary == nil {
		return c.primary.Error()
	}
	return c.primary.Error() + "; secondary: " + c.secondary.Error()
}

func (c *compositeCause) Unwrap() []error {
	return []error{c.primary, c.secondary}
}

func firstMismatch(records []BatchRecordResult) error {
	for _, r := range records {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// rollDirection picks which info4 MRT flag a per-key roll command sets.
type rollDirection int

const (
	rollForward rollDirection = iota
	rollBack
)

// rollTxnWrites batch-applies a roll-forward or roll-back to every key in
// txn.writes (spec.md §4.8 steps 3 and abort). Each key is its own request;
// fan-out and first-error-wins cancellation follow the same pattern as
// core/batch.go's fanOutBatch.
func rollTxnWrites(ctx context.Context, cluster Cluster, policy BatchPolicy, txn *Txn, dir rollDirection, deps CommandDeps) ([]BatchRecordResult, error) {
	keys := txn.writeSnapshot()
	results := make([]BatchRecordResult, len(keys))
	for i, k := range keys {
		results[i].Key = k
	}
	if len(keys) == 0 {
		return results, nil
	}

	concurrency := policy.MaxConcurrentThreads
	if concurrency <= 1 || len(keys) == 1 {
		for i, k := range keys {
			err := runRollKey(ctx, cluster, policy, txn, k, dir, deps)
			results[i].Err = err
			if err != nil {
				return results, err
			}
		}
		return results, nil
	}
	return results, fanOutRoll(ctx, cluster, policy, txn, keys, dir, deps, results)
}

func fanOutRoll(ctx context.Context, cluster Cluster, policy BatchPolicy, txn *Txn, keys []Key, dir rollDirection, deps CommandDeps, results []BatchRecordResult) error {
	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, policy.MaxConcurrentThreads)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, k := range keys {
		i, k := i, k
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			err := runRollKey(cancelCtx, cluster, policy, txn, k, dir, deps)
			results[i].Err = err
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func runRollKey(ctx context.Context, cluster Cluster, policy BatchPolicy, txn *Txn, key Key, dir rollDirection, deps CommandDeps) error {
	cmd := newTxnRollKeyCommand(cluster, policy.Policy, txn, key, dir, deps)
	return cmd.Execute(ctx)
}

// txnRollKeyCommand applies a roll-forward or roll-back to one key the txn
// wrote, per spec.md §4.8 step 3 / the abort state machine.
type txnRollKeyCommand struct {
	base *baseCommand
	key  Key
	txn  *Txn
	dir  rollDirection
}

func newTxnRollKeyCommand(cluster Cluster, policy Policy, txn *Txn, key Key, dir rollDirection, deps CommandDeps) *txnRollKeyCommand {
	return &txnRollKeyCommand{
		base: newBaseCommand(cluster, policy, PartitionForWrite(key), deps.Clock, deps.Metrics, deps.Log),
		key:  key,
		txn:  txn,
		dir:  dir,
	}
}

func (c *txnRollKeyCommand) Execute(ctx context.Context) error { return c.base.execute(ctx, c) }

func (c *txnRollKeyCommand) isWrite() bool                    { return true }
func (c *txnRollKeyCommand) latencyCategory() LatencyCategory { return LatencyWrite }
func (c *txnRollKeyCommand) onInDoubt(inDoubt bool)           { c.txn.noteInDoubt(inDoubt) }
func (c *txnRollKeyCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryWrite(timedOut)
}

func (c *txnRollKeyCommand) writeBuffer(base *baseCommand) error {
	fields := keyFields(c.key)
	fields = append(fields, txnFields(c.txn)...)
	h := asMsgHeader{info2: info2Write}
	if c.dir == rollForward {
		h.info4 = info4MRTRollForward
	} else {
		h.info4 = info4MRTRollBack
	}
	return writeMessage(base, h, fields, nil)
}

func (c *txnRollKeyCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, _, _, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	if code := ResultCode(hdr.resultCode); code != ResultOK {
		return newServerError(code, nodeName(base.node), base.iteration)
	}
	return nil
}

// markRollForward is the single-key command against the monitor record
// that records commit intent (spec.md §4.8 step 2). OK, MRT_COMMITTED, and
// BIN_EXISTS_ERROR are idempotent-success outcomes from a prior attempt.
func markRollForward(ctx context.Context, cluster Cluster, policy Policy, txn *Txn, deps CommandDeps) error {
	monitorKey, err := txn.monitorKey()
	if err != nil {
		return err
	}
	cmd := &txnMarkRollForwardCommand{
		base: newBaseCommand(cluster, policy, PartitionForWrite(monitorKey), deps.Clock, deps.Metrics, deps.Log),
		txn:  txn,
		key:  monitorKey,
	}
	return cmd.Execute(ctx)
}

type txnMarkRollForwardCommand struct {
	base *baseCommand
	txn  *Txn
	key  Key
}

func (c *txnMarkRollForwardCommand) Execute(ctx context.Context) error { return c.base.execute(ctx, c) }

func (c *txnMarkRollForwardCommand) isWrite() bool                    { return true }
func (c *txnMarkRollForwardCommand) latencyCategory() LatencyCategory { return LatencyWrite }

// onInDoubt is a no-op: the commit decision itself already drove state,
// per spec.md §4.8's in-doubt handling table entry for MarkRollForward.
func (c *txnMarkRollForwardCommand) onInDoubt(bool) {}

func (c *txnMarkRollForwardCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryWrite(timedOut)
}

func (c *txnMarkRollForwardCommand) writeBuffer(base *baseCommand) error {
	fields := keyFields(c.key)
	fields = append(fields, txnFields(c.txn)...)
	h := asMsgHeader{info2: info2Write, info4: info4MRTRollForward}
	return writeMessage(base, h, fields, nil)
}

func (c *txnMarkRollForwardCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, _, _, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	switch code := ResultCode(hdr.resultCode); code {
	case ResultOK, ResultMRTCommitted, ResultBinExistsError:
		return nil
	case ResultMRTAborted:
		return newServerError(code, nodeName(base.node), base.iteration)
	default:
		return newServerError(code, nodeName(base.node), base.iteration)
	}
}

// closeMonitor deletes the monitor record (spec.md §4.8 step 4 / abort's
// optional close).
func closeMonitor(ctx context.Context, cluster Cluster, policy Policy, txn *Txn, deps CommandDeps) error {
	monitorKey, err := txn.monitorKey()
	if err != nil {
		return err
	}
	cmd := &txnCloseCommand{
		base: newBaseCommand(cluster, policy, PartitionForWrite(monitorKey), deps.Clock, deps.Metrics, deps.Log),
		key:  monitorKey,
	}
	return cmd.Execute(ctx)
}

type txnCloseCommand struct {
	base *baseCommand
	key  Key
}

func (c *txnCloseCommand) Execute(ctx context.Context) error { return c.base.execute(ctx, c) }

func (c *txnCloseCommand) isWrite() bool                    { return true }
func (c *txnCloseCommand) latencyCategory() LatencyCategory { return LatencyWrite }
func (c *txnCloseCommand) onInDoubt(bool)                   {}
func (c *txnCloseCommand) prepareRetry(base *baseCommand, timedOut bool) {
	base.partition.PrepareRetryWrite(timedOut)
}

func (c *txnCloseCommand) writeBuffer(base *baseCommand) error {
	fields := keyFields(c.key)
	h := asMsgHeader{info2: info2Write | info2Delete}
	return writeMessage(base, h, fields, nil)
}

func (c *txnCloseCommand) parseResult(base *baseCommand, conn *Connection) error {
	hdr, _, _, err := readAsMsgReply(conn)
	if err != nil {
		return err
	}
	switch code := ResultCode(hdr.resultCode); code {
	case ResultOK, ResultKeyNotFound:
		return nil
	default:
		return newServerError(code, nodeName(base.node), base.iteration)
	}
}
