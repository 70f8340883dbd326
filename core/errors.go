package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the command execution core can raise
// into exactly one of the kinds from spec.md §7.
type ErrorKind int

const (
	KindServerError ErrorKind = iota
	KindTimeout
	KindConnection
	KindParse
	KindBackoff
	KindInvalidArgument
	KindCommit
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindServerError:
		return "ServerError"
	case KindTimeout:
		return "Timeout"
	case KindConnection:
		return "Connection"
	case KindParse:
		return "Parse"
	case KindBackoff:
		return "Backoff"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindCommit:
		return "Commit"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// AerospikeError is the single error type returned across every command
// boundary. Every failure carries node/policy/iteration context so a caller
// (or a log line) can tell which attempt, against which node, produced it.
type AerospikeError struct {
	Kind       ErrorKind
	Code       ResultCode
	Node       string // node id, empty if the failure predates node selection
	Iteration  int
	InDoubt    bool
	ClientTime bool // true when Kind==Timeout and the client, not the server, gave up
	Cause      error

	// Commit-only fields (Kind==KindCommit).
	Stage         CommitStage
	VerifyRecords []BatchRecordResult
	RollRecords   []BatchRecordResult
}

func (e *AerospikeError) Error() string {
	msg := fmt.Sprintf("aerospike: %s", e.Kind)
	if e.Code != 0 || e.Kind == KindServerError {
		msg += fmt.Sprintf(" code=%s", e.Code)
	}
	if e.Node != "" {
		msg += fmt.Sprintf(" node=%s", e.Node)
	}
	if e.Iteration > 0 {
		msg += fmt.Sprintf(" iteration=%d", e.Iteration)
	}
	if e.InDoubt {
		msg += " in_doubt=true"
	}
	if e.Kind == KindCommit {
		msg += fmt.Sprintf(" stage=%s", e.Stage)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AerospikeError) Unwrap() error { return e.Cause }

func newServerError(code ResultCode, node string, iteration int) *AerospikeError {
	return &AerospikeError{Kind: KindServerError, Code: code, Node: node, Iteration: iteration}
}

func newTimeoutError(clientTime bool, node string, iteration int) *AerospikeError {
	code := ResultTimeout
	if clientTime {
		code = ResultClientTimeout
	}
	return &AerospikeError{Kind: KindTimeout, Code: code, Node: node, Iteration: iteration, ClientTime: clientTime}
}

func newConnectionError(cause error, node string, iteration int) *AerospikeError {
	return &AerospikeError{Kind: KindConnection, Code: ResultClientConnError, Node: node, Iteration: iteration, Cause: cause}
}

func newParseError(cause error, node string) *AerospikeError {
	return &AerospikeError{Kind: KindParse, Code: ResultClientParseErr, Node: node, Cause: cause}
}

func newBackoffError(node string) *AerospikeError {
	return &AerospikeError{Kind: KindBackoff, Code: ResultClientBackoff, Node: node}
}

func newInvalidArgument(msg string) *AerospikeError {
	return &AerospikeError{Kind: KindInvalidArgument, Code: ResultParameterError, Cause: errors.New(msg)}
}

// IsInDoubt reports whether err (any error, not necessarily *AerospikeError)
// carries the in-doubt classification described in spec.md §4.4.
func IsInDoubt(err error) bool {
	var ae *AerospikeError
	if errors.As(err, &ae) {
		return ae.InDoubt
	}
	return false
}

// ErrCancelled is returned verbatim (never wrapped as a timeout) when a
// caller-supplied context is cancelled mid-attempt, per spec.md §5.
var ErrCancelled = &AerospikeError{Kind: KindCancelled, Code: ResultClientCancelled, Cause: errors.New("command cancelled")}
