package core

import "time"

// GenerationPolicy controls how a write's generation check is enforced.
type GenerationPolicy int

const (
	GenerationNone GenerationPolicy = iota
	GenerationExpect
	GenerationGT
)

// RecordExistsAction controls a write's create/replace semantics.
type RecordExistsAction int

const (
	RecordExistsUpdate RecordExistsAction = iota
	RecordExistsUpdateOnly
	RecordExistsReplace
	RecordExistsReplaceOnly
	RecordExistsCreateOnly
)

// CommitLevel controls how many replicas must acknowledge a write before
// the server responds.
type CommitLevel int

const (
	CommitAll CommitLevel = iota
	CommitMaster
)

// Policy holds the options common to every command (spec.md §6).
type Policy struct {
	SocketTimeout      time.Duration
	TotalTimeout       time.Duration
	TimeoutDelay       time.Duration
	MaxRetries         int
	SleepBetweenRetries time.Duration
	Replica            ReplicaPolicy
	Compress           bool
	FilterExp          []byte // pre-encoded filter expression, opaque to this layer
	Txn                *Txn
	FailOnFilteredOut  bool
}

// DefaultPolicy mirrors the historical client's out-of-the-box defaults:
// bounded total timeout, a handful of retries, no sleep penalty between
// them severe enough to matter for interactive use.
func DefaultPolicy() Policy {
	return Policy{
		SocketTimeout:       30 * time.Second,
		TotalTimeout:        1 * time.Second,
		MaxRetries:          2,
		SleepBetweenRetries: 0,
		Replica:             ReplicaSequence,
	}
}

// WritePolicy extends Policy with write-specific options (spec.md §6).
type WritePolicy struct {
	Policy
	GenerationPolicy   GenerationPolicy
	Generation         uint32
	Expiration         uint32
	RecordExistsAction RecordExistsAction
	CommitLevel        CommitLevel
	DurableDelete      bool
	RespondAllOps      bool
}

// DefaultWritePolicy returns a WritePolicy built on DefaultPolicy.
func DefaultWritePolicy() WritePolicy {
	return WritePolicy{Policy: DefaultPolicy()}
}

// BatchPolicy controls batch fan-out (spec.md §4.7/§6).
type BatchPolicy struct {
	Policy
	MaxConcurrentThreads int
	AllowInline          bool
	AllowProleReads      bool
	SendSetName          bool
	RespondAllKeys       bool
}

// DefaultBatchPolicy returns a BatchPolicy built on DefaultPolicy.
func DefaultBatchPolicy() BatchPolicy {
	p := BatchPolicy{Policy: DefaultPolicy()}
	p.MaxConcurrentThreads = 1
	return p
}

// ScanPolicy controls scan/query streaming (spec.md §4.6/§6).
type ScanPolicy struct {
	Policy
	ConcurrentNodes bool
	MaxRecords      int64
	RecordsPerSecond int
	IncludeBinData  bool
}

// DefaultScanPolicy returns a ScanPolicy built on DefaultPolicy, with an
// effectively infinite total timeout since scans are long-running by
// nature.
func DefaultScanPolicy() ScanPolicy {
	p := ScanPolicy{Policy: DefaultPolicy()}
	p.TotalTimeout = 0
	p.IncludeBinData = true
	return p
}

// AdminPolicy controls admin sub-protocol calls (spec.md §6).
type AdminPolicy struct {
	Timeout time.Duration
}

func DefaultAdminPolicy() AdminPolicy {
	return AdminPolicy{Timeout: 1 * time.Second}
}
