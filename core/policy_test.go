package core

import "testing"

func TestDefaultPolicyShape(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxRetries <= 0 {
		t.Fatalf("expected a positive default retry count")
	}
	if p.Replica != ReplicaSequence {
		t.Fatalf("expected ReplicaSequence default replica policy, got %v", p.Replica)
	}
	if p.TotalTimeout <= 0 {
		t.Fatalf("expected a bounded default total timeout")
	}
}

func TestDefaultWritePolicyEmbedsPolicy(t *testing.T) {
	wp := DefaultWritePolicy()
	if wp.MaxRetries != DefaultPolicy().MaxRetries {
		t.Fatalf("WritePolicy should inherit Policy defaults")
	}
	if wp.GenerationPolicy != GenerationNone {
		t.Fatalf("expected GenerationNone default")
	}
}

func TestDefaultBatchPolicySingleThreaded(t *testing.T) {
	bp := DefaultBatchPolicy()
	if bp.MaxConcurrentThreads != 1 {
		t.Fatalf("expected a sequential default, got %d", bp.MaxConcurrentThreads)
	}
}

func TestDefaultScanPolicyHasNoTotalTimeout(t *testing.T) {
	sp := DefaultScanPolicy()
	if sp.TotalTimeout != 0 {
		t.Fatalf("expected scans to default to an unbounded total timeout, got %v", sp.TotalTimeout)
	}
	if !sp.IncludeBinData {
		t.Fatalf("expected scans to include bin data by default")
	}
}

func TestDefaultAdminPolicyHasTimeout(t *testing.T) {
	ap := DefaultAdminPolicy()
	if ap.Timeout <= 0 {
		t.Fatalf("expected a positive default admin timeout")
	}
}
