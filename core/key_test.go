package core

import "testing"

func TestNewKeyDigestDeterministic(t *testing.T) {
	k1, err := NewKey("test", "demo", StringValue("user-1"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	k2, err := NewKey("test", "demo", StringValue("user-1"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if k1.Digest() != k2.Digest() {
		t.Fatalf("expected identical digests for identical inputs")
	}

	k3, err := NewKey("test", "demo", StringValue("user-2"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if k1.Digest() == k3.Digest() {
		t.Fatalf("expected different digests for different user keys")
	}
}

func TestNewKeyRejectsEmptyNamespace(t *testing.T) {
	if _, err := NewKey("", "demo", StringValue("x")); err == nil {
		t.Fatalf("expected error for empty namespace")
	}
}

func TestNewKeyRejectsCompositeUserKey(t *testing.T) {
	if _, err := NewKey("test", "demo", ListValue([]Value{IntegerValue(1)})); err == nil {
		t.Fatalf("expected error for list user key")
	}
	if _, err := NewKey("test", "demo", MapValue(nil, nil)); err == nil {
		t.Fatalf("expected error for map user key")
	}
}

func TestKeyEqualByDigestOnly(t *testing.T) {
	d := Digest{1, 2, 3}
	a := NewKeyFromDigest("test", "demo", d)
	b := NewKeyFromDigest("test", "other-set", d)
	if !a.Equal(b) {
		t.Fatalf("keys sharing a digest must be Equal regardless of set")
	}
}

func TestPartitionIDWithinRange(t *testing.T) {
	k, err := NewKey("test", "demo", StringValue("some-key"))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if id := k.PartitionID(); id >= 4096 {
		t.Fatalf("partition id %d out of the 12-bit range", id)
	}
}
