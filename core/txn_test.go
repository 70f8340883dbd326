package core

import "testing"

func TestNewTxnStartsOpen(t *testing.T) {
	txn := NewTxn(1, "test")
	if txn.State() != TxnOpen {
		t.Fatalf("new txn state = %v, want OPEN", txn.State())
	}
	if txn.InDoubt() {
		t.Fatalf("new txn should not be in doubt")
	}
}

func TestRecordReadAndWriteTrackedUntilTerminal(t *testing.T) {
	txn := NewTxn(2, "test")
	k1 := mustKey(t, "test", "demo", "a")
	k2 := mustKey(t, "test", "demo", "b")

	if err := txn.recordRead(k1, 7); err != nil {
		t.Fatalf("recordRead: %v", err)
	}
	added, err := txn.recordWrite(k2)
	if err != nil || !added {
		t.Fatalf("recordWrite = (%t,%v), want (true,nil)", added, err)
	}
	// recording the same write key again reports it was already present.
	added, err = txn.recordWrite(k2)
	if err != nil || added {
		t.Fatalf("second recordWrite = (%t,%v), want (false,nil)", added, err)
	}

	if len(txn.readSnapshot()) != 1 || len(txn.writeSnapshot()) != 1 {
		t.Fatalf("expected one tracked read and one tracked write")
	}

	txn.transitionTo(TxnAborted)
	if err := txn.recordRead(k1, 8); err == nil {
		t.Fatalf("expected recordRead to reject a terminal-state txn")
	}
	if _, err := txn.recordWrite(k1); err == nil {
		t.Fatalf("expected recordWrite to reject a terminal-state txn")
	}
}

func TestTransitionToIsMonotoneOnceTerminal(t *testing.T) {
	txn := NewTxn(3, "test")
	txn.transitionTo(TxnCommitted)
	if txn.State() != TxnCommitted {
		t.Fatalf("state = %v, want COMMITTED", txn.State())
	}
	txn.transitionTo(TxnOpen)
	if txn.State() != TxnCommitted {
		t.Fatalf("terminal state must not revert, got %v", txn.State())
	}
}

func TestNoteInDoubtMarksMonitorExists(t *testing.T) {
	txn := NewTxn(4, "test")
	if txn.monitorExistsHint() {
		t.Fatalf("fresh txn should not assume a monitor record exists")
	}
	txn.noteInDoubt(true)
	if !txn.InDoubt() || !txn.monitorExistsHint() {
		t.Fatalf("an in-doubt write must flip both InDoubt and monitorExists")
	}
}

func TestMonitorKeyDeterministic(t *testing.T) {
	txn := NewTxn(5, "test")
	k1, err := txn.monitorKey()
	if err != nil {
		t.Fatalf("monitorKey: %v", err)
	}
	k2, err := txn.monitorKey()
	if err != nil {
		t.Fatalf("monitorKey: %v", err)
	}
	if !k1.Equal(k2) {
		t.Fatalf("monitorKey should be stable across calls")
	}
}
