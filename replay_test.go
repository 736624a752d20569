package srtp

import "testing"

func TestReplayWindowAcceptsForwardProgress(t *testing.T) {
	var w ReplayWindow
	if w.HasAccepted() {
		t.Fatal("fresh window should not report any accepted packet")
	}

	if got := w.Check(1); got != replayAccept {
		t.Fatalf("expected accept, got %v", got)
	}
	w.Accept(1)
	if !w.HasAccepted() {
		t.Fatal("expected HasAccepted after first Accept")
	}
}

func TestReplayWindowRejectsDuplicate(t *testing.T) {
	var w ReplayWindow
	w.Accept(1)

	if got := w.Check(0); got != replayDuplicate {
		t.Fatalf("expected duplicate at delta 0, got %v", got)
	}
}

func TestReplayWindowRejectsTooOld(t *testing.T) {
	var w ReplayWindow
	w.Accept(1000)

	if got := w.Check(-64); got != replayTooOld {
		t.Fatalf("expected too-old at delta -64, got %v", got)
	}
}

func TestReplayWindowMarksHistoricalBit(t *testing.T) {
	var w ReplayWindow
	w.Accept(4) // high-water mark advances by 4

	if got := w.Check(-4); got != replayAccept {
		t.Fatalf("expected accept for never-seen historical slot, got %v", got)
	}
	w.Accept(-4)
	if got := w.Check(-4); got != replayDuplicate {
		t.Fatalf("expected duplicate after marking historical slot, got %v", got)
	}
}

func TestReplayWindowLargeForwardJumpResetsToSingleBit(t *testing.T) {
	var w ReplayWindow
	w.Accept(1)
	w.Accept(replayWindowSize + 10)

	if got := w.Check(0); got != replayDuplicate {
		t.Fatalf("expected the new high-water mark to be a duplicate on retry, got %v", got)
	}
	// The jump discarded window history; slots below the new high-water
	// mark that were never explicitly marked read as unseen, not rejected.
	if got := w.Check(-1); got != replayAccept {
		t.Fatalf("expected an unmarked historical slot to be accepted, got %v", got)
	}
	if got := w.Check(-replayWindowSize); got != replayTooOld {
		t.Fatalf("expected anything at or beyond the window size to be too old, got %v", got)
	}
}
