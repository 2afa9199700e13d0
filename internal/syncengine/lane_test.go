package syncengine

import "testing"

func TestLaneTryStartAllowsOneRunner(t *testing.T) {
	var l lane
	if !l.tryStart() {
		t.Fatal("first tryStart should succeed from idle")
	}
	if l.tryStart() {
		t.Fatal("second tryStart while running should fail")
	}
}

func TestLaneFinishRunsAgainWhenMarkedDirty(t *testing.T) {
	var l lane
	l.tryStart()
	l.tryStart() // marks dirty
	if !l.finish() {
		t.Fatal("finish should report runAgain after a dirty mark")
	}
	// the second virtual pass consumed the dirty bit; nothing pending now.
	if l.finish() {
		t.Fatal("finish should not report runAgain once drained")
	}
}

func TestLaneFinishIdleWhenNeverMarkedDirty(t *testing.T) {
	var l lane
	l.tryStart()
	if l.finish() {
		t.Fatal("finish should not report runAgain with no interleaved event")
	}
	if l.state != laneIdle {
		t.Errorf("state = %v, want idle", l.state)
	}
}
