package syncengine

import "sync"

// laneState is an explicit state machine: a per-repo sync lane is either
// idle, draining a pass, or draining a pass with a fresh event already
// pending behind it. One enum instead of two bools that could disagree.
type laneState int

const (
	laneIdle laneState = iota
	laneRunning
	laneRunningDirty
)

// lane serializes all sync work for one repo: at most one pass runs at a
// time, and at most one more is queued behind it.
type lane struct {
	mu    sync.Mutex
	state laneState
}

// tryStart reports whether the caller should begin a pass now. If a pass
// is already running, it marks the lane dirty and returns false; the
// currently-running pass is responsible for rescheduling via finish.
func (l *lane) tryStart() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case laneIdle:
		l.state = laneRunning
		return true
	case laneRunning:
		l.state = laneRunningDirty
		return false
	default: // laneRunningDirty
		return false
	}
}

// finish ends the current pass and reports whether another pass should run
// immediately because a fresh event arrived while this one was draining.
func (l *lane) finish() (runAgain bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case laneRunningDirty:
		l.state = laneRunning
		return true
	default:
		l.state = laneIdle
		return false
	}
}
