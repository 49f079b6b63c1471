package measure

import "sync/atomic"

// Trigger is an edge-triggered force-sync request. Raise sets it and the
// next pass consumes it.
type Trigger struct {
	pending atomic.Bool
}

// Raise requests that the next pass update every marker.
func (t *Trigger) Raise() { t.pending.Store(true) }

// Pending reports whether a request is waiting.
func (t *Trigger) Pending() bool { return t.pending.Load() }

// Consume returns whether a request was pending and clears it.
func (t *Trigger) Consume() bool { return t.pending.Swap(false) }
