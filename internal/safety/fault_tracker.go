package safety

import (
	"sync"
	"time"
)

// FaultTrackerConfig holds configuration for a fault tracker.
type FaultTrackerConfig struct {
	// EscalationThreshold is the number of consecutive faults after
	// which the tracker signals escalation.
	EscalationThreshold uint32

	// QuietPeriod resets the consecutive count when no fault has been
	// recorded for this long.
	QuietPeriod time.Duration
}

// FaultTracker counts consecutive recoverable faults for one external
// dependency. Single failed cycles stay recoverable; a run of failures
// past the threshold tells the caller to escalate. A success or a quiet
// period resets the count.
type FaultTracker struct {
	config      FaultTrackerConfig
	name        string
	consecutive uint32
	total       uint64
	lastFault   time.Time
	mu          sync.RWMutex
	onEscalate  func(name string, consecutive uint32)
}

// NewFaultTracker creates a fault tracker for a named dependency.
func NewFaultTracker(name string, config FaultTrackerConfig) *FaultTracker {
	if config.EscalationThreshold == 0 {
		config.EscalationThreshold = 5
	}
	if config.QuietPeriod == 0 {
		config.QuietPeriod = 5 * time.Minute
	}
	return &FaultTracker{
		config: config,
		name:   name,
	}
}

// SetEscalationCallback registers a callback invoked once each time the
// consecutive count reaches the threshold.
func (t *FaultTracker) SetEscalationCallback(callback func(name string, consecutive uint32)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEscalate = callback
}

// RecordFault records one failed operation and reports whether the
// caller should escalate.
func (t *FaultTracker) RecordFault() bool {
	t.mu.Lock()

	now := time.Now()
	if !t.lastFault.IsZero() && now.Sub(t.lastFault) > t.config.QuietPeriod {
		t.consecutive = 0
	}
	t.consecutive++
	t.total++
	t.lastFault = now

	escalate := t.consecutive >= t.config.EscalationThreshold
	fire := escalate && t.consecutive == t.config.EscalationThreshold && t.onEscalate != nil
	callback := t.onEscalate
	consecutive := t.consecutive
	t.mu.Unlock()

	if fire {
		callback(t.name, consecutive)
	}
	return escalate
}

// RecordSuccess resets the consecutive fault count.
func (t *FaultTracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive = 0
}

// ShouldEscalate reports whether the threshold is currently exceeded.
func (t *FaultTracker) ShouldEscalate() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.consecutive >= t.config.EscalationThreshold
}

// Reset clears all fault state.
func (t *FaultTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive = 0
	t.lastFault = time.Time{}
}

// FaultStats is a point-in-time view of a tracker.
type FaultStats struct {
	Name        string
	Consecutive uint32
	Total       uint64
	LastFault   time.Time
}

// Stats returns the tracker's current statistics.
func (t *FaultTracker) Stats() FaultStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return FaultStats{
		Name:        t.name,
		Consecutive: t.consecutive,
		Total:       t.total,
		LastFault:   t.lastFault,
	}
}
