package safety

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFaultTracker_EscalatesAtThreshold(t *testing.T) {
	tracker := NewFaultTracker("venue", FaultTrackerConfig{EscalationThreshold: 3})

	assert.False(t, tracker.RecordFault())
	assert.False(t, tracker.RecordFault())
	assert.True(t, tracker.RecordFault())
	assert.True(t, tracker.ShouldEscalate())
}

func TestFaultTracker_SuccessResetsCount(t *testing.T) {
	tracker := NewFaultTracker("venue", FaultTrackerConfig{EscalationThreshold: 3})

	tracker.RecordFault()
	tracker.RecordFault()
	tracker.RecordSuccess()

	assert.False(t, tracker.RecordFault())
	assert.False(t, tracker.ShouldEscalate())
}

func TestFaultTracker_QuietPeriodResetsCount(t *testing.T) {
	tracker := NewFaultTracker("venue", FaultTrackerConfig{
		EscalationThreshold: 2,
		QuietPeriod:         10 * time.Millisecond,
	})

	tracker.RecordFault()
	time.Sleep(20 * time.Millisecond)

	assert.False(t, tracker.RecordFault())
}

func TestFaultTracker_CallbackFiresOnce(t *testing.T) {
	tracker := NewFaultTracker("venue", FaultTrackerConfig{EscalationThreshold: 2})

	var calls int32
	tracker.SetEscalationCallback(func(name string, consecutive uint32) {
		assert.Equal(t, "venue", name)
		assert.Equal(t, uint32(2), consecutive)
		atomic.AddInt32(&calls, 1)
	})

	tracker.RecordFault()
	tracker.RecordFault()
	tracker.RecordFault()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFaultTracker_StatsAndReset(t *testing.T) {
	tracker := NewFaultTracker("venue", FaultTrackerConfig{EscalationThreshold: 5})

	tracker.RecordFault()
	tracker.RecordFault()

	stats := tracker.Stats()
	assert.Equal(t, "venue", stats.Name)
	assert.Equal(t, uint32(2), stats.Consecutive)
	assert.Equal(t, uint64(2), stats.Total)
	assert.False(t, stats.LastFault.IsZero())

	tracker.Reset()
	stats = tracker.Stats()
	assert.Equal(t, uint32(0), stats.Consecutive)
	assert.Equal(t, uint64(2), stats.Total)
}

func TestFaultTracker_Defaults(t *testing.T) {
	tracker := NewFaultTracker("venue", FaultTrackerConfig{})

	for i := 0; i < 4; i++ {
		assert.False(t, tracker.RecordFault())
	}
	assert.True(t, tracker.RecordFault())
}
