package useCases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func scheduleAt(t *testing.T, hour int) *Schedule {
	t.Helper()
	s := NewSchedule(true, 21, 7, testLogger())
	s.now = func() time.Time {
		return time.Date(2026, 8, 29, hour, 30, 0, 0, s.loc)
	}
	s.apply()
	return s
}

func TestScheduleQuietWindowWrapsMidnight(t *testing.T) {
	assert.True(t, scheduleAt(t, 22).Paused())
	assert.True(t, scheduleAt(t, 3).Paused())
	assert.False(t, scheduleAt(t, 12).Paused())
	assert.False(t, scheduleAt(t, 7).Paused())
	assert.True(t, scheduleAt(t, 21).Paused())
}

func TestScheduleManualPauseOverridesClock(t *testing.T) {
	s := scheduleAt(t, 12)
	s.Pause()
	assert.True(t, s.Paused())

	// The clock tick must not lift a manual pause.
	s.apply()
	assert.True(t, s.Paused())
}

func TestScheduleResumeReturnsControlToClock(t *testing.T) {
	s := scheduleAt(t, 22)
	s.Pause()
	s.Resume()

	// Resume lifts the override, but the quiet window still applies.
	assert.True(t, s.Paused())

	day := scheduleAt(t, 12)
	day.Pause()
	day.Resume()
	assert.False(t, day.Paused())
}

func TestScheduleDisabledNeverAutoPauses(t *testing.T) {
	s := NewSchedule(false, 21, 7, testLogger())
	s.now = func() time.Time {
		return time.Date(2026, 8, 29, 23, 0, 0, 0, s.loc)
	}
	s.apply()
	assert.False(t, s.Paused())

	s.Pause()
	assert.True(t, s.Paused())
	s.Resume()
	assert.False(t, s.Paused())
}
