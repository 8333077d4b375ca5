package checkpoint

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDue(t *testing.T) {
	last := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	interval := 10 * time.Minute

	t.Run("exactly the interval is not due", func(t *testing.T) {
		assert.False(t, IsDue(last.Add(interval), last, interval))
	})

	t.Run("just past the interval is due", func(t *testing.T) {
		assert.True(t, IsDue(last.Add(interval+time.Nanosecond), last, interval))
	})

	t.Run("before the interval is not due", func(t *testing.T) {
		assert.False(t, IsDue(last.Add(5*time.Minute), last, interval))
	})

	t.Run("clock behind last checkpoint is not due", func(t *testing.T) {
		assert.False(t, IsDue(last.Add(-time.Hour), last, interval))
	})
}

func TestScheduler(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("initialized to start time", func(t *testing.T) {
		s := NewScheduler(time.Minute, start)
		assert.Equal(t, start, s.Last())
		assert.Equal(t, time.Minute, s.Interval())
		assert.False(t, s.Due(start))
	})

	t.Run("default interval", func(t *testing.T) {
		s := NewScheduler(0, start)
		assert.Equal(t, DefaultInterval, s.Interval())
	})

	t.Run("record resets the threshold", func(t *testing.T) {
		s := NewScheduler(DefaultInterval, start)
		checkpointAt := start.Add(15 * time.Minute)
		require.True(t, s.Due(checkpointAt))

		state := s.Record(checkpointAt)
		assert.Equal(t, checkpointAt, state.LastCheckpoint)
		assert.False(t, s.Due(checkpointAt))
		assert.False(t, s.Due(checkpointAt.Add(DefaultInterval)))
		assert.True(t, s.Due(checkpointAt.Add(DefaultInterval+time.Millisecond)))
	})

	t.Run("next due is the first instant past the interval", func(t *testing.T) {
		s := NewScheduler(time.Minute, start)
		assert.True(t, s.Due(s.NextDue()))
		assert.False(t, s.Due(s.NextDue().Add(-time.Nanosecond)))
	})
}

func TestRecordPolicy(t *testing.T) {
	t.Run("parse", func(t *testing.T) {
		p, err := ParseRecordPolicy("")
		require.NoError(t, err)
		assert.Equal(t, RecordOnSuccess, p)

		p, err = ParseRecordPolicy(" Attempt ")
		require.NoError(t, err)
		assert.Equal(t, RecordOnAttempt, p)

		_, err = ParseRecordPolicy("always")
		assert.Error(t, err)
	})

	t.Run("should record", func(t *testing.T) {
		saveErr := errors.New("gateway down")

		assert.True(t, RecordOnSuccess.ShouldRecord(nil))
		assert.False(t, RecordOnSuccess.ShouldRecord(saveErr))
		assert.True(t, RecordOnAttempt.ShouldRecord(nil))
		assert.True(t, RecordOnAttempt.ShouldRecord(saveErr))
	})
}
