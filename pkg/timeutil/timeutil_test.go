package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestStamp_TruncatesToMillis(t *testing.T) {
	c := FixedClock{T: time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)}
	assert.Equal(t, 123000000, Stamp(c).Nanosecond())
	assert.Equal(t, "2026-03-01T10:00:00.123Z", ISO(Stamp(c)))
}

func TestParseClock(t *testing.T) {
	ct, err := ParseClock("16:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(16*60+30), ct)
	assert.Equal(t, "16:30", ct.String())

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}
