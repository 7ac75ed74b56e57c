package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedTimeProvider(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("CST", -6*3600))
	clock := NewFixedTimeProvider(start)
	assert.Equal(t, time.UTC, clock.Now().Location())
	assert.True(t, clock.Now().Equal(start))

	clock.AddTime(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second).UTC(), clock.Now())

	later := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	clock.SetTime(later)
	assert.Equal(t, later, clock.Now())

	assert.IsType(t, &RealTimeProvider{}, timeProviderOrReal(nil))
	assert.Same(t, clock, timeProviderOrReal(clock))
}
