package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now(), "fixed clock does not drift")

	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestRealClock(t *testing.T) {
	c := New()
	before := time.Now()
	now := c.Now()
	assert.False(t, now.Before(before))
}
