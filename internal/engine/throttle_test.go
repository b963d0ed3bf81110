package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadThrottle_SpacingEnforced(t *testing.T) {
	t.Parallel()

	th := NewLoadThrottle(500 * time.Millisecond)
	base := time.Now()

	assert.True(t, th.ShouldLoad(base))
	th.RecordLoad(base)

	// Within the spacing window: denied.
	assert.False(t, th.ShouldLoad(base.Add(100*time.Millisecond)))
	assert.False(t, th.ShouldLoad(base.Add(499*time.Millisecond)))

	// After the spacing window: allowed again.
	assert.True(t, th.ShouldLoad(base.Add(500*time.Millisecond)))
}

func TestLoadThrottle_ShouldLoadDoesNotConsume(t *testing.T) {
	t.Parallel()

	th := NewLoadThrottle(500 * time.Millisecond)
	base := time.Now()

	// Repeated checks without RecordLoad never consume the slot.
	for i := 0; i < 5; i++ {
		assert.True(t, th.ShouldLoad(base))
	}
}
