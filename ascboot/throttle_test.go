package ascboot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_NotThrottledUntilFull(t *testing.T) {
	th := NewThrottle(4)
	th.Add(false)
	th.Add(false)
	assert.False(t, th.Throttled(), "ring not yet full")
}

// S3 - Nothing-new throttling: 32 pulls, all nothing_new, throttled becomes true.
func TestThrottle_AllFailuresThrottles(t *testing.T) {
	th := NewThrottle(32)
	for i := 0; i < 32; i++ {
		th.Add(false)
	}

	require.Equal(t, 32, th.Size())
	assert.Equal(t, 0, th.Successes())
	assert.True(t, th.Throttled())
}

func TestThrottle_AboveWatermarkNotThrottled(t *testing.T) {
	th := NewThrottle(4)
	th.Add(true)
	th.Add(true)
	th.Add(true)
	th.Add(false)

	assert.False(t, th.Throttled())
}

func TestThrottle_ResizeShrinkKeepsMostRecent(t *testing.T) {
	th := NewThrottle(4)
	th.Add(true)
	th.Add(false)
	th.Add(true)
	th.Add(true)

	th.Resize(2)

	assert.Equal(t, 2, th.Capacity())
	assert.Equal(t, 2, th.Size())
	assert.Equal(t, 2, th.Successes())
}

func TestThrottle_ResizeGrowPreservesSamples(t *testing.T) {
	th := NewThrottle(2)
	th.Add(true)
	th.Add(false)

	th.Resize(5)

	assert.Equal(t, 5, th.Capacity())
	assert.Equal(t, 2, th.Size())
	assert.Equal(t, 1, th.Successes())
	assert.False(t, th.Throttled())
}

func TestComputeCapacity_ClampsToMinimum(t *testing.T) {
	assert.Equal(t, 16, ComputeCapacity(8, 1))
}

func TestComputeCapacity_ScalesWithSqrtBlockCount(t *testing.T) {
	got := ComputeCapacity(8, 10000)
	assert.Equal(t, 800, got)
}
