package paya

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Covers the ring-index arithmetic AcquireNextImage and Current*Semaphore
// use: the acquire-ring index must wrap at maxFramesInFlight and never read
// out of bounds.
func TestNextRingSlotWraps(t *testing.T) {
	require.Equal(t, uint64(1), nextRingSlot(0, 3))
	require.Equal(t, uint64(2), nextRingSlot(1, 3))
	require.Equal(t, uint64(0), nextRingSlot(2, 3))
	require.Equal(t, uint64(0), nextRingSlot(5, 3))
}

func TestCurrentRingSlotWraps(t *testing.T) {
	assert.Equal(t, uint64(0), currentRingSlot(0, 3))
	assert.Equal(t, uint64(2), currentRingSlot(2, 3))
	assert.Equal(t, uint64(0), currentRingSlot(3, 3))
	assert.Equal(t, uint64(1), currentRingSlot(4, 3))
}

// currentRingSlot and nextRingSlot must stay one apart (mod
// maxFramesInFlight) at every cpuTimeline, since AcquireNextImage signals
// the next slot's semaphore and then advances cpuTimeline onto that slot.
func TestRingSlotsStayOneApart(t *testing.T) {
	const maxFramesInFlight = 3
	for cpuTimeline := uint64(0); cpuTimeline < 20; cpuTimeline++ {
		current := currentRingSlot(cpuTimeline, maxFramesInFlight)
		next := nextRingSlot(cpuTimeline, maxFramesInFlight)
		assert.Equal(t, (current+1)%maxFramesInFlight, next)
	}
}

func TestRingSlotSingleFrameInFlight(t *testing.T) {
	assert.Equal(t, uint64(0), nextRingSlot(0, 1))
	assert.Equal(t, uint64(0), nextRingSlot(41, 1))
	assert.Equal(t, uint64(0), currentRingSlot(41, 1))
}
