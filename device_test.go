package paya

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Covers the frame-reclamation-window scenario: CollectGarbage must sweep
// exactly {g, g-1, g-2}, clamped so no index underflows below zero.
func TestGarbageWindowIndicesClampedAtZero(t *testing.T) {
	assert.Equal(t, []uint64{0}, garbageWindowIndices(0))
	assert.Equal(t, []uint64{1, 0}, garbageWindowIndices(1))
	assert.Equal(t, []uint64{2, 1, 0}, garbageWindowIndices(2))
}

func TestGarbageWindowIndicesSteadyState(t *testing.T) {
	assert.Equal(t, []uint64{5, 4, 3}, garbageWindowIndices(5))
	assert.Equal(t, []uint64{100, 99, 98}, garbageWindowIndices(100))
}

// When g advances by one per call, every bucket index up to the last g is
// swept by at least one call.
func TestGarbageWindowIndicesCoverEveryBucketAcrossCalls(t *testing.T) {
	swept := make(map[uint64]bool)
	for g := uint64(0); g <= 10; g++ {
		for _, idx := range garbageWindowIndices(g) {
			swept[idx] = true
		}
	}
	for want := uint64(0); want <= 10; want++ {
		assert.True(t, swept[want], "bucket %d was never swept", want)
	}
}
