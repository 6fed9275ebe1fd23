package bootloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingFIFOOrdering(t *testing.T) {
	r := &ring{}

	for i := 0; i < 5; i++ {
		ok := r.enqueue([]byte{byte(i), 0x05}, 2)
		require.True(t, ok)
	}

	for i := 0; i < 5; i++ {
		data, ok := r.dequeue()
		require.True(t, ok)
		assert.Equal(t, byte(i), data[0])
	}

	_, ok := r.dequeue()
	assert.False(t, ok, "dequeue on empty ring must report false")
}

// TestRingOverflow matches the 20-enqueue-without-draining scenario: the
// first BufferSize enqueues succeed, the rest are dropped and counted.
func TestRingOverflow(t *testing.T) {
	r := &ring{}

	succeeded := 0
	for i := 0; i < 20; i++ {
		if r.enqueue([]byte{byte(i), 0x05}, 2) {
			succeeded++
		}
	}

	assert.Equal(t, BufferSize, succeeded)
	assert.Equal(t, uint32(20-BufferSize), r.droppedCount())
	assert.Equal(t, BufferSize, r.occupancy())
}

func TestRingRejectsOutOfRangeLength(t *testing.T) {
	r := &ring{}

	assert.False(t, r.enqueue([]byte{0x01}, 1), "frame shorter than minPacketSize must be rejected")
	assert.False(t, r.enqueue(make([]byte, MaxPacketSize+1), MaxPacketSize+1), "frame longer than MaxPacketSize must be rejected")
	assert.Equal(t, uint32(2), r.droppedCount())
}

func TestRingResetDropped(t *testing.T) {
	r := &ring{}
	r.enqueue([]byte{0x01}, 1)
	require.Equal(t, uint32(1), r.droppedCount())

	r.resetDropped()
	assert.Equal(t, uint32(0), r.droppedCount())
}
