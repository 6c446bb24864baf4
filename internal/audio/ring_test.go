package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func block(start int16, frames, channels int) []int16 {
	out := make([]int16, frames*channels)
	for i := range out {
		out[i] = start + int16(i)
	}
	return out
}

func TestRingFIFO(t *testing.T) {
	r := newFrameRing(4, 8, 1)
	r.push(block(0, 8, 1))
	r.push(block(100, 8, 1))

	dst := make([]int16, 8)
	n := r.pop(dst)
	assert.Equal(t, 8, n)
	assert.Equal(t, int16(0), dst[0])

	n = r.pop(dst)
	assert.Equal(t, 8, n)
	assert.Equal(t, int16(100), dst[0])

	assert.Equal(t, 0, r.pop(dst))
	assert.Equal(t, uint64(0), r.droppedFrames())
}

func TestRingDropsOldestOnOverflow(t *testing.T) {
	r := newFrameRing(2, 4, 1)
	r.push(block(0, 4, 1))
	r.push(block(10, 4, 1))
	r.push(block(20, 4, 1)) // evicts the first block

	assert.Equal(t, uint64(4), r.droppedFrames())

	dst := make([]int16, 4)
	r.pop(dst)
	assert.Equal(t, int16(10), dst[0], "oldest surviving block comes out first")
	r.pop(dst)
	assert.Equal(t, int16(20), dst[0])
}

func TestRingOverflowCountsFramesNotSamples(t *testing.T) {
	r := newFrameRing(1, 4, 2)
	r.push(block(0, 4, 2))
	r.push(block(50, 4, 2))
	assert.Equal(t, uint64(4), r.droppedFrames())
}

func TestRingOverflowNeverDecreases(t *testing.T) {
	r := newFrameRing(1, 2, 1)
	var last uint64
	dst := make([]int16, 2)
	for i := 0; i < 10; i++ {
		r.push(block(int16(i), 2, 1))
		r.pop(dst)
		cur := r.droppedFrames()
		assert.GreaterOrEqual(t, cur, last)
		last = cur
	}
}

func TestRingAddDropped(t *testing.T) {
	r := newFrameRing(2, 4, 1)
	r.addDropped(7)
	assert.Equal(t, uint64(7), r.droppedFrames())
}
