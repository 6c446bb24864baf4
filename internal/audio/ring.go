package audio

import "sync"

// frameRing is a bounded ring of interleaved sample blocks sitting between
// the device callback and the disk writer. The callback side never blocks
// and never allocates: a full ring drops the oldest block and counts the
// dropped frames, so a slow disk shows up as an overflow warning instead of
// an audible glitch.
type frameRing struct {
	mu       sync.Mutex
	slots    [][]int16
	lengths  []int
	channels int
	head     int
	count    int
	dropped  uint64
}

// newFrameRing allocates a ring of slotCount blocks, each able to hold
// blockFrames frames of the given channel count.
func newFrameRing(slotCount, blockFrames, channels int) *frameRing {
	slots := make([][]int16, slotCount)
	for i := range slots {
		slots[i] = make([]int16, blockFrames*channels)
	}
	return &frameRing{
		slots:    slots,
		lengths:  make([]int, slotCount),
		channels: channels,
	}
}

// push copies one interleaved block into the ring. Called from the stream
// callback; when the ring is full the oldest block is discarded and its
// frames are added to the drop counter.
func (r *frameRing) push(samples []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == len(r.slots) {
		// drop-oldest: overwrite the head slot
		r.dropped += uint64(r.lengths[r.head] / r.channels)
		r.head = (r.head + 1) % len(r.slots)
		r.count--
	}

	tail := (r.head + r.count) % len(r.slots)
	n := copy(r.slots[tail], samples)
	r.lengths[tail] = n
	r.count++
}

// pop copies the oldest block into dst and returns the number of samples
// copied, or 0 when the ring is empty.
func (r *frameRing) pop(dst []int16) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return 0
	}
	n := copy(dst, r.slots[r.head][:r.lengths[r.head]])
	r.head = (r.head + 1) % len(r.slots)
	r.count--
	return n
}

// pending reports the number of buffered blocks.
func (r *frameRing) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// droppedFrames reports the cumulative count of frames lost to overflow.
func (r *frameRing) droppedFrames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// addDropped accounts for frames the device itself reported as lost.
func (r *frameRing) addDropped(frames uint64) {
	r.mu.Lock()
	r.dropped += frames
	r.mu.Unlock()
}
