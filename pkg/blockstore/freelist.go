package blockstore

// compactThreshold is the number of consumed slots after which the
// backing slice is shifted down instead of growing forever.
const compactThreshold = 64

// freeList is a FIFO queue of vacant block offsets. Offsets are handed
// out in the order they were freed, which fixes where reused data lands.
type freeList struct {
	offsets []int
	head    int
}

// push appends offsets to the tail of the queue
func (f *freeList) push(offsets ...int) {
	f.offsets = append(f.offsets, offsets...)
}

// pop takes the oldest free offset
func (f *freeList) pop() (int, bool) {
	if f.head >= len(f.offsets) {
		return 0, false
	}

	off := f.offsets[f.head]
	f.head++

	switch {
	case f.head == len(f.offsets):
		f.offsets = f.offsets[:0]
		f.head = 0
	case f.head >= compactThreshold && f.head*2 >= len(f.offsets):
		n := copy(f.offsets, f.offsets[f.head:])
		f.offsets = f.offsets[:n]
		f.head = 0
	}

	return off, true
}

func (f *freeList) len() int {
	return len(f.offsets) - f.head
}

// snapshot returns the pending offsets in reuse order
func (f *freeList) snapshot() []int {
	out := make([]int, f.len())
	copy(out, f.offsets[f.head:])
	return out
}
