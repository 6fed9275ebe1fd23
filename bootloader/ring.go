package bootloader

import "sync/atomic"

// Ring buffer geometry (spec.md §3).
const (
	// BufferSize is the number of packet slots in the ring buffer.
	BufferSize = 16

	// MaxPacketSize is the largest raw frame a slot can hold.
	MaxPacketSize = 256

	// minPacketSize is the smallest frame the buffer will accept: one
	// sequence byte plus one type byte.
	minPacketSize = 2
)

// slot holds one pre-allocated packet frame. Storage is fixed at
// construction; only length and validity vary across the slot's
// lifetime, matching the teacher's preference for pre-allocated DMA-style
// buffers over per-operation allocation.
type slot struct {
	data   [MaxPacketSize]byte
	length int
}

// ring is a fixed-capacity, single-producer/single-consumer FIFO queue of
// raw packet frames. The producer (ReceivePacket, potentially called from
// interrupt context) only ever writes the head slot and then publishes the
// new count; the consumer (ProcessCycle's drain loop) only ever reads the
// tail slot and then publishes the decremented count. No lock is taken on
// either side: count and dropped are the only fields shared across the two
// contexts, both accessed atomically, and count is always updated after the
// slot contents it guards are settled.
type ring struct {
	slots [BufferSize]slot
	head  int
	tail  int
	count int32

	// dropped counts frames rejected by enqueue (buffer full or
	// malformed length). The producer increments it and the consumer
	// reads it (and zeroes it via resetDropped), all via atomic ops, so
	// the consumer can fold it into Stats without either side taking a
	// lock.
	dropped int32
}

// enqueue copies bytes[:length] into the head slot if the buffer has room.
// It returns false (without blocking or allocating) when the buffer is
// full or the frame length is outside [minPacketSize, MaxPacketSize],
// incrementing dropped in either case.
func (r *ring) enqueue(data []byte, length int) bool {
	if length < minPacketSize || length > MaxPacketSize {
		atomic.AddInt32(&r.dropped, 1)
		return false
	}

	if atomic.LoadInt32(&r.count) >= BufferSize {
		atomic.AddInt32(&r.dropped, 1)
		return false
	}

	s := &r.slots[r.head]
	copy(s.data[:], data[:length])
	s.length = length

	r.head = (r.head + 1) % BufferSize

	// Publish the new occupancy only after the slot contents are
	// settled, so a consumer observing the incremented count always
	// sees a fully-written slot.
	atomic.AddInt32(&r.count, 1)

	return true
}

// dequeue removes and returns the tail slot's frame in FIFO order. ok is
// false if the buffer is empty.
func (r *ring) dequeue() (data []byte, ok bool) {
	if atomic.LoadInt32(&r.count) <= 0 {
		return nil, false
	}

	s := &r.slots[r.tail]
	out := make([]byte, s.length)
	copy(out, s.data[:s.length])

	r.tail = (r.tail + 1) % BufferSize

	atomic.AddInt32(&r.count, -1)

	return out, true
}

// occupancy returns the current number of queued frames.
func (r *ring) occupancy() int {
	return int(atomic.LoadInt32(&r.count))
}

// droppedCount returns the number of frames rejected by enqueue so far.
func (r *ring) droppedCount() uint32 {
	return uint32(atomic.LoadInt32(&r.dropped))
}

// resetDropped zeroes the dropped counter. Called only from consumer
// context (the EMERGENCY_RECOVERY -> IDLE self-heal transition).
func (r *ring) resetDropped() {
	atomic.StoreInt32(&r.dropped, 0)
}
