package bootloader

import "encoding/binary"

// fakeClock is a manually-advanced Clock test double.
type fakeClock struct {
	now uint32
}

func (c *fakeClock) Now() uint32 { return c.now }

func (c *fakeClock) advance(ms uint32) { c.now += ms }

// fakeFlash is a FlashDriver test double with a configurable completion
// delay and a backing byte slice addressed relative to ApplicationStart, so
// tests can also exercise FlashReader.ReadFlash against written data.
type fakeFlash struct {
	region       [MaxApplicationSize]byte
	pendingAt    uint32
	pendingLen   int
	pollsLeft    int
	failNext     bool
	writeCount   int
	busyRejected int
}

func (f *fakeFlash) BeginWrite(address uint32, data []byte) bool {
	if f.pollsLeft > 0 {
		f.busyRejected++
		return false
	}

	off := address - ApplicationStart
	copy(f.region[off:], data)

	f.pendingAt = address
	f.pendingLen = len(data)
	f.pollsLeft = 1
	f.writeCount++

	return true
}

func (f *fakeFlash) BeginErase(address uint32) bool { return true }

func (f *fakeFlash) Poll() Completion {
	if f.pollsLeft <= 0 {
		return FlashIdle
	}

	f.pollsLeft--

	if f.pollsLeft > 0 {
		return FlashBusy
	}

	if f.failNext {
		f.failNext = false
		return FlashJustCompletedError
	}

	return FlashJustCompletedOK
}

func (f *fakeFlash) ReadFlash(address uint32, length int) []byte {
	off := address - ApplicationStart
	out := make([]byte, length)
	copy(out, f.region[off:off+uint32(length)])
	return out
}

// fakeEmitter records every ACK/NACK/frame sent, in order.
type fakeEmitter struct {
	acks   int
	nacks  []byte
	frames [][]byte
}

func (e *fakeEmitter) SendAck() { e.acks++ }

func (e *fakeEmitter) SendNack(code byte) { e.nacks = append(e.nacks, code) }

func (e *fakeEmitter) SendFrame(payload []byte) {
	f := make([]byte, len(payload))
	copy(f, payload)
	e.frames = append(e.frames, f)
}

func (e *fakeEmitter) lastNack() (byte, bool) {
	if len(e.nacks) == 0 {
		return 0, false
	}
	return e.nacks[len(e.nacks)-1], true
}

// buildFrame assembles a raw wire frame: seq byte, type byte, payload.
func buildFrame(seq byte, typ PacketType, payload []byte) []byte {
	raw := make([]byte, 2+len(payload))
	raw[0] = seq
	raw[1] = byte(typ)
	copy(raw[2:], payload)
	return raw
}

// startSessionPayload builds the 6-byte START_SESSION body.
func startSessionPayload(size uint32, crc uint16) []byte {
	buf := make([]byte, 6)
	binary.BigEndian.PutUint32(buf[0:4], size)
	binary.BigEndian.PutUint16(buf[4:6], crc)
	return buf
}
