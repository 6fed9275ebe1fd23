package bootloader

// session is the per-transfer descriptor (spec.md §3). Its invariants
// (S1: bytesReceived <= announcedSize; S2: expectedSeq-1 == accepted DATA
// packets this session; S3: active implies state in {DFU_ACTIVE,
// DFU_VERIFY}) are enforced by the dispatcher and state machine that
// mutate it, not by session itself — the same "plain data, invariants
// enforced by the driver" shape the teacher uses for its transfer
// bookkeeping structs (imx6/usdhc).
type session struct {
	announcedSize uint32
	announcedCRC  uint16
	expectedSeq   uint32
	bytesReceived uint32
	active        bool

	lastActivity uint32 // tick at which activity last reset the session timeout
}

// reset clears the session descriptor back to its IDLE-entry shape
// (spec.md §4.4, entry action for IDLE).
func (s *session) reset() {
	*s = session{}
}

// start begins a new session with the given announced size/CRC (spec.md
// §4.4, entry action for DFU_ACTIVE).
func (s *session) start(announcedSize uint32, announcedCRC uint16, now uint32) {
	s.announcedSize = announcedSize
	s.announcedCRC = announcedCRC
	s.expectedSeq = 1
	s.bytesReceived = 0
	s.active = true
	s.lastActivity = now
}

// remaining returns how many bytes are left to receive before the
// session is complete.
func (s *session) remaining() uint32 {
	return s.announcedSize - s.bytesReceived
}

// complete reports whether the announced size has been fully received.
func (s *session) complete() bool {
	return s.bytesReceived == s.announcedSize
}
