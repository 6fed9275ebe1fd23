package bootloader

import (
	"encoding/binary"
	"errors"
)

// errMalformedFrame is returned by decode when a raw frame is too short to
// contain a header.
var errMalformedFrame = errors.New("bootloader: malformed frame")

// header is the fixed two-byte prefix of every raw frame (spec.md §3).
type header struct {
	seq byte
	typ PacketType
}

// decode splits a raw frame into its header and payload. It does not
// validate the payload length against the packet type; per-type length
// requirements (e.g. START_SESSION's 8-byte minimum) are enforced by the
// dispatcher, since they vary by state and packet type.
func decode(raw []byte) (header, []byte, error) {
	if len(raw) < minPacketSize {
		return header{}, nil, errMalformedFrame
	}

	h := header{
		seq: raw[0],
		typ: PacketType(raw[1]),
	}

	return h, raw[2:], nil
}

// decodeStartSession parses the START_SESSION payload: a 4-byte
// big-endian announced size followed by a 2-byte big-endian CRC
// (spec.md §6).
func decodeStartSession(payload []byte) (size uint32, crc uint16, ok bool) {
	if len(payload) < 6 {
		return 0, 0, false
	}

	size = binary.BigEndian.Uint32(payload[0:4])
	crc = binary.BigEndian.Uint16(payload[4:6])

	return size, crc, true
}

// statusFrame layout (implementation-defined, but deterministic per
// spec.md's Design Notes): state, session-active flag, force-bootloader
// flag, then the five statistics counters, all big-endian.
//
//	byte 0:     state
//	byte 1:     bit 0 = session active, bit 1 = force_bootloader_mode
//	bytes 2-5:  packets_processed
//	bytes 6-9:  packets_dropped
//	bytes 10-13: error_count
//	bytes 14-17: recovery_attempts
//	bytes 18-21: app_launch_attempts
const statusFrameSize = 22

func encodeStatusFrame(state State, sessionActive, forceBootloader bool, s Stats) []byte {
	buf := make([]byte, statusFrameSize)

	buf[0] = byte(state)

	var flags byte
	if sessionActive {
		setBit(&flags, 0)
	}
	if forceBootloader {
		setBit(&flags, 1)
	}
	buf[1] = flags

	binary.BigEndian.PutUint32(buf[2:6], s.PacketsProcessed)
	binary.BigEndian.PutUint32(buf[6:10], s.PacketsDropped)
	binary.BigEndian.PutUint32(buf[10:14], s.ErrorCount)
	binary.BigEndian.PutUint32(buf[14:18], s.RecoveryAttempts)
	binary.BigEndian.PutUint32(buf[18:22], s.AppLaunchAttempts)

	return buf
}

// encodeVersionFrame reports the three-byte semantic protocol version in
// response to GET_VERSION.
func encodeVersionFrame() []byte {
	return ProtocolVersion[:]
}

// DecodeStatusFrame parses a frame produced by encodeStatusFrame, for use
// by transport-side test doubles and the host harness that observes ACKs
// on the wire.
func DecodeStatusFrame(frame []byte) (state State, sessionActive, forceBootloader bool, ok bool) {
	if len(frame) < statusFrameSize {
		return 0, false, false, false
	}

	state = State(frame[0])
	sessionActive = getBit(frame[1], 0)
	forceBootloader = getBit(frame[1], 1)

	return state, sessionActive, forceBootloader, true
}
