package bootloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Known-answer test for CRC-16/CCITT-FALSE: "123456789" -> 0x29B1.
func TestCRC16KnownAnswer(t *testing.T) {
	got := crc16(crc16Init, []byte("123456789"))
	assert.Equal(t, uint16(0x29B1), got)
}

func TestCRC16IncrementalMatchesWholeBuffer(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	whole := crc16(crc16Init, data)

	running := uint16(crc16Init)
	running = crc16(running, data[:10])
	running = crc16(running, data[10:])

	assert.Equal(t, whole, running, "chunked CRC must match a single-pass CRC over the same bytes")
}
