package main

import (
	"log/slog"

	"github.com/usbarmory/dfucore/bootloader"
)

// fakeTransport is the in-memory stand-in for the physical transport the
// bootloader package deliberately excludes (the core only ever sees raw
// frames via ReceivePacket and replies via the Emitter interface). It logs
// every ACK/NACK/frame it is asked to send, the way a USB/UART driver would
// hand bytes to the wire.
type fakeTransport struct {
	logger *slog.Logger
	seq    byte
}

func newFakeTransport(logger *slog.Logger) *fakeTransport {
	return &fakeTransport{logger: logger}
}

func (t *fakeTransport) SendAck() {
	t.logger.Debug("-> ACK")
}

func (t *fakeTransport) SendNack(code byte) {
	t.logger.Debug("-> NACK", slog.Int("code", int(code)))
}

func (t *fakeTransport) SendFrame(payload []byte) {
	t.logger.Debug("-> FRAME", slog.Int("bytes", len(payload)))
}

// send builds a raw frame with the next outgoing sequence number and
// enqueues it on b. It returns false if b drops the frame (ring buffer full,
// or frame length outside the ring's accepted range).
func (t *fakeTransport) send(b *bootloader.Bootloader, typ bootloader.PacketType, payload []byte) bool {
	raw := make([]byte, 2+len(payload))
	raw[0] = t.seq
	raw[1] = byte(typ)
	copy(raw[2:], payload)
	t.seq++

	return b.ReceivePacket(raw, len(raw))
}
