package bootloader

// drain processes every packet that was in the ring buffer at the start
// of this cycle, in FIFO order (spec.md §4.5 step 4, §5 ordering
// guarantee: "no packet started in cycle N finishes processing in cycle
// N+1" — each dequeued packet runs to completion synchronously before
// the next is dequeued).
func (b *Bootloader) drain() {
	limit := b.buffer.occupancy()

	for i := 0; i < limit; i++ {
		raw, ok := b.buffer.dequeue()
		if !ok {
			break
		}

		b.stats.PacketsProcessed++
		b.handle(raw)
	}
}

// handle decodes and dispatches a single raw frame: global handlers run
// first; if none applied, the current state's scoped handler runs
// (spec.md §4.5).
func (b *Bootloader) handle(raw []byte) {
	h, payload, err := decode(raw)
	if err != nil {
		b.emitter.SendNack(NackInvalidPacket)
		return
	}

	if b.dispatchGlobal(h, payload) {
		return
	}

	switch b.state {
	case StateIdle:
		b.dispatchIdle(h, payload)
	case StateDFUActive:
		b.dispatchDFUActive(h, payload)
	case StateDFUVerify:
		// Packets are not consumed here except via global handlers
		// (spec.md §4.5): no NACK, the frame is simply dropped.
	case StateEmergencyRecovery:
		b.emitter.SendNack(NackRecoveryMode)
	default:
		b.emitter.SendNack(NackInvalidState)
	}
}

// dispatchGlobal handles the packet types honored regardless of state
// (spec.md §4.5). It returns true if it consumed the packet.
func (b *Bootloader) dispatchGlobal(h header, payload []byte) bool {
	switch h.typ {
	case PacketPing:
		b.emitter.SendAck()
		return true

	case PacketGetStatus:
		frame := encodeStatusFrame(b.state, b.session.active, b.forceBootloaderMode, b.stats)
		b.emitter.SendFrame(frame)
		b.emitter.SendAck()
		return true

	case PacketGetVersion:
		b.emitter.SendFrame(encodeVersionFrame())
		b.emitter.SendAck()
		return true

	case PacketEmergencyReset:
		// Transition unconditionally (spec.md §4.5), but re-entering
		// the same state is not in the legal-transition table (§4.4)
		// and would otherwise force ERROR; treat an EMERGENCY_RESET
		// received while already recovering as a no-op instead.
		if b.state != StateEmergencyRecovery {
			b.transition(StateEmergencyRecovery)
		}
		return true

	case PacketAbort:
		if b.state == StateDFUActive {
			b.transition(StateIdle)
			b.emitter.SendAck()
		} else {
			b.emitter.SendNack(NackInvalidState)
		}
		return true
	}

	return false
}

// dispatchIdle handles state-scoped packets in IDLE (spec.md §4.5).
func (b *Bootloader) dispatchIdle(h header, payload []byte) {
	switch h.typ {
	case PacketStartSession:
		size, crc, ok := decodeStartSession(payload)
		if !ok {
			b.emitter.SendNack(NackInvalidSize)
			return
		}

		if size == 0 || size > MaxApplicationSize {
			b.emitter.SendNack(NackInvalidSize)
			return
		}

		if b.forceBootloaderMode {
			b.emitter.SendNack(NackBootloaderForced)
			return
		}

		b.session.announcedSize = size
		b.session.announcedCRC = crc
		b.transition(StateDFUActive)
		b.emitter.SendAck()

	case PacketJumpApp:
		if b.forceBootloaderMode {
			b.emitter.SendNack(NackBootloaderForced)
			return
		}

		b.transition(StateDFUVerify)
		b.emitter.SendAck()

	default:
		b.emitter.SendNack(NackInvalidPacket)
	}
}

// dispatchDFUActive handles state-scoped packets in DFU_ACTIVE (spec.md
// §4.5).
func (b *Bootloader) dispatchDFUActive(h header, payload []byte) {
	switch h.typ {
	case PacketData:
		b.handleData(h, payload)

	case PacketEndSession:
		if b.session.complete() {
			b.transition(StateDFUVerify)
			b.emitter.SendAck()
		} else {
			b.emitter.SendNack(NackIncompleteTransfer)
			b.transition(StateError)
		}

	default:
		b.emitter.SendNack(NackInvalidTypeActive)
	}
}

// handleData implements the DATA packet handler: sequence validation,
// then a non-blocking flash write attempt (spec.md §4.5).
func (b *Bootloader) handleData(h header, payload []byte) {
	if uint32(h.seq) != b.session.expectedSeq {
		b.stats.ErrorCount++
		b.emitter.SendNack(NackSequenceError)

		if b.stats.ErrorCount > maxSequenceErrors {
			b.enterEmergency()
		}

		return
	}

	// Guards invariant S1 (bytes_received <= announced_size): a
	// payload that would overrun the announced transfer size is
	// rejected rather than silently violating the bound.
	if uint32(len(payload)) > b.session.remaining() {
		b.emitter.SendNack(NackInvalidSize)
		return
	}

	addr := ApplicationStart + b.session.bytesReceived

	if err := b.flash.BeginWrite(addr, payload); err != nil {
		b.emitter.SendNack(NackFlashBusy)
		return
	}

	b.session.bytesReceived += uint32(len(payload))
	b.session.expectedSeq++
	b.session.lastActivity = b.clock.Now()

	b.emitter.SendAck()
}
