package bootloader

// Emitter is the external ACK/NACK/frame sender the core consumes
// (spec.md §6). The core never holds a reference to the physical
// transport itself.
type Emitter interface {
	SendAck()
	SendNack(code byte)

	// SendFrame writes a frame ahead of the ACK for multi-byte
	// responses (GET_STATUS, GET_VERSION).
	SendFrame(payload []byte)
}

// Bootloader is the owned, caller-constructed DFU core instance. The
// Design Note "Module-global singleton" replaces the original C source's
// file-scope global with this explicitly constructed and explicitly
// passed struct; there is exactly one instance per running bootloader,
// constructed once at startup.
type Bootloader struct {
	clock   Clock
	flash   *Coordinator
	emitter Emitter

	state         State
	previousState State

	session session
	stats   Stats

	forceBootloaderMode bool

	verifyEntryTime uint32
	verifyCRC       uint16
	verifyOffset    uint32

	errorEntryTime    uint32
	recoveryEntryTime uint32

	sessionTimeoutMs       uint32
	appValidationTimeoutMs uint32

	buffer ring

	// flashReader reads back previously written flash for CRC
	// verification in DFU_VERIFY. Supplied alongside the flash driver
	// since the FlashDriver interface itself is write/erase/poll only
	// (spec.md §4.3 lists read as an existing external primitive, not
	// part of the non-blocking write/poll pair).
	flashReader FlashReader
}

// FlashReader is the external synchronous flash read primitive used only
// for post-write CRC verification (spec.md §1: "the flash driver
// (erase/program/read primitives ...)" is an external collaborator).
type FlashReader interface {
	ReadFlash(address uint32, length int) []byte
}

// New constructs a Bootloader bound to the host-supplied clock, flash
// driver, flash reader, and ACK/NACK emitter. Call Init before use.
func New(clock Clock, flash FlashDriver, reader FlashReader, emitter Emitter) *Bootloader {
	b := &Bootloader{
		clock:       clock,
		flash:       NewCoordinator(flash),
		flashReader: reader,
		emitter:     emitter,
	}

	b.Init()

	return b
}

// Init zeroes state, enters IDLE, and restores default timeouts (spec.md
// §6). Calling Init twice leaves identical state to calling it once.
func (b *Bootloader) Init() {
	b.state = StateIdle
	b.previousState = StateIdle
	b.session = session{}
	b.stats = Stats{}
	b.forceBootloaderMode = false
	b.verifyEntryTime = 0
	b.verifyCRC = 0
	b.verifyOffset = 0
	b.errorEntryTime = 0
	b.recoveryEntryTime = 0
	b.sessionTimeoutMs = DefaultSessionTimeoutMs
	b.appValidationTimeoutMs = DefaultAppValidationTimeoutMs
	b.buffer = ring{}
}

// ReceivePacket enqueues a raw frame for later processing. It is
// wait-free and allocation-free on the hot path (the ring's fixed slot
// storage is copied into directly); it is the only core entry point
// meant to be called from an asynchronous producer context (spec.md §5).
func (b *Bootloader) ReceivePacket(data []byte, length int) bool {
	return b.buffer.enqueue(data, length)
}

// ProcessCycle runs one cooperative tick: timeout evaluation, a flash
// poll, per-state background work, then a full FIFO drain of the ring
// buffer (spec.md §4.5). It never blocks and never spins on flash.
func (b *Bootloader) ProcessCycle() {
	b.stats.PacketsDropped = b.buffer.droppedCount()

	b.checkTimeouts()
	b.pollFlash()
	b.runBackgroundWork()
	b.drain()

	if b.stats.PacketsDropped > maxDroppedPackets && b.state != StateEmergencyRecovery {
		b.enterEmergency()
	}
}

// pollFlash reacts to a just-completed write (spec.md §4.5 step 2): an
// error transitions the machine to ERROR.
func (b *Bootloader) pollFlash() {
	switch b.flash.Poll() {
	case FlashJustCompletedError:
		b.transition(StateError)
	}
}

// runBackgroundWork performs per-state work that is not triggered by an
// incoming packet (spec.md §4.5 step 3) — currently only DFU_VERIFY's
// incremental CRC computation.
func (b *Bootloader) runBackgroundWork() {
	if b.state != StateDFUVerify {
		return
	}

	b.stepVerification()
}

// stepVerification advances the image CRC computation over
// [ApplicationStart, ApplicationStart+bytesReceived) in bounded chunks so
// a single process cycle never blocks on a large read. On reaching the
// end it compares against the announced CRC and transitions accordingly
// (spec.md §4.5, DFU_VERIFY background work).
func (b *Bootloader) stepVerification() {
	const chunk = 4096

	total := b.session.bytesReceived

	if b.verifyOffset >= total {
		if b.verifyCRC == b.session.announcedCRC {
			b.transition(StateRunningApp)
		} else {
			b.transition(StateError)
		}
		return
	}

	n := total - b.verifyOffset
	if n > chunk {
		n = chunk
	}

	data := b.flashReader.ReadFlash(ApplicationStart+b.verifyOffset, int(n))
	b.verifyCRC = crc16(b.verifyCRC, data)
	b.verifyOffset += n
}

// StatsSnapshot returns a read-only view of the current counters and
// state (spec.md §6).
func (b *Bootloader) StatsSnapshot() Snapshot {
	return Snapshot{
		State:               b.state,
		SessionActive:       b.session.active,
		ForceBootloaderMode: b.forceBootloaderMode,
		BytesReceived:       b.session.bytesReceived,
		AnnouncedSize:       b.session.announcedSize,
		Stats:               b.stats,
	}
}
