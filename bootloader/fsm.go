package bootloader

// transitions enumerates every legal target for each source state
// (spec.md §4.4). Any transition not listed here is fatal and forces
// ERROR — enforced directly in (*Bootloader).transition, with no
// recursive self-call, per the Design Note.
var transitions = map[State][]State{
	StateIdle:              {StateDFUActive, StateRunningApp, StateEmergencyRecovery, StateError},
	StateDFUActive:         {StateDFUVerify, StateIdle, StateEmergencyRecovery, StateError},
	StateDFUVerify:         {StateRunningApp, StateIdle, StateEmergencyRecovery, StateError},
	StateRunningApp:        {StateIdle, StateEmergencyRecovery, StateError},
	StateEmergencyRecovery: {StateIdle, StateError},
	StateError:             {StateIdle, StateEmergencyRecovery},
}

// allowed reports whether to is a legal target from from.
func allowed(from, to State) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}

	return false
}

// transition attempts to move the machine to the requested state. If the
// transition is illegal it forces ERROR directly (no recursive re-entry)
// and still runs ERROR's entry action. It returns whether the requested
// transition (as opposed to the forced ERROR fallback) actually occurred.
func (b *Bootloader) transition(to State) bool {
	from := b.state

	if !allowed(from, to) {
		b.previousState = from
		b.state = StateError
		b.onEnter(StateError)
		return false
	}

	b.previousState = from
	b.state = to
	b.onEnter(to)

	return true
}

// onEnter runs the entry action for a newly entered state (spec.md §4.4).
func (b *Bootloader) onEnter(s State) {
	now := b.clock.Now()

	switch s {
	case StateIdle:
		b.session.reset()

	case StateDFUActive:
		// The handler that requested this transition (START_SESSION)
		// has already populated announcedSize/announcedCRC; start
		// resets the rest of the descriptor around them.
		b.session.start(b.session.announcedSize, b.session.announcedCRC, now)

	case StateDFUVerify:
		b.verifyEntryTime = now
		b.verifyCRC = crc16Init
		b.verifyOffset = 0

	case StateRunningApp:
		b.stats.AppLaunchAttempts++
		b.session.active = false

	case StateEmergencyRecovery:
		b.stats.RecoveryAttempts++
		b.forceBootloaderMode = true
		b.recoveryEntryTime = now
		b.session.active = false

	case StateError:
		b.stats.ErrorCount++
		b.errorEntryTime = now
		b.session.active = false
	}
}

// checkTimeouts evaluates every per-state timeout in spec.md §4.4. It
// runs at the top of every process cycle, before the flash poll and the
// packet drain.
func (b *Bootloader) checkTimeouts() {
	now := b.clock.Now()

	switch b.state {
	case StateDFUActive:
		if b.session.active && elapsed(b.session.lastActivity, now) > b.sessionTimeoutMs {
			b.transition(StateError)
		}

	case StateDFUVerify:
		if elapsed(b.verifyEntryTime, now) > b.appValidationTimeoutMs {
			b.transition(StateError)
		}

	case StateError:
		if elapsed(b.errorEntryTime, now) > errorStateTimeoutMs {
			b.transition(StateIdle)
		}

	case StateEmergencyRecovery:
		if elapsed(b.recoveryEntryTime, now) > recoveryStateTimeoutMs {
			b.buffer.resetDropped()
			b.stats.PacketsDropped = 0
			b.stats.ErrorCount = 0
			b.transition(StateIdle)
		}
	}
}

// enterEmergency is the shared "invoke emergency condition" path used by
// both the sequence-error and buffer-pressure escalation rules (spec.md
// §4.5).
func (b *Bootloader) enterEmergency() {
	if b.state != StateEmergencyRecovery {
		b.transition(StateEmergencyRecovery)
	}
}
