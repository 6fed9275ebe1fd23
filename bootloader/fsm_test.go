package bootloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBootloader() (*Bootloader, *fakeClock, *fakeFlash, *fakeEmitter) {
	clock := &fakeClock{now: 1000}
	flash := &fakeFlash{}
	emitter := &fakeEmitter{}
	b := New(clock, flash, flash, emitter)
	return b, clock, flash, emitter
}

func TestAllowedTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateDFUActive, true},
		{StateIdle, StateRunningApp, true},
		{StateIdle, StateDFUVerify, false},
		{StateDFUActive, StateDFUVerify, true},
		{StateDFUActive, StateRunningApp, false},
		{StateDFUVerify, StateRunningApp, true},
		{StateRunningApp, StateDFUActive, false},
		{StateEmergencyRecovery, StateDFUActive, false},
		{StateEmergencyRecovery, StateIdle, true},
		{StateError, StateIdle, true},
		{StateError, StateDFUActive, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, allowed(c.from, c.to), "from=%s to=%s", c.from, c.to)
	}
}

func TestIllegalTransitionForcesError(t *testing.T) {
	b, _, _, _ := newTestBootloader()

	ok := b.transition(StateDFUVerify) // IDLE -> DFU_VERIFY is illegal
	assert.False(t, ok)
	assert.Equal(t, StateError, b.state)
	assert.Equal(t, StateIdle, b.previousState)
}

func TestInitIsIdempotent(t *testing.T) {
	b, clock, _, _ := newTestBootloader()
	clock.advance(500)
	b.stats.PacketsProcessed = 42

	b.Init()
	first := *b

	b.Init()
	second := *b

	require.Equal(t, StateIdle, second.state)
	assert.Equal(t, first.stats, second.stats)
	assert.Equal(t, first.session, second.session)
	assert.Equal(t, uint32(0), second.stats.PacketsProcessed)
}

func TestErrorStateTimesOutToIdle(t *testing.T) {
	b, clock, _, _ := newTestBootloader()
	b.transition(StateError)
	require.Equal(t, StateError, b.state)

	clock.advance(errorStateTimeoutMs + 1)
	b.checkTimeouts()

	assert.Equal(t, StateIdle, b.state)
}

func TestEmergencyRecoveryTimesOutToIdleAndClearsCounters(t *testing.T) {
	b, clock, _, _ := newTestBootloader()
	b.enterEmergency()
	require.Equal(t, StateEmergencyRecovery, b.state)

	b.buffer.enqueue([]byte{0x01}, 1) // force a dropped count
	b.stats.PacketsDropped = b.buffer.droppedCount()
	b.stats.ErrorCount = 7

	clock.advance(recoveryStateTimeoutMs + 1)
	b.checkTimeouts()

	assert.Equal(t, StateIdle, b.state)
	assert.Equal(t, uint32(0), b.stats.PacketsDropped)
	assert.Equal(t, uint32(0), b.stats.ErrorCount)
	assert.Equal(t, uint32(0), b.buffer.droppedCount())
}

func TestSessionActiveClearedOutsideActiveStates(t *testing.T) {
	cases := []struct {
		name string
		via  []State // legal path from IDLE, ending with an active session in flight
		to   State   // final transition out of the active-session states
	}{
		{"running app", []State{StateDFUActive, StateDFUVerify}, StateRunningApp},
		{"emergency recovery", []State{StateDFUActive}, StateEmergencyRecovery},
		{"error", []State{StateDFUActive}, StateError},
	}

	for _, c := range cases {
		b, _, _, _ := newTestBootloader()
		for _, s := range c.via {
			require.True(t, b.transition(s), "%s: setup transition to %s must be legal", c.name, s)
		}
		require.True(t, b.session.active, "%s: session must be active before leaving DFU_ACTIVE/DFU_VERIFY", c.name)

		require.True(t, b.transition(c.to), "%s: transition to %s must be legal", c.name, c.to)

		assert.False(t, b.session.active, "%s: S3 requires active==false outside DFU_ACTIVE/DFU_VERIFY", c.name)
	}
}

func TestEmergencyResetWhileAlreadyRecoveringIsNoOp(t *testing.T) {
	b, _, _, emitter := newTestBootloader()
	b.enterEmergency()
	require.Equal(t, StateEmergencyRecovery, b.state)

	b.ReceivePacket(buildFrame(0, PacketEmergencyReset, nil), 2)
	b.ProcessCycle()

	assert.Equal(t, StateEmergencyRecovery, b.state, "a second EMERGENCY_RESET must not force ERROR")
	assert.Empty(t, emitter.nacks, "EMERGENCY_RESET emits no ACK or NACK per spec")
}
