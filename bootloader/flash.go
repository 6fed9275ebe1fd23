package bootloader

import "errors"

// Completion reports the outcome of a polled flash operation (spec.md §4.3).
type Completion int

const (
	FlashIdle Completion = iota
	FlashBusy
	FlashJustCompletedOK
	FlashJustCompletedError
)

// FlashDriver is the external, non-blocking flash primitive the core
// consumes. Implementations must never block: begin calls start an
// asynchronous operation and Poll reports its progress on every call,
// matching the teacher's asynchronous-completion driver shape
// (imx6/usdhc.go, soc/nxp/dcp/dcp.go).
type FlashDriver interface {
	// BeginWrite starts an asynchronous page program at address. It
	// returns false if a write is already outstanding.
	BeginWrite(address uint32, data []byte) bool

	// BeginErase starts an asynchronous erase at address. Optional: a
	// driver with no erase cycle may always return true.
	BeginErase(address uint32) bool

	// Poll reports the state of the most recently started operation.
	Poll() Completion
}

var (
	errFlashBusy       = errors.New("bootloader: flash busy")
	errFlashOutOfRange = errors.New("bootloader: flash address out of range")
)

// Coordinator wraps a FlashDriver, tracking busy/idle state and enforcing
// the application-region address policy (spec.md §4.3, §6).
type Coordinator struct {
	driver FlashDriver
	busy   bool
}

// NewCoordinator constructs a Coordinator around a caller-supplied driver.
func NewCoordinator(driver FlashDriver) *Coordinator {
	return &Coordinator{driver: driver}
}

// inRange reports whether [address, address+length) falls entirely
// within the application region.
func inRange(address uint32, length int) bool {
	if length <= 0 {
		return false
	}

	end := address + uint32(length)

	return address >= ApplicationStart &&
		end > address && // reject overflow
		end <= ApplicationStart+MaxApplicationSize
}

// BeginWrite validates the address range and, if the coordinator is not
// already tracking an outstanding write, starts one via the underlying
// driver.
func (c *Coordinator) BeginWrite(address uint32, data []byte) error {
	if !inRange(address, len(data)) {
		return errFlashOutOfRange
	}

	if c.busy {
		return errFlashBusy
	}

	if !c.driver.BeginWrite(address, data) {
		return errFlashBusy
	}

	c.busy = true

	return nil
}

// Poll advances the coordinator's busy tracking from the underlying
// driver's completion state. It returns the completion observed this
// call so the caller (the dispatcher, once per process cycle) can react
// to a just-finished write.
func (c *Coordinator) Poll() Completion {
	if !c.busy {
		return FlashIdle
	}

	switch c.driver.Poll() {
	case FlashJustCompletedOK:
		c.busy = false
		return FlashJustCompletedOK
	case FlashJustCompletedError:
		c.busy = false
		return FlashJustCompletedError
	default:
		return FlashBusy
	}
}

// Busy reports whether a write is currently outstanding.
func (c *Coordinator) Busy() bool {
	return c.busy
}
