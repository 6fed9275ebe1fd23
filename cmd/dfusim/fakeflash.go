package main

import (
	"time"

	"github.com/usbarmory/dfucore/bootloader"
)

// fakeFlash simulates a page-program/erase cycle with a fixed completion
// latency observed across Poll calls, the same shape as original_source's
// platform.c mock (a flash_busy flag cleared once an elapsed timer expires)
// but driven by wall-clock time instead of a microsecond counter.
type fakeFlash struct {
	region     [bootloader.MaxApplicationSize]byte
	latency    time.Duration
	completeAt time.Time
	busy       bool
	writeCount int
	failAfter  int // 1-indexed write number to fail, 0 disables
}

func newFakeFlash(latency time.Duration, failAfter int) *fakeFlash {
	return &fakeFlash{latency: latency, failAfter: failAfter}
}

func (f *fakeFlash) BeginWrite(address uint32, data []byte) bool {
	if f.busy {
		return false
	}

	off := address - bootloader.ApplicationStart
	copy(f.region[off:], data)

	f.writeCount++
	f.busy = true
	f.completeAt = time.Now().Add(f.latency)

	return true
}

func (f *fakeFlash) BeginErase(address uint32) bool {
	if f.busy {
		return false
	}

	off := address - bootloader.ApplicationStart
	end := off + uint32(bootloader.FlashPageSize)
	for i := off; i < end; i++ {
		f.region[i] = 0xFF
	}

	f.busy = true
	f.completeAt = time.Now().Add(f.latency)

	return true
}

func (f *fakeFlash) Poll() bootloader.Completion {
	if !f.busy {
		return bootloader.FlashIdle
	}

	if time.Now().Before(f.completeAt) {
		return bootloader.FlashBusy
	}

	f.busy = false

	if f.failAfter > 0 && f.writeCount == f.failAfter {
		return bootloader.FlashJustCompletedError
	}

	return bootloader.FlashJustCompletedOK
}

// ReadFlash implements bootloader.FlashReader for the DFU_VERIFY CRC pass.
func (f *fakeFlash) ReadFlash(address uint32, length int) []byte {
	off := address - bootloader.ApplicationStart
	out := make([]byte, length)
	copy(out, f.region[off:off+uint32(length)])
	return out
}
