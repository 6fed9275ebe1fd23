package bootloader

import "fmt"

// Stats holds the monotonic introspection counters (spec.md §4.6). They
// are reset only on Init and on the EMERGENCY_RECOVERY -> IDLE self-heal
// transition (drops/errors only).
type Stats struct {
	PacketsProcessed  uint32
	PacketsDropped    uint32
	ErrorCount        uint32
	RecoveryAttempts  uint32
	AppLaunchAttempts uint32
}

// Snapshot is a read-only view of the bootloader's counters and current
// state, returned by (*Bootloader).StatsSnapshot.
type Snapshot struct {
	State               State
	SessionActive       bool
	ForceBootloaderMode bool
	BytesReceived       uint32
	AnnouncedSize       uint32
	Stats
}

// String renders a snapshot the way original_source/bootloader.c's
// bootloader_print_stats dumped the equivalent C struct, for harness
// logging convenience — not a core operation in its own right.
func (s Snapshot) String() string {
	return fmt.Sprintf(
		"state=%s session_active=%v bytes=%d/%d processed=%d dropped=%d errors=%d recoveries=%d launches=%d",
		s.State, s.SessionActive, s.BytesReceived, s.AnnouncedSize,
		s.PacketsProcessed, s.PacketsDropped, s.ErrorCount,
		s.RecoveryAttempts, s.AppLaunchAttempts,
	)
}
