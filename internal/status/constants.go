// internal/status/constants.go
package status

// Reader Status Block layout constants.
// These values define the register map and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerReader is the fixed number of logical slots per reader.
// A reader's block starts at rIndex * SlotsPerReader.
const SlotsPerReader = 20

// MaxReaderIndex is the highest index whose block fits the 16-bit address space.
const MaxReaderIndex = (65536 / SlotsPerReader) - 1

// ---- SLOT INDICES ----

// SlotHealthCode holds the reader health state.
const SlotHealthCode = 0

// SlotMismatch is 1 while the last heartbeat reported an identity other than the registry's.
const SlotMismatch = 1

// SlotSecondsSinceHeartbeat holds seconds since the last heartbeat. Saturates at 65535.
const SlotSecondsSinceHeartbeat = 2

// SlotReaderIndex echoes the reader index so a block can be checked in isolation.
const SlotReaderIndex = 3

// ---- RESERVED RANGE ----

// Slots 4-10 are reserved.
const SlotReservedStart = 4
const SlotReservedEnd = 10

// ---- READER ID ----

// SlotReaderIDStart is the first slot used for the reader ID.
// The reader ID is always placed at the END of the status block.
const SlotReaderIDStart = 11

// SlotReaderIDSlots is the number of slots reserved for the reader ID.
const SlotReaderIDSlots = 8

// SlotReaderIDEnd is the last slot used for the reader ID (inclusive).
const SlotReaderIDEnd = SlotReaderIDStart + SlotReaderIDSlots - 1

// ---- LIMITS ----

// ReaderIDMaxChars is the maximum number of ASCII characters stored for the reader ID.
const ReaderIDMaxChars = 16

// SecondsMax is the saturation value of SlotSecondsSinceHeartbeat.
const SecondsMax = 65535

// ---- HEALTH CODES ----

// HealthUnknown means no heartbeat has been seen since start.
const HealthUnknown uint16 = 0

// HealthOK means a fresh heartbeat with the registry identity.
const HealthOK uint16 = 1

// HealthStale means no heartbeat within the stale window.
const HealthStale uint16 = 2

// HealthMismatch means the reader reports an identity other than the registry's.
const HealthMismatch uint16 = 3

// HealthDisabled marks a slot with no registry entry.
const HealthDisabled uint16 = 4

// HealthName returns the lower-case name of a health code.
func HealthName(code uint16) string {
	switch code {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthStale:
		return "stale"
	case HealthMismatch:
		return "mismatch"
	case HealthDisabled:
		return "disabled"
	default:
		return "invalid"
	}
}
