// internal/status/encode.go
package status

import "fmt"

// Encode converts a Snapshot into a full reader status block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot, index int, readerID string) []uint16 {
	regs := make([]uint16, SlotsPerReader)

	regs[SlotHealthCode] = s.Health
	regs[SlotMismatch] = s.Mismatch
	regs[SlotSecondsSinceHeartbeat] = s.SecondsSinceHeartbeat
	regs[SlotReaderIndex] = uint16(index)

	// Slots SlotReservedStart..SlotReservedEnd stay zero.

	copy(regs[SlotReaderIDStart:SlotReaderIDEnd+1], EncodeReaderID(readerID))

	return regs
}

// EncodeReaderID packs up to 16 ASCII characters into 8 registers.
// Each register stores two ASCII bytes in big-endian order.
func EncodeReaderID(id string) []uint16 {
	out := make([]uint16, SlotReaderIDSlots)

	b := []byte(id)
	if len(b) > ReaderIDMaxChars {
		b = b[:ReaderIDMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < ReaderIDMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}

// DecodeReaderID reverses EncodeReaderID. Trailing NUL bytes are dropped.
func DecodeReaderID(regs []uint16) string {
	b := make([]byte, 0, len(regs)*2)
	for _, r := range regs {
		b = append(b, byte(r>>8), byte(r))
	}
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}

// Block is a decoded reader status block.
type Block struct {
	Snapshot
	Index    int
	ReaderID string
}

// Decode reverses Encode. regs must hold exactly one block.
func Decode(regs []uint16) (Block, error) {
	if len(regs) != SlotsPerReader {
		return Block{}, fmt.Errorf("status: block has %d registers, want %d", len(regs), SlotsPerReader)
	}
	return Block{
		Snapshot: Snapshot{
			Health:                regs[SlotHealthCode],
			Mismatch:              regs[SlotMismatch],
			SecondsSinceHeartbeat: regs[SlotSecondsSinceHeartbeat],
		},
		Index:    int(regs[SlotReaderIndex]),
		ReaderID: DecodeReaderID(regs[SlotReaderIDStart : SlotReaderIDEnd+1]),
	}, nil
}
