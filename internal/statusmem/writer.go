// internal/statusmem/writer.go
package statusmem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/reader-provisioner/internal/status"
)

// registerWriter is the subset of EndpointClient the writers need.
type registerWriter interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// ReaderWriter delivers the status block of one reader.
// It receives a snapshot and writes it verbatim.
type ReaderWriter struct {
	cli      registerWriter
	unitID   uint8
	index    int
	readerID string

	needFull bool
	last     status.Snapshot
}

// NewReaderWriter builds the writer for the block at index * SlotsPerReader.
func NewReaderWriter(cli registerWriter, unitID uint8, index int, readerID string) (*ReaderWriter, error) {
	if cli == nil {
		return nil, errors.New("statusmem: client required")
	}
	if index < 0 || index > status.MaxReaderIndex {
		return nil, fmt.Errorf("statusmem: reader index %d out of range 0..%d", index, status.MaxReaderIndex)
	}

	return &ReaderWriter{
		cli:      cli,
		unitID:   unitID,
		index:    index,
		readerID: readerID,
		needFull: true, // full re-assert on first successful write
		last:     status.Snapshot{Health: status.HealthUnknown},
	}, nil
}

// WriteStatus delivers a snapshot into status memory.
// On any write failure, the next successful call will re-assert the full block.
func (w *ReaderWriter) WriteStatus(s status.Snapshot) error {
	base := w.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if w.needFull {
		regs := status.Encode(s, w.index, w.readerID)

		if err := w.cli.WriteRegisters(w.unitID, base, regs); err != nil {
			w.needFull = true
			return fmt.Errorf("statusmem: reader %d full block write failed: %w", w.index, err)
		}

		w.needFull = false
		w.last = s
		return nil
	}

	var errs []string

	// Slot 0 - health
	if w.last.Health != s.Health {
		if err := w.cli.WriteRegisters(w.unitID, base+status.SlotHealthCode, []uint16{s.Health}); err != nil {
			errs = append(errs, fmt.Sprintf("slot0 health write failed: %v", err))
		} else {
			w.last.Health = s.Health
		}
	}

	// Slot 1 - mismatch
	if w.last.Mismatch != s.Mismatch {
		if err := w.cli.WriteRegisters(w.unitID, base+status.SlotMismatch, []uint16{s.Mismatch}); err != nil {
			errs = append(errs, fmt.Sprintf("slot1 mismatch write failed: %v", err))
		} else {
			w.last.Mismatch = s.Mismatch
		}
	}

	// Slot 2 - seconds since heartbeat
	if w.last.SecondsSinceHeartbeat != s.SecondsSinceHeartbeat {
		if err := w.cli.WriteRegisters(w.unitID, base+status.SlotSecondsSinceHeartbeat, []uint16{s.SecondsSinceHeartbeat}); err != nil {
			errs = append(errs, fmt.Sprintf("slot2 seconds write failed: %v", err))
		} else {
			w.last.SecondsSinceHeartbeat = s.SecondsSinceHeartbeat
		}
	}

	if len(errs) > 0 {
		w.needFull = true
		return fmt.Errorf("statusmem: reader %d: %s", w.index, strings.Join(errs, " | "))
	}

	return nil
}

func (w *ReaderWriter) baseAddr() uint16 {
	return uint16(w.index * status.SlotsPerReader)
}
