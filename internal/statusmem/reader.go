// internal/statusmem/reader.go
package statusmem

import (
	"fmt"

	"github.com/tamzrod/reader-provisioner/internal/status"
)

// registerReader is the subset of EndpointClient ReadBlock needs.
type registerReader interface {
	ReadRegisters(unitID uint8, addr, qty uint16) ([]uint16, error)
}

// ReadBlock reads back and decodes the status block of reader index.
func ReadBlock(cli registerReader, unitID uint8, index int) (status.Block, error) {
	if index < 0 || index > status.MaxReaderIndex {
		return status.Block{}, fmt.Errorf("statusmem: reader index %d out of range 0..%d", index, status.MaxReaderIndex)
	}

	addr := uint16(index * status.SlotsPerReader)
	regs, err := cli.ReadRegisters(unitID, addr, status.SlotsPerReader)
	if err != nil {
		return status.Block{}, fmt.Errorf("statusmem: reader %d: %w", index, err)
	}
	return status.Decode(regs)
}
