// internal/statusmem/exporter.go
package statusmem

import (
	"sync"

	"github.com/tamzrod/reader-provisioner/internal/status"
)

// Exporter owns one ReaderWriter per reader index.
// A changed reader ID replaces the writer so the new ID is re-asserted in full.
type Exporter struct {
	mu      sync.Mutex
	cli     registerWriter
	unitID  uint8
	writers map[int]*ReaderWriter
}

func NewExporter(cli registerWriter, unitID uint8) *Exporter {
	return &Exporter{
		cli:     cli,
		unitID:  unitID,
		writers: make(map[int]*ReaderWriter),
	}
}

// WriteStatus writes the snapshot of reader index carrying readerID.
func (e *Exporter) WriteStatus(index int, readerID string, s status.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.writers[index]
	if !ok || w.readerID != readerID {
		nw, err := NewReaderWriter(e.cli, e.unitID, index, readerID)
		if err != nil {
			return err
		}
		e.writers[index] = nw
		w = nw
	}

	return w.WriteStatus(s)
}
