// cmd/provisioner/status.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"sort"
	"time"

	"github.com/tamzrod/reader-provisioner/internal/config"
	"github.com/tamzrod/reader-provisioner/internal/status"
	"github.com/tamzrod/reader-provisioner/internal/statusmem"
)

// runStatus reads the reader status blocks back from status memory.
func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	env := fs.String("env", "", "environment override to apply")
	index := fs.Int("index", -1, "read a single reader index (default: every master reader)")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: provisioner status <master.yaml> [-env E] [-index N]")
	}

	cfg, err := loadConfig(pos[0], *env)
	if err != nil {
		return err
	}
	sm := cfg.Provisioner.StatusMemory
	if sm.Endpoint == "" {
		return errors.New("provisioner.status_memory.endpoint is not configured")
	}

	cli, err := statusmem.NewEndpointClient(statusmem.ClientConfig{
		Endpoint: sm.Endpoint,
		Timeout:  time.Duration(sm.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("status memory %s: %w", sm.Endpoint, err)
	}
	defer cli.Close()

	var errs []error
	for _, idx := range statusIndices(cfg, *index) {
		b, err := statusmem.ReadBlock(cli, sm.UnitID, idx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Println(formatBlock(idx, b))
	}
	return errors.Join(errs...)
}

// statusIndices returns the single requested index, or the master readers
// plus the main-header index, sorted and unique.
func statusIndices(cfg *config.Config, only int) []int {
	if only >= 0 {
		return []int{only}
	}
	seen := map[int]bool{cfg.MainReaderIndex(): true}
	for _, id := range cfg.Identities() {
		seen[id.Index] = true
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func formatBlock(index int, b status.Block) string {
	line := fmt.Sprintf("%4d  %-16s  %-8s  %5ds", index, b.ReaderID, status.HealthName(b.Health), b.SecondsSinceHeartbeat)
	if b.Mismatch != 0 {
		line += "  mismatch"
	}
	if b.Index != index && b.ReaderID != "" {
		line += fmt.Sprintf("  (block claims index %d)", b.Index)
	}
	return line
}
