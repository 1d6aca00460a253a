// cmd/provisioner/generate.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/tamzrod/reader-provisioner/internal/audit"
	"github.com/tamzrod/reader-provisioner/internal/config"
	"github.com/tamzrod/reader-provisioner/internal/generate"
)

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	env := fs.String("env", "", "environment override to apply (default: the file's environment)")
	dryRun := fs.Bool("dry-run", false, "plan only, write nothing")
	noBackup := fs.Bool("no-backup", false, "overwrite existing files without a .backup copy")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: provisioner generate <master.yaml> [-env E] [-dry-run] [-no-backup]")
	}

	cfg, err := loadConfig(pos[0], *env)
	if err != nil {
		return err
	}

	plan, err := generate.BuildPlan(cfg, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Generating %d files for environment %q (plan %s)\n", len(plan.Artifacts), plan.Environment, plan.ID)

	w := &generate.Writer{Backup: !*noBackup, DryRun: *dryRun}
	results, werr := w.Write(plan)

	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Printf("  would write %s (%d bytes)\n", r.Path, r.Bytes)
		case r.BackupPath != "":
			fmt.Printf("  wrote %s (%d bytes, previous saved to %s)\n", r.Path, r.Bytes, r.BackupPath)
		default:
			fmt.Printf("  wrote %s (%d bytes)\n", r.Path, r.Bytes)
		}
	}

	for _, warn := range generateWarnings(plan, cfg) {
		fmt.Printf("Warning: %s\n", warn)
	}

	return werr
}

// generateWarnings merges plan warnings with master findings.
// The plan already reports an unassigned main index.
func generateWarnings(plan generate.Plan, cfg *config.Config) []string {
	out := append([]string(nil), plan.Warnings...)
	for _, f := range audit.CheckMaster(cfg).Findings {
		if f.Kind == audit.KindMainIndexUnassigned {
			continue
		}
		out = append(out, f.Message)
	}
	return out
}
