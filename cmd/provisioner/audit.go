// cmd/provisioner/audit.go
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tamzrod/reader-provisioner/internal/audit"
	"github.com/tamzrod/reader-provisioner/internal/config"
)

func runAudit(args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "master config to check files against")
	env := fs.String("env", "", "environment override to apply to -config")
	strict := fs.Bool("strict", false, "exit 2 when error findings exist")
	asJSON := fs.Bool("json", false, "print the report as JSON")

	paths, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	var master *config.Config
	if *cfgPath != "" {
		master, err = loadConfig(*cfgPath, *env)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			o := master.Outputs
			paths = []string{o.Resolve(o.FirmwareDir), o.Resolve(o.MainHeader)}
		}
	}
	if len(paths) == 0 {
		return errors.New("usage: provisioner audit [-config master.yaml] [-strict] [-json] <dir-or-file>...")
	}

	files, skipped, err := audit.Collect(paths...)
	if err != nil && len(files) == 0 {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	report := audit.Run(files, master)
	report.Skipped = skipped

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, f := range report.Findings {
			fmt.Println(f.String())
		}
		for _, s := range skipped {
			fmt.Printf("skipped %s (not generated)\n", s)
		}
		fmt.Printf("%d files, %d errors, %d warnings\n", report.Files, report.Errors(), report.Warnings())
	}

	if *strict && report.Errors() > 0 {
		return &exitError{code: 2, msg: fmt.Sprintf("audit found %d errors", report.Errors())}
	}
	return nil
}
