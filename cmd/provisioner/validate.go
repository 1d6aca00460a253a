// cmd/provisioner/validate.go
package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/tamzrod/reader-provisioner/internal/audit"
)

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	env := fs.String("env", "", "environment override to apply")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: provisioner validate <master.yaml> [-env E]")
	}

	cfg, err := loadConfig(pos[0], *env)
	if err != nil {
		return err
	}

	report := audit.CheckMaster(cfg)
	for _, f := range report.Findings {
		fmt.Println(f.String())
	}

	fmt.Printf("OK: %s (%s), %d readers, %d warnings\n",
		cfg.Source, cfg.Environment, len(cfg.Hardware.Readers), report.Warnings())
	return nil
}
