// cmd/provisioner/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tamzrod/reader-provisioner/internal/config"
)

// Version information (can be overridden at build time with -ldflags)
var version = "dev"

// exitError carries a non-default exit status.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error

	switch command {
	case "generate":
		err = runGenerate(args)
	case "validate":
		err = runValidate(args)
	case "audit":
		err = runAudit(args)
	case "serve":
		err = runServe(args)
	case "probe":
		err = runProbe(args)
	case "status":
		err = runStatus(args)
	case "version", "--version", "-v":
		fmt.Printf("provisioner version %s\n", version)
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`provisioner - RFID reader configuration provisioning

Usage:
  provisioner generate <master.yaml> [-env E] [-dry-run] [-no-backup]
  provisioner validate <master.yaml> [-env E]
  provisioner audit [-config master.yaml] [-env E] [-strict] [-json] <dir-or-file>...
  provisioner serve <master.yaml> [-env E]
  provisioner probe <reader-header.h> [-heartbeat] [-timeout D]
  provisioner status <master.yaml> [-env E] [-index N]
  provisioner version`)
}

// parseArgs parses flags that may appear before or after positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// loadConfig loads, validates and normalizes a master config.
func loadConfig(path, env string) (*config.Config, error) {
	cfg, err := config.Load(path, env)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}
