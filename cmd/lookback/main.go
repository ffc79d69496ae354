// Package main provides the lookback CLI: it runs prefix scans on the host or
// the GPU, checks them against the sequential reference and dumps the per-block
// look-back state.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
)

const version = "v0.1.0-dev"

const usage = `lookback - decoupled look-back prefix scan

Usage:
  lookback <command> [flags]

Commands:
  scan       Run a scan and verify it against the sequential reference
  tokens     Compute token byte offsets of a file with a parallel scan
  info       Describe the available devices
  version    Show version

Run 'lookback <command> -h' for the flags of a command.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}
	var err error
	switch args[0] {
	case "scan":
		err = runScan(args[1:], stdout, stderr)
	case "tokens":
		err = runTokens(args[1:], stdout, stderr)
	case "info":
		err = runInfo(stdout)
	case "version":
		fmt.Fprintf(stdout, "lookback %s\n", version)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "lookback: unknown command %q\n\n%s", args[0], usage)
		return 1
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s %v\n", palette(stderr).fail.Sprint("error:"), err)
		return 1
	}
	return 0
}

// setupLogging routes the 'lookback' tracer to the standard logger.
func setupLogging(level string) {
	sel := tracing.SelectorForAdapter(gologadapter.GetAdapter())
	sel.Select("lookback").SetTraceLevel(tracing.TraceLevelFromString(level))
	tracing.SetTraceSelector(sel)
}
