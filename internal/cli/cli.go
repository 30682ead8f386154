package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/flowgrid/flowgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("flowgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
FlowGrid - a node-graph execution engine for visual AI flows.

Usage:
  flowgrid [options] COMMAND [ARG]

Commands:
  run FLOW.json
    Execute a flow snapshot and print the per-node report.
  validate PROPOSAL.json
    Check an agent-proposed change batch against its snapshot.
  serve
    Start the HTTP API.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "flowgrid.hcl", "Path to the engine config file.")
	fromFlag := flagSet.String("from", "", "Re-run only this node and its downstream closure (run command).")
	strictFlag := flagSet.Bool("strict", false, "Treat unknown-port references as validation failures.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	action := flagSet.Arg(0)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config := &app.Config{
		Action:     action,
		ConfigPath: *configFlag,
		StartNode:  *fromFlag,
		Strict:     *strictFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	}

	switch action {
	case "run":
		if flagSet.NArg() < 2 {
			return nil, false, &ExitError{Code: 2, Message: "run requires a flow snapshot file"}
		}
		config.FlowPath = flagSet.Arg(1)
	case "validate":
		if flagSet.NArg() < 2 {
			return nil, false, &ExitError{Code: 2, Message: "validate requires a proposal file"}
		}
		config.ProposalPath = flagSet.Arg(1)
	case "serve":
		// no argument
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", action)}
	}

	slog.Debug("CLI parser finished successfully.", "action", action)
	return config, false, nil
}
