package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/alnah/vstprep/internal/cli"
	"github.com/alnah/vstprep/internal/config"
	"github.com/alnah/vstprep/internal/interrupt"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitGeneral   = 1
	ExitUsage     = 2
	ExitSetup     = 3
	ExitInterrupt = interrupt.ExitInterrupt
)

func main() {
	os.Exit(run())
}

// run executes the CLI and returns the process exit code. Deferred cleanup
// runs before main exits; a second Ctrl+C exits from the interrupt handler.
func run() int {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First signal cancels ctx; a second one within the window exits.
	handler, ctx := interrupt.New(context.Background())
	defer handler.Close()

	env := cli.NewEnv(cli.WithVersion(version))

	rootCmd := cli.RootCmd(env)
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		code := exitCode(err)
		if code == ExitInterrupt {
			fmt.Fprintln(os.Stderr, "Interrupted.")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return code
	}
	return ExitOK
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, cli.ErrOutputDir) || errors.Is(err, config.ErrCreateDir) {
		return ExitSetup
	}

	// Usage errors (ExitUsage = 2): bad arguments, flags or settings.
	if errors.Is(err, cli.ErrInvalidArgs) || errors.Is(err, cli.ErrInvalidLogLevel) ||
		errors.Is(err, cli.ErrInvalidOption) || errors.Is(err, config.ErrNotDirectory) ||
		errors.Is(err, config.ErrUnknownKey) || errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrParse) {
		return ExitUsage
	}

	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",          // Missing required flag
	"unknown flag",           // Flag doesn't exist
	"unknown shorthand",      // Short flag doesn't exist
	"unknown command",        // Subcommand doesn't exist
	"flag needs an argument", // Flag provided without value
	"invalid argument",       // Invalid flag value type
	"accepts ",               // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",      // Too few arguments
	"requires at most",       // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
