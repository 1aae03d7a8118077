package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrInvalidArgs indicates a bad positional argument list: fewer than one
	// input plus the output directory, or an output path that is not a directory.
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrInvalidLogLevel indicates a --log-level outside debug|info|warn|error.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidOption indicates a flag or configured value out of range.
	ErrInvalidOption = errors.New("invalid option")

	// ErrOutputDir indicates the output directory cannot be created or written.
	ErrOutputDir = errors.New("output directory unavailable")
)
