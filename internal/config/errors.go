package config

import "errors"

// Sentinel errors for configuration handling.
var (
	// ErrUnknownKey indicates a key that is not a configuration setting.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrInvalidValue indicates a value that cannot be parsed or is out of range.
	ErrInvalidValue = errors.New("invalid config value")

	// ErrParse indicates a malformed config file.
	ErrParse = errors.New("malformed config file")

	// ErrNotDirectory indicates an output path that exists but is not a directory.
	ErrNotDirectory = errors.New("path is not a directory")

	// ErrCreateDir indicates an output directory that cannot be created or written.
	ErrCreateDir = errors.New("cannot create output directory")
)
