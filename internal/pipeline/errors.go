package pipeline

import "errors"

// ErrLoad indicates an input file could not be decoded; the file is skipped.
var ErrLoad = errors.New("cannot load audio")

// ErrNoTransients indicates a file in which no onset was detected.
var ErrNoTransients = errors.New("no transients detected")

// ErrOutputDir indicates the per-file output directory could not be created.
var ErrOutputDir = errors.New("cannot create output directory")
