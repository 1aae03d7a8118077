package onset

import "errors"

// ErrInvalidOption indicates a detector option outside its valid range.
var ErrInvalidOption = errors.New("invalid onset option")

// ErrEnvelope wraps failures of the spectral analyzer.
var ErrEnvelope = errors.New("onset envelope failed")
