package dsp

import "errors"

// ErrInvalidParams indicates analysis parameters that cannot produce frames.
var ErrInvalidParams = errors.New("invalid analysis parameters")

// ErrInvalidSampleRate indicates a non-positive sample rate.
var ErrInvalidSampleRate = errors.New("invalid sample rate")
