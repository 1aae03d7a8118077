package dsp

// Test-only exports.
var (
	ParabolicOffset = parabolicOffset
	BandMapping     = bandMapping
)
