package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// FullScale exports fullScale for testing.
var FullScale = fullScale
